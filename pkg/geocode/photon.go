package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/kass/go-speedlimit/pkg/models"
)

const photonBaseURL = "https://photon.komoot.io/api/"

// Photon geocodes against komoot's Photon API, used as the fallback
// provider when Nominatim yields nothing. Photon answers in GeoJSON.
type Photon struct {
	BaseURL string
	Lang    string
	Client  *http.Client
}

// NewPhoton returns a Photon geocoder with a Danish language hint
func NewPhoton() *Photon {
	return &Photon{
		BaseURL: photonBaseURL,
		Lang:    "da",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Photon) Name() string { return "photon" }

// Geocode resolves the query to the top-ranked match
func (p *Photon) Geocode(ctx context.Context, query string) (models.Location, error) {
	params := url.Values{
		"q":     {query},
		"limit": {"1"},
	}
	if p.Lang != "" {
		params.Set("lang", p.Lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("photon request: %w", err)
	}
	req.Header.Set("User-Agent", "go-speedlimit/1.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("photon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("photon status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Location{}, fmt.Errorf("photon response: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return models.Location{}, fmt.Errorf("photon response: %w", err)
	}
	if len(fc.Features) == 0 {
		return models.Location{}, ErrNoMatch
	}

	point, ok := fc.Features[0].Geometry.(orb.Point)
	if !ok {
		return models.Location{}, fmt.Errorf("photon returned a %s geometry", fc.Features[0].Geometry.GeoJSONType())
	}

	return models.Location{Lat: point.Lat(), Lon: point.Lon()}, nil
}
