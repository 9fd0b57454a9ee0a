package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/kass/go-speedlimit/pkg/models"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// Nominatim geocodes against the OpenStreetMap Nominatim search API.
// Nominatim's usage policy requires an identifying User-Agent with a
// contact address, taken from NOMINATIM_EMAIL.
type Nominatim struct {
	BaseURL      string
	Email        string
	CountryCodes string
	Client       *http.Client
}

// NewNominatim returns a Nominatim geocoder scoped to Denmark
func NewNominatim() *Nominatim {
	email := os.Getenv("NOMINATIM_EMAIL")
	if email == "" {
		email = "example@example.com"
	}
	return &Nominatim{
		BaseURL:      nominatimBaseURL,
		Email:        email,
		CountryCodes: "dk",
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Nominatim) Name() string { return "nominatim" }

// Geocode resolves the query to the top-ranked match
func (n *Nominatim) Geocode(ctx context.Context, query string) (models.Location, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}
	if n.CountryCodes != "" {
		params.Set("countrycodes", n.CountryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("go-speedlimit/1.0 (%s)", n.Email))

	resp, err := n.Client.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	// Nominatim encodes coordinates as strings
	var matches []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return models.Location{}, fmt.Errorf("nominatim response: %w", err)
	}
	if len(matches) == 0 {
		return models.Location{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(matches[0].Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim latitude %q: %w", matches[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(matches[0].Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim longitude %q: %w", matches[0].Lon, err)
	}

	return models.Location{Lat: lat, Lon: lon}, nil
}
