// Package geocode resolves free-text addresses to coordinates via
// third-party web geocoders, with Danish query normalization, provider
// fallback, and an optional Redis result cache.
package geocode

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kass/go-speedlimit/pkg/models"
)

// ErrNoMatch means the provider answered but found no location for the
// query. Transport and decoding failures are returned as regular errors.
var ErrNoMatch = errors.New("no geocoding match")

// Geocoder resolves one free-text query against a single provider
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (models.Location, error)
}

// houseNumberRange matches ranges like "6-14" so they collapse to the
// first number; geocoders rarely know the full range form
var houseNumberRange = regexp.MustCompile(`\b(\d+)\s*-\s*\d+\b`)

// asciiFold transliterates the Danish letters geocoders sometimes choke on
var asciiFold = strings.NewReplacer(
	"æ", "ae", "ø", "oe", "å", "aa",
	"Æ", "Ae", "Ø", "Oe", "Å", "Aa",
)

// CandidateQueries expands an address into the query variants worth trying:
// the original, a house-number-range collapsed form, ASCII transliterations,
// and each with a ", Denmark" suffix when the country is not already named.
// Variants are de-duplicated and ordered original-first.
func CandidateQueries(address string) []string {
	original := strings.TrimSpace(address)
	if original == "" {
		return nil
	}
	simplified := houseNumberRange.ReplaceAllString(original, "$1")

	bases := []string{
		original,
		simplified,
		asciiFold.Replace(original),
		asciiFold.Replace(simplified),
	}

	seen := make(map[string]bool)
	var candidates []string
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			candidates = append(candidates, q)
		}
	}

	for _, base := range bases {
		add(base)
		if !strings.Contains(strings.ToLower(base), "denmark") {
			add(base + ", Denmark")
		}
	}

	return candidates
}
