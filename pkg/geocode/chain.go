package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/kass/go-speedlimit/pkg/models"
)

// Chain resolves an address by trying every candidate query against every
// provider in order, returning the first hit. Provider errors trigger a
// short backoff before the next attempt; ErrNoMatch moves on immediately.
type Chain struct {
	providers []Geocoder
	cache     *Cache
	backoff   time.Duration
}

// NewChain builds a provider chain. Provider order is the fallback order.
func NewChain(providers ...Geocoder) *Chain {
	return &Chain{
		providers: providers,
		backoff:   500 * time.Millisecond,
	}
}

// WithCache attaches a result cache to the chain. A nil cache is allowed.
func (c *Chain) WithCache(cache *Cache) *Chain {
	c.cache = cache
	return c
}

// Resolve geocodes a free-text address. It returns ErrNoMatch when every
// candidate query fails against every provider.
func (c *Chain) Resolve(ctx context.Context, address string) (models.Location, error) {
	candidates := CandidateQueries(address)
	if len(candidates) == 0 {
		return models.Location{}, ErrNoMatch
	}

	for _, query := range candidates {
		if loc, ok := c.cache.Get(ctx, query); ok {
			return loc, nil
		}

		for _, provider := range c.providers {
			loc, err := provider.Geocode(ctx, query)
			if err == nil {
				c.cache.Set(ctx, query, loc)
				return loc, nil
			}
			if errors.Is(err, ErrNoMatch) {
				continue
			}

			// Transient provider failure; pause briefly so a flaky
			// upstream is not hammered across candidates
			select {
			case <-ctx.Done():
				return models.Location{}, ctx.Err()
			case <-time.After(c.backoff):
			}
		}
	}

	return models.Location{}, ErrNoMatch
}
