// Package geocode resolves captured coordinates to addresses. Failures
// degrade gracefully: the address stays empty, the coordinates remain
// usable, and the primary submission is never blocked.
package geocode

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"trafficshield/internal/config"
)

// Geocoder is a client for the reverse-geocoding service with an
// in-process TTL cache so repeated map taps don't hammer the free tier.
type Geocoder struct {
	rest   *resty.Client
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewGeocoder creates a geocoder against the configured service.
func NewGeocoder(cfg config.GeocodeConfig, logger *zap.Logger) *Geocoder {
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "TrafficShield/1.0")

	return &Geocoder{
		rest:   rest,
		cache:  gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger,
	}
}

// Reverse resolves a coordinate pair to a display address. Callers treat
// errors as non-fatal warnings.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	key := fmt.Sprintf("%.5f,%.5f", lat, lng)
	if cached, found := g.cache.Get(key); found {
		return cached.(string), nil
	}

	resp, err := g.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":    fmt.Sprintf("%f", lat),
			"lon":    fmt.Sprintf("%f", lng),
			"format": "json",
		}).
		Get("/reverse")
	if err != nil {
		return "", fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode())
	}

	address := gjson.GetBytes(resp.Body(), "display_name").String()
	if address == "" {
		return "", fmt.Errorf("geocoder response missing address")
	}

	g.cache.Set(key, address, gocache.DefaultExpiration)
	g.logger.Debug("address resolved",
		zap.String("coordinates", key),
		zap.String("address", address))
	return address, nil
}
