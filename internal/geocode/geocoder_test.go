package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficshield/internal/config"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGeocoder(config.GeocodeConfig{
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
	}, zap.NewNop())
}

func TestReverseResolvesAddress(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"display_name":"12 Main St, Springfield"}`))
	})

	address, err := g.Reverse(context.Background(), 10.77, 106.69)
	require.NoError(t, err)
	assert.Equal(t, "12 Main St, Springfield", address)
}

func TestReverseCachesByCoordinate(t *testing.T) {
	var hits atomic.Int32
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"display_name":"12 Main St"}`))
	})

	for i := 0; i < 5; i++ {
		_, err := g.Reverse(context.Background(), 10.77, 106.69)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load(), "repeated lookups for the same spot hit the cache")

	_, err := g.Reverse(context.Background(), 21.03, 105.85)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestReverseErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := g.Reverse(context.Background(), 1, 2)
		assert.Error(t, err)
	})

	t.Run("missing address", func(t *testing.T) {
		g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
		})
		_, err := g.Reverse(context.Background(), 1, 2)
		assert.Error(t, err)
	})
}
