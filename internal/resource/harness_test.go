package resource

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/auth"
	"trafficshield/internal/config"
	"trafficshield/internal/geocode"
	"trafficshield/internal/media"
	"trafficshield/internal/metrics"
)

// harness stands up fake backend, media and geocoding servers and wires a
// complete engine against them. Backend routes are registered per test
// with handle; unmatched requests 404.
type harness struct {
	engine *Engine

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	fallback http.HandlerFunc
	geoFail  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{routes: make(map[string]http.HandlerFunc)}

	backend := httptest.NewServer(http.HandlerFunc(h.dispatch))
	t.Cleanup(backend.Close)

	mediaHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/evidence.jpg"}`))
	}))
	t.Cleanup(mediaHost.Close)

	geoHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		fail := h.geoFail
		h.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"display_name":"12 Main St, Springfield"}`))
	}))
	t.Cleanup(geoHost.Close)

	logger := zap.NewNop()
	client := api.New(config.BackendConfig{
		BaseURL:        backend.URL,
		RequestTimeout: 5 * time.Second,
		PageLimit:      10,
	}, auth.NewCredentials("test-token"), logger)

	uploader := media.NewUploader(config.MediaConfig{
		UploadURL:       mediaHost.URL,
		UploadPreset:    "evidence",
		Timeout:         5 * time.Second,
		RateLimitPerMin: 600,
	}, logger)

	geocoder := geocode.NewGeocoder(config.GeocodeConfig{
		BaseURL:  geoHost.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
	}, logger)

	h.engine = NewEngine(client, uploader, geocoder, metrics.NewCollector(), 10, logger)
	return h
}

// handle registers a backend route for one method and path.
func (h *harness) handle(method, path string, fn http.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes[method+" "+path] = fn
}

// failGeocode makes every subsequent reverse-geocoding request fail.
func (h *harness) failGeocode() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.geoFail = true
}

// handleAll registers a fallback for every unmatched request.
func (h *harness) handleAll(fn http.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallback = fn
}

func (h *harness) dispatch(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	fn, ok := h.routes[r.Method+" "+r.URL.Path]
	fallback := h.fallback
	h.mu.Unlock()

	if ok {
		fn(w, r)
		return
	}
	if fallback != nil {
		fallback(w, r)
		return
	}
	http.NotFound(w, r)
}

// evidenceFile writes a throwaway file to stand in for captured media.
func evidenceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evidence.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))
	return path
}
