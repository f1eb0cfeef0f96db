package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficshield/internal/config"
)

func newTestUploader(t *testing.T, handler http.HandlerFunc) *Uploader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewUploader(config.MediaConfig{
		UploadURL:       srv.URL,
		UploadPreset:    "evidence",
		Timeout:         5 * time.Second,
		RateLimitPerMin: 600,
	}, zap.NewNop())
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o644))
	return path
}

func TestUploadReturnsHostedURL(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "evidence", r.FormValue("upload_preset"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "photo.jpg", header.Filename)
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/photo.jpg"}`))
	})

	url, err := u.Upload(context.Background(), tempFile(t, "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", url)
}

func TestUploadFallsBackToPlainURL(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"http://cdn.example.com/photo.jpg"}`))
	})

	url, err := u.Upload(context.Background(), tempFile(t, "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/photo.jpg", url)
}

func TestUploadAllFailsFast(t *testing.T) {
	var hits atomic.Int32
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/ok.jpg"}`))
	})

	paths := []string{
		tempFile(t, "one.jpg"),
		tempFile(t, "two.jpg"),
		tempFile(t, "three.jpg"),
	}
	_, err := u.UploadAll(context.Background(), paths)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load(), "the first failure halts the batch")
}

func TestUploadAllRequiresAtLeastOnePath(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := u.UploadAll(context.Background(), nil)
	require.Error(t, err)
}

func TestUploadMissingFile(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.jpg"))
	require.Error(t, err)
}

func TestUploadRejectsMissingHostedURL(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	_, err := u.Upload(context.Background(), tempFile(t, "photo.jpg"))
	require.Error(t, err)
}
