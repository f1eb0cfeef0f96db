// Package media uploads evidence files to the third-party media host and
// returns their hosted URLs. Upload failures are surfaced to the caller
// and halt the submission flow; a report needs at least one successful
// upload before it can be posted.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trafficshield/internal/config"
)

// Uploader is a client for the media host's unsigned-preset upload
// endpoint.
type Uploader struct {
	rest    *resty.Client
	preset  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewUploader creates an uploader against the configured media host.
func NewUploader(cfg config.MediaConfig, logger *zap.Logger) *Uploader {
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 30
	}

	rest := resty.New().
		SetBaseURL(cfg.UploadURL).
		SetTimeout(cfg.Timeout)

	return &Uploader{
		rest:    rest,
		preset:  cfg.UploadPreset,
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
		logger:  logger,
	}
}

// Upload sends one local file and returns its hosted URL.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("upload rate limit: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open evidence file: %w", err)
	}
	defer file.Close()

	resp, err := u.rest.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(path), file).
		SetFormData(map[string]string{"upload_preset": u.preset}).
		Post("")
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("media host returned status %d", resp.StatusCode())
	}

	url := gjson.GetBytes(resp.Body(), "secure_url").String()
	if url == "" {
		url = gjson.GetBytes(resp.Body(), "url").String()
	}
	if url == "" {
		return "", fmt.Errorf("media host response missing hosted URL")
	}

	u.logger.Debug("evidence uploaded",
		zap.String("file", filepath.Base(path)),
		zap.String("url", url))

	return url, nil
}

// UploadAll uploads every file, failing fast on the first error. Callers
// require at least one path; an empty slice is a validation error caught
// before this point.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one evidence file is required")
	}

	urls := make([]string, 0, len(paths))
	for _, path := range paths {
		url, err := u.Upload(ctx, path)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
