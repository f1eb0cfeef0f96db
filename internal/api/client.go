// Package api is the typed REST client for the traffic-violation backend.
// It speaks the backend's { success, data, message } envelope and
// normalizes the per-resource collection field names (reports, payments,
// violations, ...) into a single list shape at the boundary.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"trafficshield/internal/auth"
	"trafficshield/internal/config"
	"trafficshield/internal/models"
)

// Client issues authenticated HTTP requests against one backend instance.
// Credentials are injected at construction; there is no ambient auth state.
type Client struct {
	rest   *resty.Client
	creds  *auth.Credentials
	logger *zap.Logger
}

// ListResult is a normalized collection page. Items stays raw so each
// resource family can decode into its own record type.
type ListResult struct {
	Items      json.RawMessage
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// New creates a backend client. Every request carries the bearer token and
// honors the configured timeout; a hung backend fails the request instead
// of leaving callers loading forever.
func New(cfg config.BackendConfig, creds *auth.Credentials, logger *zap.Logger) *Client {
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "TrafficShield/1.0")

	rest.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if token := creds.Token(); token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	})

	return &Client{
		rest:   rest,
		creds:  creds,
		logger: logger,
	}
}

// List fetches one page of a collection endpoint. field names the
// collection key inside the response's data object; when absent the
// decoder falls back to "items" and finally to the first array it finds.
func (c *Client) List(ctx context.Context, path, field string, filters map[string]string, page, limit int) (*ListResult, error) {
	query := make(map[string]string, len(filters)+2)
	for k, v := range filters {
		query[k] = v
	}
	query["page"] = strconv.Itoa(page)
	query["limit"] = strconv.Itoa(limit)

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	body, err := c.checkEnvelope(resp)
	if err != nil {
		return nil, err
	}

	return decodeList(body, field)
}

// Get fetches a single record and returns its raw data payload.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.rest.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	body, err := c.checkEnvelope(resp)
	if err != nil {
		return nil, err
	}
	return dataPayload(body), nil
}

// Post sends a mutation and returns the raw data payload, which may be
// empty when the backend only acknowledges.
func (c *Client) Post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	body, err := c.checkEnvelope(resp)
	if err != nil {
		return nil, err
	}
	return dataPayload(body), nil
}

// Put sends an update mutation.
func (c *Client) Put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(path)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", path, err)
	}
	body, err := c.checkEnvelope(resp)
	if err != nil {
		return nil, err
	}
	return dataPayload(body), nil
}

// Delete removes a record. Local caches drop the record only after this
// returns nil.
func (c *Client) Delete(ctx context.Context, path string) error {
	resp, err := c.rest.R().SetContext(ctx).Delete(path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	_, err = c.checkEnvelope(resp)
	return err
}

// checkEnvelope validates status and the success flag, mapping failures to
// a structured *APIError with the backend's message verbatim.
func (c *Client) checkEnvelope(resp *resty.Response) ([]byte, error) {
	body := resp.Body()

	if resp.IsError() || (gjson.GetBytes(body, "success").Exists() && !gjson.GetBytes(body, "success").Bool()) {
		apiErr := &APIError{
			Status:  resp.StatusCode(),
			Message: extractMessage(body),
		}
		if fields := gjson.GetBytes(body, "errors"); fields.IsObject() {
			apiErr.Fields = make(map[string]string)
			fields.ForEach(func(key, value gjson.Result) bool {
				apiErr.Fields[key.String()] = value.String()
				return true
			})
		}
		c.logger.Debug("backend request failed",
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	return body, nil
}

func extractMessage(body []byte) string {
	for _, key := range []string{"message", "error", "data.message"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return genericMessage
}

func dataPayload(body []byte) json.RawMessage {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return nil
	}
	return json.RawMessage(data.Raw)
}

// decodeList normalizes the varying list envelope into a ListResult.
func decodeList(body []byte, field string) (*ListResult, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		data = gjson.ParseBytes(body)
	}

	items := data.Get(field)
	if !items.IsArray() {
		items = data.Get("items")
	}
	if !items.IsArray() {
		// Last resort: the first array-valued key in the data object.
		data.ForEach(func(_, value gjson.Result) bool {
			if value.IsArray() {
				items = value
				return false
			}
			return true
		})
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("no collection field found in list response")
	}

	result := &ListResult{
		Items: json.RawMessage(items.Raw),
		Total: int(data.Get("total").Int()),
		Page:  int(data.Get("page").Int()),
		Limit: int(data.Get("limit").Int()),
	}

	if tp := data.Get("total_pages"); tp.Exists() {
		result.TotalPages = int(tp.Int())
	} else if tp := data.Get("totalPages"); tp.Exists() {
		result.TotalPages = int(tp.Int())
	} else {
		result.TotalPages = models.TotalPagesFor(result.Total, result.Limit)
	}

	return result, nil
}
