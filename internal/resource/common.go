// Package resource wires one service per backend collection: reports,
// violations, fines, payments, notifications, accidents, stations,
// cameras, violation types and analytics. Each service binds the API
// client to its family's store and implements the fetch/mutate operations
// the dashboards dispatch.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

func decodePage[T any](res *api.ListResult) (*models.Page[T], error) {
	var items []T
	if err := json.Unmarshal(res.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to decode list items: %w", err)
	}
	return &models.Page[T]{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}, nil
}

// listFetcher binds a collection endpoint to a store's fetch hook. The
// filter set is passed through unmodified; narrowing is the backend's
// contract, never re-applied client-side.
func listFetcher[T any](client *api.Client, path, field string) store.FetchFunc[T] {
	return func(ctx context.Context, filters store.Filters, page, limit int) (*models.Page[T], error) {
		res, err := client.List(ctx, path, field, filters, page, limit)
		if err != nil {
			return nil, err
		}
		return decodePage[T](res)
	}
}

// refreshStore runs an instrumented refresh. A discarded stale response is
// neither a success nor a failure.
func refreshStore[T any](ctx context.Context, st *store.Store[T], m *metrics.Collector) error {
	m.InFlight.WithLabelValues(st.Name()).Inc()
	err := st.Refresh(ctx)
	m.InFlight.WithLabelValues(st.Name()).Dec()

	switch {
	case errors.Is(err, store.ErrStale):
		m.StaleDiscarded.WithLabelValues(st.Name()).Inc()
	case err != nil:
		m.RefreshTotal.WithLabelValues(st.Name(), "failure").Inc()
	default:
		m.RefreshTotal.WithLabelValues(st.Name(), "success").Inc()
	}
	return err
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// decodeRecord unmarshals a mutation response's data payload when the
// backend returned the updated record.
func decodeRecord[T any](raw json.RawMessage) (*T, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false
	}
	return &record, true
}
