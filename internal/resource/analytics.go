package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// Analytics mirrors the server-computed stats summary behind the admin
// and police dashboards.
type Analytics struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Single[models.StatsSummary]
}

func newAnalytics(client *api.Client, m *metrics.Collector, logger *zap.Logger) *Analytics {
	a := &Analytics{
		client:  client,
		metrics: m,
		logger:  logger,
	}
	a.Store = store.NewSingle("stats", func(ctx context.Context) (*models.StatsSummary, error) {
		raw, err := client.Get(ctx, "/analytics/summary")
		if err != nil {
			return nil, err
		}
		var summary models.StatsSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode stats summary: %w", err)
		}
		return &summary, nil
	}, logger)
	return a
}

// Refresh reloads the stats summary.
func (a *Analytics) Refresh(ctx context.Context) error {
	a.metrics.InFlight.WithLabelValues("stats").Inc()
	err := a.Store.Refresh(ctx)
	a.metrics.InFlight.WithLabelValues("stats").Dec()

	switch {
	case errors.Is(err, store.ErrStale):
		a.metrics.StaleDiscarded.WithLabelValues("stats").Inc()
	case err != nil:
		a.metrics.RefreshTotal.WithLabelValues("stats", "failure").Inc()
	default:
		a.metrics.RefreshTotal.WithLabelValues("stats", "success").Inc()
	}
	return err
}

// RefreshAsync dispatches a stats refresh without blocking the caller.
// Mutation paths use it to keep the stats view loosely consistent with
// the primary store; failures only log.
func (a *Analytics) RefreshAsync(ctx context.Context) {
	go func() {
		if err := a.Refresh(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, store.ErrStale) {
			a.logger.Warn("stats refresh failed", zap.Error(err))
		}
	}()
}
