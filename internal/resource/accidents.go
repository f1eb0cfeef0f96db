package resource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/geocode"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// accidentFlow is the response lifecycle; each status advances only to
// its successor.
var accidentFlow = map[models.AccidentStatus]models.AccidentStatus{
	models.AccidentStatusActive:     models.AccidentStatusResponding,
	models.AccidentStatusResponding: models.AccidentStatusResolved,
}

// Accidents manages active incidents for police dashboards.
type Accidents struct {
	client   *api.Client
	geocoder *geocode.Geocoder
	metrics  *metrics.Collector
	stats    *Analytics
	logger   *zap.Logger

	Store *store.Store[models.Accident]
}

func newAccidents(client *api.Client, geocoder *geocode.Geocoder, m *metrics.Collector, stats *Analytics, limit int, logger *zap.Logger) *Accidents {
	return &Accidents{
		client:   client,
		geocoder: geocoder,
		metrics:  m,
		stats:    stats,
		logger:   logger,
		Store: store.New("accidents", limit,
			listFetcher[models.Accident](client, "/accidents", "accidents"),
			func(a models.Accident) string { return a.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (a *Accidents) Refresh(ctx context.Context) error {
	return refreshStore(ctx, a.Store, a.metrics)
}

// Report files a new accident. The address lookup is best effort.
func (a *Accidents) Report(ctx context.Context, description, severity string, lat, lng float64) (*models.Accident, error) {
	if severity == "" {
		return nil, fmt.Errorf("severity is required")
	}

	location := models.Location{Latitude: lat, Longitude: lng}
	if address, err := a.geocoder.Reverse(ctx, lat, lng); err != nil {
		a.metrics.GeocodeFailures.Inc()
		a.logger.Warn("reverse geocoding failed, reporting without address", zap.Error(err))
	} else {
		location.Address = address
	}

	raw, err := a.client.Post(ctx, "/accidents", map[string]any{
		"description": description,
		"severity":    severity,
		"location":    location,
	})
	a.metrics.MutationTotal.WithLabelValues("accidents", "report", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	accident, _ := decodeRecord[models.Accident](raw)
	_ = a.Refresh(ctx)
	a.stats.RefreshAsync(ctx)
	return accident, nil
}

// UpdateStatus advances an accident along ACTIVE → RESPONDING → RESOLVED.
// Out-of-order transitions are blocked before any network call.
func (a *Accidents) UpdateStatus(ctx context.Context, id string, next models.AccidentStatus) (*models.Accident, error) {
	if cached, ok := a.Store.Find(id); ok {
		if accidentFlow[cached.Status] != next {
			return nil, fmt.Errorf("cannot move accident from %s to %s", cached.Status, next)
		}
	}

	raw, err := a.client.Put(ctx, "/accidents/"+id+"/status", map[string]any{
		"status": next,
	})
	a.metrics.MutationTotal.WithLabelValues("accidents", "update_status", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	updated, ok := decodeRecord[models.Accident](raw)
	if ok && updated.ID != "" {
		a.Store.Patch(*updated)
	} else {
		_ = a.Refresh(ctx)
	}
	a.stats.RefreshAsync(ctx)
	return updated, nil
}
