package resource

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// Violations manages confirmed violations filed by police.
type Violations struct {
	client   *api.Client
	metrics  *metrics.Collector
	validate *validator.Validate
	stats    *Analytics
	logger   *zap.Logger

	Store *store.Store[models.Violation]
}

// Filing is a police-filed violation before submission.
type Filing struct {
	VehiclePlate string  `json:"vehicle_plate" validate:"required,min=4,max=16"`
	TypeCode     string  `json:"type_code" validate:"required"`
	StationID    string  `json:"station_id" validate:"required"`
	Latitude     float64 `json:"latitude" validate:"latitude"`
	Longitude    float64 `json:"longitude" validate:"longitude"`
}

func newViolations(client *api.Client, m *metrics.Collector, stats *Analytics, limit int, logger *zap.Logger) *Violations {
	return &Violations{
		client:   client,
		metrics:  m,
		validate: validator.New(),
		stats:    stats,
		logger:   logger,
		Store: store.New("violations", limit,
			listFetcher[models.Violation](client, "/violations", "violations"),
			func(v models.Violation) string { return v.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (v *Violations) Refresh(ctx context.Context) error {
	return refreshStore(ctx, v.Store, v.metrics)
}

// File submits a new violation. The fine amount is computed server-side
// from the type's base fine.
func (v *Violations) File(ctx context.Context, filing Filing) (*models.Violation, error) {
	if err := v.validate.Struct(filing); err != nil {
		return nil, err
	}

	raw, err := v.client.Post(ctx, "/violations", map[string]any{
		"vehicle_plate": strings.ToUpper(strings.TrimSpace(filing.VehiclePlate)),
		"type_code":     filing.TypeCode,
		"station_id":    filing.StationID,
		"location": models.Location{
			Latitude:  filing.Latitude,
			Longitude: filing.Longitude,
		},
	})
	v.metrics.MutationTotal.WithLabelValues("violations", "file", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	violation, _ := decodeRecord[models.Violation](raw)
	_ = v.Refresh(ctx)
	v.stats.RefreshAsync(ctx)
	return violation, nil
}
