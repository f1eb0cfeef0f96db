package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/geocode"
	"trafficshield/internal/media"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
	"trafficshield/internal/workflow"
)

// Reports manages citizen violation reports: submission, review and the
// one-shot appeal flow.
type Reports struct {
	client   *api.Client
	uploader *media.Uploader
	geocoder *geocode.Geocoder
	metrics  *metrics.Collector
	validate *validator.Validate
	stats    *Analytics
	logger   *zap.Logger

	Store *store.Store[models.Report]
}

// Submission is a citizen's report before it leaves the device.
// Validation failures never reach the network.
type Submission struct {
	VehiclePlate  string   `validate:"required,min=4,max=16"`
	ViolationType string   `validate:"required"`
	Description   string   `validate:"max=2000"`
	EvidencePaths []string `validate:"required,min=1"`
	Latitude      float64  `validate:"latitude"`
	Longitude     float64  `validate:"longitude"`
}

func newReports(client *api.Client, uploader *media.Uploader, geocoder *geocode.Geocoder, m *metrics.Collector, stats *Analytics, limit int, logger *zap.Logger) *Reports {
	return &Reports{
		client:   client,
		uploader: uploader,
		geocoder: geocoder,
		metrics:  m,
		validate: validator.New(),
		stats:    stats,
		logger:   logger,
		Store: store.New("reports", limit,
			listFetcher[models.Report](client, "/reports", "reports"),
			func(r models.Report) string { return r.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (r *Reports) Refresh(ctx context.Context) error {
	return refreshStore(ctx, r.Store, r.metrics)
}

// Submit files a new violation report: validates locally, uploads the
// evidence (at least one successful upload is mandatory, failure halts the
// flow), reverse-geocodes the location best effort, and posts. The plate
// is uppercased before it goes on the wire.
func (r *Reports) Submit(ctx context.Context, sub Submission) (*models.Report, error) {
	if err := r.validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}

	urls, err := r.uploader.UploadAll(ctx, sub.EvidencePaths)
	if err != nil {
		r.metrics.UploadFailures.Inc()
		return nil, fmt.Errorf("evidence upload failed: %w", err)
	}

	location := models.Location{
		Latitude:  sub.Latitude,
		Longitude: sub.Longitude,
	}
	if address, err := r.geocoder.Reverse(ctx, sub.Latitude, sub.Longitude); err != nil {
		// Non-fatal: the coordinates remain usable.
		r.metrics.GeocodeFailures.Inc()
		r.logger.Warn("reverse geocoding failed, submitting without address", zap.Error(err))
	} else {
		location.Address = address
	}

	payload := map[string]any{
		"idempotency_key": uuid.NewString(),
		"vehicle_plate":   strings.ToUpper(strings.TrimSpace(sub.VehiclePlate)),
		"violation_type":  sub.ViolationType,
		"description":     sub.Description,
		"evidence_urls":   urls,
		"location":        location,
	}

	raw, err := r.client.Post(ctx, "/reports", payload)
	r.metrics.MutationTotal.WithLabelValues("reports", "submit", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	report, _ := decodeRecord[models.Report](raw)

	// List-shape mutation: refetch the affected page, and the stats view
	// alongside it (cross-store consistency is dispatched manually).
	_ = r.Refresh(ctx)
	r.stats.RefreshAsync(ctx)

	return report, nil
}

// Review approves or rejects a pending report. Notes are mandatory; the
// server computes the reward or penalty. The server returns the updated
// record, so the store is patched in place; a full refetch is the
// fallback when it does not.
func (r *Reports) Review(ctx context.Context, id string, decision workflow.Decision) (*models.Report, error) {
	current := workflow.StatePending
	if cached, ok := r.Store.Find(id); ok {
		current = reviewState(cached)
	}
	if err := workflow.ValidateDecision(current, decision); err != nil {
		return nil, err
	}

	action := "reject"
	if decision.Approve {
		action = "approve"
	}

	raw, err := r.client.Post(ctx, "/reports/"+id+"/"+action, map[string]any{
		"notes": decision.Notes,
	})
	r.metrics.MutationTotal.WithLabelValues("reports", action, outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	updated, ok := decodeRecord[models.Report](raw)
	if ok && updated.ID != "" {
		r.Store.Patch(*updated)
	} else {
		_ = r.Refresh(ctx)
	}
	r.stats.RefreshAsync(ctx)

	return updated, nil
}

// Appeal challenges a rejected report. Guards run before any network
// call: one appeal per report, reason and new evidence required. The
// compounding-penalty warning for this transition comes from
// workflow.ConfirmationCopy; enforcement of the penalty itself is
// server-side.
func (r *Reports) Appeal(ctx context.Context, id, reason string, evidencePaths []string) (*models.Report, error) {
	cached, ok := r.Store.Find(id)
	if !ok {
		if err := r.fetchInto(ctx, id, &cached); err != nil {
			return nil, err
		}
	}

	// Paths stand in for URLs here; the guard must fire before uploads.
	if err := workflow.ValidateAppeal(&cached, workflow.Appeal{
		Reason:       reason,
		EvidenceURLs: evidencePaths,
	}); err != nil {
		return nil, err
	}

	urls, err := r.uploader.UploadAll(ctx, evidencePaths)
	if err != nil {
		r.metrics.UploadFailures.Inc()
		return nil, fmt.Errorf("evidence upload failed: %w", err)
	}

	raw, err := r.client.Post(ctx, "/reports/"+id+"/appeal", map[string]any{
		"reason":        reason,
		"evidence_urls": urls,
	})
	r.metrics.MutationTotal.WithLabelValues("reports", "appeal", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	updated, ok := decodeRecord[models.Report](raw)
	if ok && updated.ID != "" {
		r.Store.Patch(*updated)
	} else {
		_ = r.Refresh(ctx)
	}

	return updated, nil
}

// AppealWarning returns the confirmation copy the UI must show before an
// appeal is submitted.
func (r *Reports) AppealWarning() string {
	return workflow.ConfirmationCopy(workflow.StateRejected, workflow.StatePendingAppeal)
}

func (r *Reports) fetchInto(ctx context.Context, id string, out *models.Report) error {
	raw, err := r.client.Get(ctx, "/reports/"+id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	return nil
}

// reviewState maps a report's status fields onto the shared lifecycle.
func reviewState(report models.Report) workflow.State {
	switch report.AppealStatus {
	case models.AppealStatusPending:
		return workflow.StatePendingAppeal
	case models.AppealStatusRejectedFinal:
		return workflow.StateRejectedFinal
	}
	switch report.Status {
	case models.ReportStatusApproved:
		return workflow.StateApproved
	case models.ReportStatusRejected:
		return workflow.StateRejected
	default:
		return workflow.StatePending
	}
}
