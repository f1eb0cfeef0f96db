package resource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// Fines mirrors the fines issued against a citizen's vehicles.
type Fines struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Store[models.Fine]
}

func newFines(client *api.Client, m *metrics.Collector, limit int, logger *zap.Logger) *Fines {
	return &Fines{
		client:  client,
		metrics: m,
		logger:  logger,
		Store: store.New("fines", limit,
			listFetcher[models.Fine](client, "/fines", "fines"),
			func(f models.Fine) string { return f.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (f *Fines) Refresh(ctx context.Context) error {
	return refreshStore(ctx, f.Store, f.metrics)
}

// OutstandingTotal sums the pending fines on the cached page.
func (f *Fines) OutstandingTotal() float64 {
	snap := f.Store.State()
	var total float64
	for _, fine := range store.Pick(snap.Data, func(fine models.Fine) bool {
		return fine.Status == models.PaymentStatusPending
	}) {
		total += fine.Amount
	}
	return total
}

// Payments mirrors settlement attempts and initiates new ones. The
// gateway protocol itself is entirely server-side.
type Payments struct {
	client  *api.Client
	metrics *metrics.Collector
	fines   *Fines
	stats   *Analytics
	logger  *zap.Logger

	Store *store.Store[models.Payment]
}

func newPayments(client *api.Client, m *metrics.Collector, fines *Fines, stats *Analytics, limit int, logger *zap.Logger) *Payments {
	return &Payments{
		client:  client,
		metrics: m,
		fines:   fines,
		stats:   stats,
		logger:  logger,
		Store: store.New("payments", limit,
			listFetcher[models.Payment](client, "/payments", "payments"),
			func(p models.Payment) string { return p.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (p *Payments) Refresh(ctx context.Context) error {
	return refreshStore(ctx, p.Store, p.metrics)
}

// Initiate starts a payment against a fine. Fines and stats are refetched
// alongside the payments page because a settled fine changes both views.
func (p *Payments) Initiate(ctx context.Context, fineID, method string) (*models.Payment, error) {
	if fineID == "" || method == "" {
		return nil, fmt.Errorf("fine id and payment method are required")
	}

	raw, err := p.client.Post(ctx, "/payments", map[string]any{
		"idempotency_key": uuid.NewString(),
		"fine_id":         fineID,
		"method":          method,
	})
	p.metrics.MutationTotal.WithLabelValues("payments", "initiate", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	payment, _ := decodeRecord[models.Payment](raw)
	_ = p.Refresh(ctx)
	_ = p.fines.Refresh(ctx)
	p.stats.RefreshAsync(ctx)
	return payment, nil
}
