package resource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// Notifications manages the user's notification feed. Mark-as-read is the
// one mutation applied optimistically, with a compensating rollback when
// the server rejects it.
type Notifications struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Store[models.Notification]
}

func newNotifications(client *api.Client, m *metrics.Collector, limit int, logger *zap.Logger) *Notifications {
	return &Notifications{
		client:  client,
		metrics: m,
		logger:  logger,
		Store: store.New("notifications", limit,
			listFetcher[models.Notification](client, "/notifications", "notifications"),
			func(n models.Notification) string { return n.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (n *Notifications) Refresh(ctx context.Context) error {
	return refreshStore(ctx, n.Store, n.metrics)
}

// MarkRead flips the record to read immediately for perceived
// responsiveness, then confirms with the server. Rejection rolls the
// local state back; a server-returned record reconciles the patch.
func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	rollback, cached := n.Store.Optimistic(id, func(record models.Notification) models.Notification {
		now := time.Now()
		record.Read = true
		record.ReadAt = &now
		return record
	})

	raw, err := n.client.Put(ctx, "/notifications/"+id+"/read", nil)
	n.metrics.MutationTotal.WithLabelValues("notifications", "mark_read", outcome(err)).Inc()
	if err != nil {
		if cached {
			rollback()
		}
		return err
	}

	if updated, ok := decodeRecord[models.Notification](raw); ok && updated.ID != "" {
		n.Store.Patch(*updated)
	} else if !cached {
		_ = n.Refresh(ctx)
	}
	return nil
}

// MarkAllRead marks every notification read server-side, then refetches.
func (n *Notifications) MarkAllRead(ctx context.Context) error {
	_, err := n.client.Put(ctx, "/notifications/read-all", nil)
	n.metrics.MutationTotal.WithLabelValues("notifications", "mark_all_read", outcome(err)).Inc()
	if err != nil {
		return err
	}
	return n.Refresh(ctx)
}

// Delete removes a notification; the local record is dropped only after
// the server confirms.
func (n *Notifications) Delete(ctx context.Context, id string) error {
	err := n.client.Delete(ctx, "/notifications/"+id)
	n.metrics.MutationTotal.WithLabelValues("notifications", "delete", outcome(err)).Inc()
	if err != nil {
		return err
	}
	n.Store.Remove(id)
	return nil
}

// UnreadCount is a derived view over the cached page.
func (n *Notifications) UnreadCount() int {
	snap := n.Store.State()
	return len(store.Pick(snap.Data, func(record models.Notification) bool {
		return !record.Read
	}))
}
