package resource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/config"
	"trafficshield/internal/geocode"
	"trafficshield/internal/media"
	"trafficshield/internal/metrics"
	"trafficshield/internal/poller"
)

// Engine aggregates every family service over one backend client. Each
// store remains the sole owner of its cache; the engine only wires
// construction and polling.
type Engine struct {
	Reports        *Reports
	Violations     *Violations
	Fines          *Fines
	Payments       *Payments
	Notifications  *Notifications
	Accidents      *Accidents
	Stations       *Stations
	Cameras        *Cameras
	ViolationTypes *ViolationTypes
	Stats          *Analytics
}

// NewEngine builds all family services.
func NewEngine(client *api.Client, uploader *media.Uploader, geocoder *geocode.Geocoder, m *metrics.Collector, limit int, logger *zap.Logger) *Engine {
	stats := newAnalytics(client, m, logger)
	fines := newFines(client, m, limit, logger)

	return &Engine{
		Reports:        newReports(client, uploader, geocoder, m, stats, limit, logger),
		Violations:     newViolations(client, m, stats, limit, logger),
		Fines:          fines,
		Payments:       newPayments(client, m, fines, stats, limit, logger),
		Notifications:  newNotifications(client, m, limit, logger),
		Accidents:      newAccidents(client, geocoder, m, stats, limit, logger),
		Stations:       newStations(client, m, limit, logger),
		Cameras:        newCameras(client, m, limit, logger),
		ViolationTypes: newViolationTypes(client, m, limit, logger),
		Stats:          stats,
	}
}

// SchedulePolling registers the dashboard refresh tasks. The returned
// handles release their tasks; the poller's context releases everything on
// shutdown.
func (e *Engine) SchedulePolling(ctx context.Context, p *poller.Poller, cfg config.PollingConfig) ([]*poller.Handle, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	specs := []struct {
		name     string
		interval time.Duration
		run      poller.TaskFunc
	}{
		{"stats", cfg.StatsInterval, e.Stats.Refresh},
		{"notifications", cfg.NotificationsInterval, e.Notifications.Refresh},
		{"accidents", cfg.AccidentsInterval, e.Accidents.Refresh},
		{"cameras", cfg.CamerasInterval, e.Cameras.Refresh},
	}

	handles := make([]*poller.Handle, 0, len(specs))
	for _, spec := range specs {
		handle, err := p.Add(ctx, spec.name, spec.interval, spec.run)
		if err != nil {
			for _, h := range handles {
				h.Release()
			}
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}
