package resource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/metrics"
	"trafficshield/internal/models"
	"trafficshield/internal/store"
)

// Stations manages the police-station directory for administrators.
type Stations struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Store[models.PoliceStation]
}

func newStations(client *api.Client, m *metrics.Collector, limit int, logger *zap.Logger) *Stations {
	return &Stations{
		client:  client,
		metrics: m,
		logger:  logger,
		Store: store.New("stations", limit,
			listFetcher[models.PoliceStation](client, "/stations", "stations"),
			func(s models.PoliceStation) string { return s.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (s *Stations) Refresh(ctx context.Context) error {
	return refreshStore(ctx, s.Store, s.metrics)
}

// Create registers a new station and refetches the page.
func (s *Stations) Create(ctx context.Context, station models.PoliceStation) (*models.PoliceStation, error) {
	if station.Name == "" || station.Code == "" {
		return nil, fmt.Errorf("station name and code are required")
	}

	raw, err := s.client.Post(ctx, "/stations", station)
	s.metrics.MutationTotal.WithLabelValues("stations", "create", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	created, _ := decodeRecord[models.PoliceStation](raw)
	_ = s.Refresh(ctx)
	return created, nil
}

// Update edits a station; the server's copy wins in the cache.
func (s *Stations) Update(ctx context.Context, station models.PoliceStation) (*models.PoliceStation, error) {
	if station.ID == "" {
		return nil, fmt.Errorf("station id is required")
	}

	raw, err := s.client.Put(ctx, "/stations/"+station.ID, station)
	s.metrics.MutationTotal.WithLabelValues("stations", "update", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	updated, ok := decodeRecord[models.PoliceStation](raw)
	if ok && updated.ID != "" {
		s.Store.Patch(*updated)
	} else {
		_ = s.Refresh(ctx)
	}
	return updated, nil
}

// Delete removes a station after server confirmation.
func (s *Stations) Delete(ctx context.Context, id string) error {
	err := s.client.Delete(ctx, "/stations/"+id)
	s.metrics.MutationTotal.WithLabelValues("stations", "delete", outcome(err)).Inc()
	if err != nil {
		return err
	}
	s.Store.Remove(id)
	return nil
}

// Cameras manages the traffic-camera inventory for administrators.
type Cameras struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Store[models.Camera]
}

func newCameras(client *api.Client, m *metrics.Collector, limit int, logger *zap.Logger) *Cameras {
	return &Cameras{
		client:  client,
		metrics: m,
		logger:  logger,
		Store: store.New("cameras", limit,
			listFetcher[models.Camera](client, "/cameras", "cameras"),
			func(c models.Camera) string { return c.ID },
			logger),
	}
}

// Refresh reloads the current page.
func (c *Cameras) Refresh(ctx context.Context) error {
	return refreshStore(ctx, c.Store, c.metrics)
}

// Create registers a camera and refetches the page.
func (c *Cameras) Create(ctx context.Context, camera models.Camera) (*models.Camera, error) {
	if camera.Name == "" {
		return nil, fmt.Errorf("camera name is required")
	}

	raw, err := c.client.Post(ctx, "/cameras", camera)
	c.metrics.MutationTotal.WithLabelValues("cameras", "create", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	created, _ := decodeRecord[models.Camera](raw)
	_ = c.Refresh(ctx)
	return created, nil
}

// SetStatus toggles a camera's operational state; the updated record is
// patched in place when the server returns it.
func (c *Cameras) SetStatus(ctx context.Context, id string, status models.CameraStatus) (*models.Camera, error) {
	raw, err := c.client.Put(ctx, "/cameras/"+id+"/status", map[string]any{
		"status": status,
	})
	c.metrics.MutationTotal.WithLabelValues("cameras", "set_status", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	updated, ok := decodeRecord[models.Camera](raw)
	if ok && updated.ID != "" {
		c.Store.Patch(*updated)
	} else {
		_ = c.Refresh(ctx)
	}
	return updated, nil
}

// Delete removes a camera after server confirmation.
func (c *Cameras) Delete(ctx context.Context, id string) error {
	err := c.client.Delete(ctx, "/cameras/"+id)
	c.metrics.MutationTotal.WithLabelValues("cameras", "delete", outcome(err)).Inc()
	if err != nil {
		return err
	}
	c.Store.Remove(id)
	return nil
}

// ViolationTypes mirrors the violation-type catalog.
type ViolationTypes struct {
	client  *api.Client
	metrics *metrics.Collector
	logger  *zap.Logger

	Store *store.Store[models.ViolationType]
}

func newViolationTypes(client *api.Client, m *metrics.Collector, limit int, logger *zap.Logger) *ViolationTypes {
	return &ViolationTypes{
		client:  client,
		metrics: m,
		logger:  logger,
		Store: store.New("violation_types", limit,
			listFetcher[models.ViolationType](client, "/violation-types", "violation_types"),
			func(t models.ViolationType) string { return t.ID },
			logger),
	}
}

// Refresh reloads the catalog page.
func (t *ViolationTypes) Refresh(ctx context.Context) error {
	return refreshStore(ctx, t.Store, t.metrics)
}
