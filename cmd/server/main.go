package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/auth"
	"trafficshield/internal/config"
	"trafficshield/internal/geocode"
	"trafficshield/internal/media"
	"trafficshield/internal/metrics"
	"trafficshield/internal/poller"
	"trafficshield/internal/realtime"
	"trafficshield/internal/resource"
	"trafficshield/internal/server"
)

// Version information
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	var showVersion bool

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	logger := initLogger()
	defer logger.Sync()

	if showVersion {
		logger.Info("TrafficShield Sync Engine",
			zap.String("version", Version),
			zap.String("git_commit", GitCommit),
			zap.String("build_time", BuildTime))
		return
	}

	logger.Info("Starting TrafficShield Sync Engine",
		zap.String("version", Version))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.Backend.BaseURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creds := auth.NewCredentials(cfg.Auth.Token)
	if creds.Token() != "" && creds.Expired() {
		logger.Warn("Configured session token is already expired")
	}

	collector := metrics.NewCollector()
	client := api.New(cfg.Backend, creds, logger)
	uploader := media.NewUploader(cfg.Media, logger)
	geocoder := geocode.NewGeocoder(cfg.Geocode, logger)

	engine := resource.NewEngine(client, uploader, geocoder, collector, cfg.Backend.PageLimit, logger)

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	watchStores(engine, hub)

	var handles []*poller.Handle
	p := poller.New(logger)
	if cfg.Polling.Enabled {
		handles, err = engine.SchedulePolling(ctx, p, cfg.Polling)
		if err != nil {
			logger.Fatal("Failed to schedule polling", zap.Error(err))
		}
		p.Start(ctx)
		logger.Info("Background polling started", zap.Int("tasks", len(handles)))
	}

	srv := server.NewServer(cfg, engine, hub, collector, creds, Version, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("HTTP facade failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	for _, h := range handles {
		h.Release()
	}
	if cfg.Polling.Enabled {
		p.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}

	logger.Info("Sync engine exited")
}

// watchStores forwards store change events to the websocket hub so
// connected dashboards see refreshes and mutations as they land.
func watchStores(engine *resource.Engine, hub *realtime.Hub) {
	events, _ := engine.Reports.Store.Subscribe()
	hub.Watch(events)

	notifEvents, _ := engine.Notifications.Store.Subscribe()
	hub.Watch(notifEvents)

	accidentEvents, _ := engine.Accidents.Store.Subscribe()
	hub.Watch(accidentEvents)

	statsEvents, _ := engine.Stats.Store.Subscribe()
	hub.Watch(statsEvents)
}

// initLogger initializes the application logger
func initLogger() *zap.Logger {
	env := os.Getenv("TRAFFICSHIELD_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	var logger *zap.Logger
	var err error

	if env == "production" {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		logger, err = config.Build()
	} else {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logger, err = config.Build()
	}

	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	return logger
}
