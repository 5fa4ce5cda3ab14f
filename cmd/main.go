package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pv_informant/docs"
	"pv_informant/internal/config"
	"pv_informant/internal/decision"
	"pv_informant/internal/handlers"
	"pv_informant/internal/ingest"
	"pv_informant/internal/logger"
	"pv_informant/internal/metrics"
	"pv_informant/internal/repository"
	"pv_informant/internal/repository/db"
	"pv_informant/internal/server"
	"pv_informant/internal/service"
	"pv_informant/internal/wol"
)

// @title                       PV Informant API
// @version                     1.0
// @description                 Surplus PV power decisions, worker wake-up and history queries.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("invalid configuration", "err", err)
	}

	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	policy, err := decision.NewThresholdPolicy(cfg.Policy.BatteryLow, cfg.Policy.BatteryHigh, cfg.Policy.CurrentLow, cfg.Policy.CurrentHigh)
	if err != nil {
		log.Fatalw("invalid thresholds", "err", err)
	}

	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	if cfg.Storage.Workers == config.WorkerStoreMemory {
		log.Warnw("worker registrations are kept in memory and lost on restart")
		repos.Workers = repository.NewMemoryWorkers()
	}

	m := metrics.New()
	sender := wol.NewSender(cfg.Wake.Broadcast, cfg.Wake.Port, cfg.Wake.Pacing, log.Named("wol"))

	services, registry := service.NewService(repos, service.Deps{
		Policy:  decision.NewPolicyHolder(policy),
		Sender:  sender,
		Metrics: m,
		Log:     log,
		Settings: service.Settings{
			MaxRange:   cfg.Query.MaxRange,
			StaleAfter: cfg.Registry.StaleAfter,
			MinRepeat:  cfg.Wake.Cooldown,
			Freshness:  cfg.Scheduler.Freshness,
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.Restore(ctx); err != nil {
		log.Fatalw("failed to restore worker registry", "err", err)
	}

	if cfg.Wake.Enabled {
		go services.Scheduler.Run(ctx, cfg.Scheduler.Interval)
	} else {
		log.Infow("wake loop disabled")
	}

	if cfg.MQTT.Enabled {
		go runIngester(ctx, ingest.NewIngester(repos.Readings, log.Named("ingest"), m), cfg.MQTT, log)
	}

	apiHandler := handlers.NewHandler(services, log.Named("http"), m)
	srv := server.New(cfg.Server.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	waitForShutdown(cancel, srv, cfg.Server.ShutdownTimeout, log)
}

// openDB initializes the SQLite database at path.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", path)
	return db.InitDB(path)
}

func runIngester(ctx context.Context, in *ingest.Ingester, mc config.MQTTConfig, log *logger.Logger) {
	err := in.Run(ctx, ingest.Config{
		Broker:   mc.Broker,
		ClientID: mc.ClientID,
		Username: mc.Username,
		Password: mc.Password,
		Topic:    mc.Topic,
		QoS:      mc.QoS,
	})
	if err != nil {
		log.Errorw("mqtt ingestion stopped", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop scheduler and ingester
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
