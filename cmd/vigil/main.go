package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsewatch/vigil/internal/api"
	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/event"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/incident"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/metrics"
	"github.com/pulsewatch/vigil/internal/notifications"
	"github.com/pulsewatch/vigil/internal/probe"
	"github.com/pulsewatch/vigil/internal/uptime"
	"github.com/pulsewatch/vigil/internal/verify"
)

// @title                      Vigil API
// @version                    1.0
// @description                Multi-protocol uptime monitoring with a hysteresis health engine, incident tracking and multi-vantage outage verification.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := logging.New("vigil")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(db.DBConfig{
		Type: db.Dialect(cfg.DB.Type),
		Path: cfg.DB.Path,
		DSN:  cfg.DB.DSN,
	})
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	m := metrics.New()

	// Transitions go to a durable Redis stream when one is configured,
	// otherwise to an in-memory hub that only live SSE clients see.
	var (
		publisher event.Publisher
		source    api.EventSource
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		stream := event.NewStreamPublisher(rdb, cfg.Redis.Stream, logging.New("event"))
		stream.OnPublishError(m.EventPublishErrors.Inc)
		defer func() { _ = stream.Close() }()
		publisher, source = stream, stream
		logger.Printf("publishing transitions to redis stream %q at %s", cfg.Redis.Stream, cfg.Redis.Addr)
	} else {
		hub := event.NewHub()
		defer func() { _ = hub.Close() }()
		publisher, source = hub, hub
		logger.Printf("redis not configured, transition events are in-memory only")
	}

	engine := health.NewEngine(health.DefaultEngineConfig(), logging.New("health"))
	prober := probe.New(logging.New("probe"))
	incidents := incident.NewManager(store, logging.New("incident"))

	var provider verify.Provider
	if cfg.Verification.BaseURL != "" {
		provider = verify.NewRemoteProvider(cfg.Verification, logging.New("verify"))
		logger.Printf("remote verification enabled via %s", cfg.Verification.BaseURL)
	}
	vlog := logging.New("verify")
	verifier := verify.New(verify.NewLocalProvider(prober), vlog, verify.Options{
		Provider: provider,
		Metrics:  m,
		OnSummary: func(monitorID string, s verify.Summary) {
			// Attachment retries while the incident row commits, so it
			// must not hold up the verification worker.
			go func() {
				if err := incidents.AttachVerification(monitorID, s); err != nil {
					vlog.Printf("attach summary for %s: %v", monitorID, err)
				}
			}()
		},
	})
	verifier.Start()
	defer verifier.Stop()

	notifier := notifications.NewService(store, cfg.Notify, logging.New("notify"), notifications.Options{
		Metrics: m,
		Suppress: func(monitorID string, at time.Time) bool {
			windows, err := store.ActiveMaintenanceWindows(at)
			if err != nil {
				return false
			}
			for _, w := range windows {
				if w.Covers(monitorID, at) {
					return true
				}
			}
			return false
		},
	})
	notifier.Start()
	defer notifier.Stop()

	manager := uptime.NewManager(uptime.Deps{
		Store:     store,
		Engine:    engine,
		Prober:    prober,
		Verifier:  verifier,
		Incidents: incidents,
		Notifier:  notifier,
		Events:    publisher,
		Metrics:   m,
		Logger:    logging.New("uptime"),
	}, uptime.Options{
		RetentionDays: cfg.RetentionDays,
	})
	manager.Start()
	defer manager.Stop()

	r := api.NewRouter(api.Deps{
		Store:    store,
		Sched:    manager,
		Engine:   engine,
		Verifier: verifier,
		Events:   source,
		Metrics:  m.Handler(),
		Config:   cfg,
		Logger:   logging.New("api"),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("forced shutdown: %v", err)
	}
}
