package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"pollbooth/internal/audit"
	"pollbooth/internal/audit/stream"
	"pollbooth/internal/dashboard"
	"pollbooth/internal/ledger"
	"pollbooth/internal/platform/config"
	"pollbooth/internal/platform/httpserver"
	"pollbooth/internal/platform/logger"
	"pollbooth/internal/platform/metrics"
	redisclient "pollbooth/internal/platform/redis"
	"pollbooth/internal/registry"
	"pollbooth/internal/storage"
	"pollbooth/internal/storage/postgres"
	httptransport "pollbooth/internal/transport/http"
	"pollbooth/internal/verification"
	"pollbooth/internal/verification/sessionstore"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}
	health := map[string]httptransport.HealthCheck{}

	store, closeStore, err := openStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedDemoData {
		if err := storage.SeedDemoData(ctx, store); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info("demo data seeded", "booth_id", storage.DemoBoothID)
	}

	g, gctx := errgroup.WithContext(ctx)

	sessions, closeSessions, err := openSessionStore(gctx, g, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeSessions()

	auditOpts := []audit.Option{audit.WithLogger(log), audit.WithMetrics(m)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := stream.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("create audit stream: %w", err)
		}
		defer sink.Close()
		worker := audit.NewWorker(sink, 0, log)
		auditOpts = append(auditOpts, audit.WithForwarder(worker))
		health["audit_stream"] = worker.Health
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit streaming enabled", "topic", cfg.Kafka.AuditTopic, "brokers", cfg.Kafka.Brokers)
	}

	registrySvc := registry.NewService(store, registry.WithLogger(log))
	ledgerSvc := ledger.NewService(store, ledger.WithLogger(log), ledger.WithMetrics(m))
	auditSvc := audit.NewService(store, auditOpts...)
	verifier := verification.NewService(registrySvc, ledgerSvc, auditSvc, sessions,
		verification.WithLogger(log),
		verification.WithMetrics(m),
	)
	aggregator := dashboard.NewAggregator(ledgerSvc, auditSvc, registrySvc, dashboard.WithLogger(log))

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   log,
		Metrics:  m,
		Gatherer: gatherer,
		Health:   health,
		Handlers: []interface{ Register(chi.Router) }{
			httptransport.NewBoothHandler(verifier, registrySvc, aggregator, auditSvc, log),
			httptransport.NewSessionHandler(verifier, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting pollbooth", "addr", cfg.Addr, "environment", cfg.Environment)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, httpserver.DefaultShutdownTimeout, log)
	})
	return g.Wait()
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger, health map[string]httptransport.HealthCheck) (storage.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store")
		return storage.NewMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create schema: %w", err)
	}

	store := postgres.New(db)
	health["postgres"] = store.Health
	log.Info("using postgres store")
	return store, func() { _ = db.Close() }, nil
}

// openSessionStore picks Redis when REDIS_URL is set. The in-memory store is
// purged of expired sessions in the background.
func openSessionStore(ctx context.Context, g *errgroup.Group, cfg config.Server, log *slog.Logger, health map[string]httptransport.HealthCheck) (verification.SessionStore, func(), error) {
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		health["redis"] = client.Health
		log.Info("using redis session store", "ttl", cfg.SessionTTL)
		return sessionstore.NewRedis(client.Client, cfg.SessionTTL), func() { _ = client.Close() }, nil
	}

	mem := sessionstore.NewInMemory(cfg.SessionTTL)
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := mem.PurgeExpired(); n > 0 {
					log.Debug("purged expired sessions", "count", n)
				}
			}
		}
	})
	log.Info("using in-memory session store", "ttl", cfg.SessionTTL)
	return mem, func() {}, nil
}
