package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"polizalab/internal/jwt_token"
	"polizalab/internal/platform/config"
	"polizalab/internal/platform/httpserver"
	"polizalab/internal/platform/logger"
	"polizalab/internal/platform/metrics"
	"polizalab/internal/platform/objectstore"
	redisclient "polizalab/internal/platform/redis"
	"polizalab/internal/policy/events"
	"polizalab/internal/policy/extraction"
	"polizalab/internal/policy/handler"
	"polizalab/internal/policy/jobs"
	"polizalab/internal/policy/service"
	"polizalab/internal/policy/store"
)

// main wires high-level dependencies and keeps the server lifecycle
// small. Business logic lives in the internal/policy packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policyStore, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize policy store", "error", err.Error())
		os.Exit(1)
	}
	defer closeStore()

	registry := buildRegistry(cfg, log)

	publisher, closePublisher := buildPublisher(ctx, cfg, log)
	defer closePublisher()

	objects := objectstore.Connect(cfg.S3)

	extractor := extraction.NewHTTPClient(extraction.Config{
		BaseURL:          cfg.Extractor.BaseURL,
		Token:            cfg.Extractor.Token,
		CallbackURL:      cfg.Extractor.CallbackURL,
		Seed:             cfg.Extractor.Seed,
		MaxSubmitRetries: cfg.Extractor.MaxSubmitRetries,
	}, log)

	m := metrics.New()
	svc := service.New(policyStore, objects, extractor, registry, publisher, m, log, service.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		RequiredFields:      cfg.RequiredFields,
		MaxFileBytes:        cfg.MaxFileBytes,
		PresignedExpiry:     cfg.PresignedExpiry,
	})
	watcher := service.NewWatcher(svc, extractor, registry, log, cfg.PollInterval)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "polizalab")

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, extractor, log, jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting polizalab", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := watcher.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildStore prefers Postgres when DATABASE_URL is set and falls back
// to the in-memory store for local development.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory policy store")
		return store.NewInMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, func() { _ = db.Close() }, nil
}

func buildRegistry(cfg config.Config, log *slog.Logger) jobs.Registry {
	if cfg.Redis.URL == "" {
		log.Warn("REDIS_URL not set, pending jobs tracked in memory only")
		return jobs.NewInMemory()
	}
	client, err := redisclient.New(cfg.Redis)
	if err != nil || client == nil {
		if err != nil {
			log.Warn("redis unavailable, pending jobs tracked in memory only", "error", err.Error())
		}
		return jobs.NewInMemory()
	}
	return jobs.NewRedis(client.Client)
}

func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
		return events.Noop{}, func() {}
	}
	kafka, err := events.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Warn("kafka unavailable, lifecycle events disabled", "error", err.Error())
		return events.Noop{}, func() {}
	}
	return kafka, kafka.Close
}
