// rollcall server: HTTP registration backend for mini-app submissions.
// main wires dependencies and owns the process lifecycle; business logic
// lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/audit"
	"rollcall/internal/initdata"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/registration/adapters"
	"rollcall/internal/registration/handler"
	regmetrics "rollcall/internal/registration/metrics"
	"rollcall/internal/registration/service"
	"rollcall/internal/registration/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	records, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedDemo {
		if err := store.SeedDemo(ctx, records); err != nil {
			return fmt.Errorf("seed demo records: %w", err)
		}
	}

	if cfg.BotToken == "" {
		log.Warn("BOT_TOKEN is empty; every submission will be treated as unverified")
	}

	verifier := adapters.NewInitDataVerifier(initdata.NewVerifier(cfg.BotToken))
	svc := service.New(records, verifier,
		service.Config{StrictAuth: cfg.StrictAuth, AllowUpdate: cfg.AllowUpdate},
		service.WithLogger(log),
		service.WithAudit(audit.NewPublisher(audit.NewInMemoryStore())),
		service.WithMetrics(regmetrics.New()),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RequestTime, middleware.Recoverer(log))
	handler.New(svc, log).Register(r)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting rollcall",
		"addr", cfg.Addr,
		"strict_auth", cfg.StrictAuth,
		"allow_update", cfg.AllowUpdate,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStore picks the record store backend from config: postgres when
// DATABASE_URL is set, redis when REDIS_URL is set, in-memory otherwise.
func buildStore(ctx context.Context, cfg config.Server) (store.RecordStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil

	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedis(client), func() { _ = client.Close() }, nil

	default:
		return store.NewInMemoryRecordStore(), func() {}, nil
	}
}
