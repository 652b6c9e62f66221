package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geocoder89/sprintsync/internal/ai"
	"github.com/geocoder89/sprintsync/internal/auth"
	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/db"
	httpx "github.com/geocoder89/sprintsync/internal/http"
	"github.com/geocoder89/sprintsync/internal/observability"
	"github.com/geocoder89/sprintsync/internal/redisclient"
	"github.com/geocoder89/sprintsync/internal/repo/postgres"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "sprintsync-api", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		log.Error("load migrations failed", "err", err)
		os.Exit(1)
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "versions", applied)
	}

	if err := db.EnsureAdminUser(ctx, pool, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("bootstrap admin failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var draining atomic.Bool

	deps := httpx.Deps{
		Log:      log,
		Config:   cfg,
		Users:    postgres.NewUsersRepo(pool, prom),
		Projects: postgres.NewProjectsRepo(pool, prom),
		Tasks:    postgres.NewTasksRepo(pool, prom),
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL),
		Prom:     prom,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ping:     pool.Ping,

		ShuttingDown: draining.Load,
	}

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, logout will not revoke tokens", "err", err)
		} else {
			deps.Denylist = rdb
		}
	}

	// a nil completer keeps the AI endpoints on their fallbacks
	var completer ai.Completer
	if cfg.OpenAIKey != "" {
		completer = ai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.AITimeout)
	} else {
		log.Warn("OPENAI_API_KEY not set, AI suggestions use fallbacks")
	}
	deps.AI = ai.NewService(completer, cfg.AITimeout, prom, log)

	// set up routers with the deps
	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	draining.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
