package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/flowline-analytics/flowline/internal/cache"
	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/handlers"
	"github.com/flowline-analytics/flowline/internal/ingest"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/repository"
	"github.com/flowline-analytics/flowline/internal/server"
	"github.com/flowline-analytics/flowline/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("migrations", "file://migrations", "path to migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	connString := cfg.Database.Postgres.DSN()

	// Run database migrations before opening the pool.
	logger.Info("running database migrations")
	m, err := migrate.New(*migrationsPath, connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// The ledger shares the repository's connection pool.
	ledgerStore := ledger.NewPostgresStore(repo.Pool())
	led := ledger.New(ledgerStore, logger, ledger.RetryPolicy{
		MaxRetries:     cfg.Ledger.MaxRetries,
		InitialBackoff: cfg.Ledger.InitialBackoff,
		MaxBackoff:     cfg.Ledger.MaxBackoff,
	})

	metricsCache := cache.New(nil, false, 0)
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		opts.MaxRetries = cfg.Redis.MaxRetries
		opts.PoolSize = cfg.Redis.PoolSize
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, running without cache", "error", err)
		} else {
			metricsCache = cache.New(client, true, cfg.Redis.TTL)
			defer client.Close()
		}
	}

	svc := service.New(repo, metricsCache, led, cfg, logger)
	handler := handlers.NewHandler(svc, logger)
	router := server.NewRouter(handler)

	if cfg.NATS.Enabled {
		consumer, err := ingest.NewConsumer(cfg.NATS, svc, logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		if err := consumer.Start(); err != nil {
			log.Fatalf("Failed to start NATS consumer: %v", err)
		}
		defer consumer.Close()
		logger.Info("nats ingestion started",
			"url", cfg.NATS.URL, "subject_prefix", cfg.NATS.SubjectPrefix)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("flowline listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("server stopped")
}
