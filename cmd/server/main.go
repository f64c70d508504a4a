// Command server runs the outrights HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhw/go-outrights/internal/config"
	"github.com/jhw/go-outrights/internal/logger"
	"github.com/jhw/go-outrights/internal/server"
	"github.com/jhw/go-outrights/internal/source"
	"github.com/jhw/go-outrights/internal/store"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.InitLogger(cfg.Log.Level, cfg.IsDevelopment())

	ctx := context.Background()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			log.WithError(err).Fatal("Database connection failed")
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("Database migration failed")
		}
		st = pg
		log.Info("Connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			rdb, err := store.NewRedisClient(ctx, cfg.Redis.URL)
			if err != nil {
				log.WithError(err).Fatal("Redis connection failed")
			}
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.Redis.TTL)
			log.Info("Redis cache enabled")
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store (runs will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Event source ---
	client := source.NewClient(source.ClientConfig{
		BaseURL:         cfg.Source.BaseURL,
		Timeout:         cfg.Source.Timeout,
		BreakerFailures: cfg.Source.BreakerFailures,
		BreakerTimeout:  cfg.Source.BreakerTimeout,
	}, log)
	refresher := source.NewRefresher(client, cfg.Source.Season, cfg.Source.Leagues, cfg.Source.EventsDir, log)
	if cfg.Source.RefreshCron != "" {
		go func() {
			if err := refresher.Refresh(ctx); err != nil {
				log.WithError(err).Warn("Initial event refresh incomplete")
			}
		}()
		if err := refresher.Start(cfg.Source.RefreshCron); err != nil {
			log.WithError(err).Fatal("Failed to schedule event refresh")
		}
	}
	defer refresher.Stop()

	// --- HTTP server ---
	api := server.New(st, refresher, cfg.Model.SimParams(), cfg.Server.WriteTimeout)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Outrights server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Shutting down outrights server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown error")
	}
	log.Info("Outrights server stopped")
}
