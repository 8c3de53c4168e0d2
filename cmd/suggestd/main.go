package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chronicle/suggest/internal/app"
	"chronicle/suggest/internal/config"
	"chronicle/suggest/internal/store"
	"chronicle/suggest/internal/thread"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// The suggestion log is optional; without a database the engine
	// runs fully in memory.
	var dataStore *store.PostgresStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		dataStore = store.NewPostgresStore(db)
	} else {
		log.Printf("No DATABASE_URL set, suggestion log disabled")
	}

	var threads thread.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for discussion threads")
		redisThreads, err := thread.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisThreads.Close()
		threads = redisThreads
	} else {
		log.Printf("Using in-memory discussion threads")
		threads = thread.NewMemory()
	}

	service := app.NewService(cfg, threads, dataStore)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Suggestion engine listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
