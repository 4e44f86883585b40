package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/api"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/config"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/docstore/postgres"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/engine"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/screening"
	httptransport "github.com/zoulfiq4r/FamilyGuardWeb/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store docstore.Store
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to prepare schema: %v", err)
		}
		store = pgStore
	case config.StoreMemory:
		store = docstore.NewMemory()
	default:
		log.Fatalf("unknown store backend %q", cfg.StoreBackend)
	}

	registry := engine.NewRegistry(store, engine.Options{
		TrailLimit:   cfg.TrailLimit,
		TopAppLimit:  cfg.TopAppLimit,
		FirstFixWait: cfg.FirstFixWait,
	})
	defer registry.Close()

	var screeningSvc *screening.Service
	if cfg.ScreeningURL != "" {
		screeningSvc = screening.NewService(screening.NewClient(cfg.ScreeningURL))
	}

	handler := api.NewHandler(registry, screeningSvc)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger(cors(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("guardian api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
