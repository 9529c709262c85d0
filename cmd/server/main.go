package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/papertrade/engine/internal/broker"
	"github.com/papertrade/engine/internal/metrics"
	"github.com/papertrade/engine/internal/oracle"
	"github.com/papertrade/engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8005"
	}

	// --- Account store ---
	var st store.Store
	var cleanup []func()

	switch {
	case os.Getenv("DATABASE_URL") != "":
		pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")
	case os.Getenv("ACCOUNTS_FILE") != "":
		st = store.NewFileStore(os.Getenv("ACCOUNTS_FILE"))
		slog.Info("using JSON file store", "path", os.Getenv("ACCOUNTS_FILE"))
	default:
		slog.Warn("DATABASE_URL and ACCOUNTS_FILE not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price oracle ---
	var priceSource oracle.Oracle
	if os.Getenv("APCA_API_KEY_ID") != "" {
		priceSource = oracle.NewAlpacaOracle()
		slog.Info("using Alpaca market data")
	} else {
		priceSource = oracle.NewYahooOracle()
		slog.Info("using Yahoo Finance market data")
	}

	// Wrap with a Redis price cache if configured.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		priceSource = oracle.NewCachedOracle(priceSource, rdb, 30*time.Second)
		slog.Info("Redis price cache enabled")
	}

	// --- WebSocket hub ---
	wsHub := broker.NewWSHub()
	go wsHub.Run()

	// --- Broker service ---
	svc := broker.NewService(st, priceSource, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"paper-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/paper", func(r chi.Router) {
		// WebSocket endpoint for real-time order events.
		r.Get("/ws", wsHub.HandleWS)

		r.Get("/accounts/{userID}", svc.HandleGetAccount)
		r.Post("/accounts/{userID}/reset", svc.HandleReset)
		r.Get("/accounts/{userID}/orders", svc.HandleListOrders)
		r.Post("/accounts/{userID}/orders", svc.HandlePlaceOrder)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("paper-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down paper-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("paper-engine stopped")
}
