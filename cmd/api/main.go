package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"shibau-trading/internal/config"
	"shibau-trading/internal/health"
	"shibau-trading/internal/httpserver"
	"shibau-trading/internal/ledger"
	"shibau-trading/internal/marketdata"
	"shibau-trading/internal/orders"
	"shibau-trading/internal/positions"
	"shibau-trading/internal/staking"
	"shibau-trading/internal/store"
	"shibau-trading/internal/users"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	var st store.Store
	switch {
	case cfg.DatabaseURL != "":
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = store.NewPostgresStore(pool)
		slog.Info("using postgres store")
		if cfg.RedisURL != "" {
			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "error", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opts)
			defer rdb.Close()
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("redis cache enabled")
		}
	default:
		st = store.NewMemoryStore()
		slog.Warn("no DATABASE_URL set, using in-memory store, data will not survive restarts")
	}

	if err := store.Seed(ctx, st); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}

	sim := marketdata.NewSimulator(cfg.Markets)
	chain := marketdata.NewProviderChain()
	adapter := marketdata.NewAdapter(cfg.PriceSource, sim, chain, st)
	bus := marketdata.NewBus()

	ledgerSvc := ledger.NewService(st, adapter)
	positionSvc := positions.NewService(st, adapter)
	orderSvc := orders.NewService(st)
	userSvc := users.NewService(st)
	stakingSvc := staking.NewService(st)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		UserHandler:     users.NewHandler(userSvc),
		LedgerHandler:   ledger.NewHandler(ledgerSvc),
		PositionHandler: positions.NewHandler(positionSvc),
		OrderHandler:    orders.NewHandler(orderSvc),
		MarketHandler:   marketdata.NewHandler(adapter, sim),
		StakingHandler:  staking.NewHandler(stakingSvc),
		HealthHandler:   health.NewHandler(pool, time.Now()),
		WSHandler:       httpserver.NewWSHandler(bus, adapter, cfg.CORSOrigin),
		CORSOrigin:      cfg.CORSOrigin,
	})

	// Populate market data once before serving so the first request and
	// the first WebSocket snapshot are not empty.
	if err := adapter.Refresh(ctx); err != nil {
		slog.Warn("initial market data refresh failed", "error", err)
	}
	marketdata.StartPublisher(ctx, adapter, bus, cfg.BroadcastInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.HTTPAddr, "price_source", cfg.PriceSource)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
