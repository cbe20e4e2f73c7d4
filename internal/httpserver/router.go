package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shibau-trading/internal/health"
	"shibau-trading/internal/ledger"
	"shibau-trading/internal/marketdata"
	"shibau-trading/internal/metrics"
	"shibau-trading/internal/orders"
	"shibau-trading/internal/positions"
	"shibau-trading/internal/staking"
	"shibau-trading/internal/users"
)

type RouterDeps struct {
	UserHandler     *users.Handler
	LedgerHandler   *ledger.Handler
	PositionHandler *positions.Handler
	OrderHandler    *orders.Handler
	MarketHandler   *marketdata.Handler
	StakingHandler  *staking.Handler
	HealthHandler   *health.Handler
	WSHandler       http.Handler
	CORSOrigin      string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(CORS(d.CORSOrigin))
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", d.HealthHandler.Live)
	r.Get("/readyz", d.HealthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", d.WSHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/market-data", d.MarketHandler.List)
		r.Get("/market-data/status", d.MarketHandler.Status)
		r.Get("/market-data/{symbol}", d.MarketHandler.Get)
		r.Get("/chart/{symbol}", d.MarketHandler.Chart)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", d.UserHandler.Create)
			r.Get("/{address}", d.UserHandler.GetByAddress)
			r.Get("/{userId}/balance", d.LedgerHandler.GetBalance)
			r.Get("/{userId}/referrals", d.UserHandler.Referrals)
		})

		r.Route("/positions", func(r chi.Router) {
			r.Post("/", d.PositionHandler.Open)
			r.Get("/{userId}", d.PositionHandler.List)
			r.Post("/{id}/close", d.PositionHandler.Close)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", d.OrderHandler.Create)
			r.Get("/{userId}", d.OrderHandler.List)
			r.Delete("/{id}", d.OrderHandler.Cancel)
		})

		r.Get("/trades/{userId}", d.OrderHandler.Trades)

		r.Post("/swap", d.LedgerHandler.Swap)

		r.Post("/staking", d.LedgerHandler.Stake)
		r.Get("/staking/{userId}", d.LedgerHandler.ListStaking)

		r.Get("/pools", d.StakingHandler.ListPools)
		r.Get("/pools/{id}", d.StakingHandler.GetPool)
		r.Get("/liquidity/{userId}", d.StakingHandler.UserLiquidity)
	})

	return r
}
