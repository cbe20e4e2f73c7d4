package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shibau-trading/internal/httputil"
)

// Handler serves liveness and readiness. The pool is nil when the
// service runs on the in-memory store, in which case readiness has no
// external dependency to check.
type Handler struct {
	pool      *pgxpool.Pool
	startedAt time.Time
}

func NewHandler(pool *pgxpool.Pool, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, startedAt: start}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	UptimeSec int64            `json:"uptime_sec"`
	Uptime    string           `json:"uptime"`
	Database  *readinessDBStat `json:"database,omitempty"`
}

type readinessDBStat struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
	CheckedAt string `json:"checked_at"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

// Live is a lightweight liveness endpoint and does not check database reachability.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready pings the database when one is configured and returns 503 when
// it is not reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)

	resp := readinessResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	}
	httpStatus := http.StatusOK

	if h.pool != nil {
		db := &readinessDBStat{}
		pingStart := time.Now()
		pingCtx, cancel := context.WithTimeout(r.Context(), time.Second)
		pingErr := h.pool.Ping(pingCtx)
		cancel()
		db.PingMs = time.Since(pingStart).Milliseconds()
		db.CheckedAt = time.Now().UTC().Format(time.RFC3339)
		if pingErr != nil {
			db.Error = pingErr.Error()
			resp.Status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			db.Reachable = true
		}
		resp.Database = db
	}

	httputil.WriteJSON(w, httpStatus, resp)
}
