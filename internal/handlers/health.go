package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/observability"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandlers struct {
	db      Pinger
	started time.Time
}

func NewHealthHandlers(db Pinger) *HealthHandlers {
	return &HealthHandlers{db: db, started: time.Now()}
}

func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Readyz reports 503 while the database is unreachable.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.db.Ping(pingCtx); err != nil {
			observability.FromContext(ctx).Warn("database not ready", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "database unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
