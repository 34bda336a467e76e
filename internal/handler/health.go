package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/recipe-room/internal/storage"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// statusReporter is implemented by storage.BreakerStore.
type statusReporter interface {
	Status() string
}

type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	ImageStore string `json:"image_store"`
}

type HealthHandler struct {
	db     Pinger
	images storage.ImageStore
	logger *slog.Logger
}

// NewHealthHandler reports on db and, when configured, the image store.
// images may be nil.
func NewHealthHandler(db Pinger, images storage.ImageStore, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, images: images, logger: logger}
}

// HandleHealth handles GET /healthz.
//
//	database down              → 503, status "unavailable"
//	image store breaker open   → 200, status "degraded" (only uploads fail)
//	otherwise                  → 200, status "ok"
//
// image_store is "disabled" without a store, the breaker state when the
// store has one, and "ok" otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok", ImageStore: h.imageStoreStatus()}
	if resp.ImageStore == "open" {
		resp.Status = "degraded"
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) imageStoreStatus() string {
	if h.images == nil {
		return "disabled"
	}
	if s, ok := h.images.(statusReporter); ok {
		return s.Status()
	}
	return "ok"
}
