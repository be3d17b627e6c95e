// Package api exposes the local HTTP status surface. It serves the
// lightweight sync indicator a frontend polls to render "syncing",
// "offline", or a pending-changes badge, without subscribing to the
// engine's event stream.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/store"
	syncengine "github.com/mnemo-app/mnemo/internal/sync"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State        syncengine.State `json:"state"`
	Pending      int              `json:"pending"`
	LastPulledAt *time.Time       `json:"lastPulledAt,omitempty"`
	LastPushedAt *time.Time       `json:"lastPushedAt,omitempty"`
}

// StatusHandler handles status-related HTTP requests.
type StatusHandler struct {
	engine  *syncengine.Engine
	journal *outbox.Journal
	meta    store.Collection[syncengine.Metadata]
	logger  *slog.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(
	engine *syncengine.Engine,
	journal *outbox.Journal,
	meta store.Collection[syncengine.Metadata],
	log *slog.Logger,
) *StatusHandler {
	if engine == nil {
		panic("engine cannot be nil for StatusHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &StatusHandler{
		engine:  engine,
		journal: journal,
		meta:    meta,
		logger:  log.With(slog.String("component", "status_handler")),
	}
}

// GetStatus handles GET /status requests.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	resp := StatusResponse{State: h.engine.State()}

	if h.journal != nil {
		pending, err := h.journal.Len(r.Context())
		if err != nil {
			log.Error("failed to count pending changes", slog.String("error", err.Error()))
			RespondWithError(w, r, http.StatusInternalServerError, "Failed to read sync status")
			return
		}
		resp.Pending = pending
	}

	if h.meta != nil {
		meta, err := h.meta.Get(r.Context(), syncengine.MetadataKey)
		if err == nil {
			if !meta.LastPulledAt.IsZero() {
				resp.LastPulledAt = &meta.LastPulledAt
			}
			if !meta.LastPushedAt.IsZero() {
				resp.LastPushedAt = &meta.LastPushedAt
			}
		} else if !store.IsNotFound(err) {
			log.Warn("failed to read sync watermarks", slog.String("error", err.Error()))
		}
	}

	RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetHealthz handles GET /healthz requests.
func (h *StatusHandler) GetHealthz(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter builds the status router.
func NewRouter(h *StatusHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	r.Get("/healthz", h.GetHealthz)
	return r
}
