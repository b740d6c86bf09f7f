package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/sales-dashboard-be/internal/http/respond"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/models"
	"github.com/hongminglow/sales-dashboard-be/internal/models/dto"
	"github.com/hongminglow/sales-dashboard-be/internal/syncer"
)

// SyncRunner is the part of the syncer the HTTP layer drives.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Result, error)
	RecentLogs(ctx context.Context) ([]models.SyncLog, error)
}

type SyncHandler struct {
	runner SyncRunner
	log    logging.Logger
}

func NewSyncHandler(runner SyncRunner, log logging.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, log: log}
}

func (h *SyncHandler) Register(r chi.Router) {
	r.Post("/", h.handleSync)
	r.Get("/logs", h.handleLogs)
}

func (h *SyncHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Run(r.Context())
	if err != nil {
		var syncErr *syncer.Error
		if errors.As(err, &syncErr) {
			respond.Error(w, http.StatusInternalServerError, syncErr.Message)
			return
		}
		h.log.Error(r.Context(), "sync failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, msgServerError)
		return
	}
	respond.JSON(w, http.StatusOK, dto.SyncResponse{Message: "Synced", Count: res.Count})
}

func (h *SyncHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.runner.RecentLogs(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "read sync logs failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, msgServerError)
		return
	}
	respond.JSON(w, http.StatusOK, logs)
}
