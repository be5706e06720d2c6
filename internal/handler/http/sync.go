package http

import (
	"net/http"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// statusResponse is the sync status together with the per-collection count
// of local edits the remote store has not confirmed yet.
type statusResponse struct {
	models.SyncStatus
	Unsynced models.UnsyncedCount `json:"unsynced"`
}

type retryResponse struct {
	Reset  int               `json:"reset"`
	Status models.SyncStatus `json:"status"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	unsynced, err := h.records.CountUnsynced(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.status").Msg("error counting unsynced records")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	utils.WriteJSON(w, statusResponse{
		SyncStatus: h.services.Orchestrator.Status(),
		Unsynced:   unsynced,
	}, http.StatusOK)
}

func (h *Handler) forceSync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.services.Orchestrator.ForceSyncNow(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.forceSync").Msg("sync pass failed")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	utils.WriteJSON(w, h.services.Orchestrator.Status(), http.StatusOK)
}

func (h *Handler) retryFailed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	n, err := h.services.Orchestrator.RetryFailed(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.retryFailed").Int("reset", n).Msg("retrying failed items")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	log.Info().Int("reset", n).Msg("failed sync items moved back to pending")
	utils.WriteJSON(w, retryResponse{Reset: n, Status: h.services.Orchestrator.Status()}, http.StatusOK)
}
