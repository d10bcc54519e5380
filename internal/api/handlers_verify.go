package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/verify"
)

type VerifyHandler struct {
	store    *db.Store
	engine   *health.Engine
	verifier Verifier
}

func NewVerifyHandler(store *db.Store, engine *health.Engine, verifier Verifier) *VerifyHandler {
	return &VerifyHandler{store: store, engine: engine, verifier: verifier}
}

// Trigger runs an on-demand verification of a monitor from all
// configured vantage points. The request blocks until the summary is
// ready; a cached summary returns immediately.
// @Summary      Trigger verification
// @Tags         monitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} verify.Summary
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Failure      503  {object} object{error=string} "Verification unavailable"
// @Router       /monitors/{id}/verify [post]
func (h *VerifyHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "verification is not configured")
		return
	}

	mon, err := h.store.GetMonitor(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load monitor")
		return
	}

	// The engine state shapes the summary's severity level; a monitor
	// the engine has not tracked yet is treated as down.
	state := health.StateDown
	if stats, ok := h.engine.GetHealthStatistics(mon.ID); ok && stats.State != health.StateUnknown {
		state = stats.State
	}

	summary, err := h.verifier.TriggerVerification(r.Context(), mon, state)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "verification queue is full")
		case errors.Is(err, verify.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, "verifier is shutting down")
		case errors.Is(err, verify.ErrCanceled):
			writeError(w, http.StatusBadGateway, "verification canceled")
		default:
			writeError(w, http.StatusBadGateway, "verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
