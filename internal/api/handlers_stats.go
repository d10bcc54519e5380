package api

import (
	"net/http"

	"github.com/pulsewatch/vigil/internal/db"
)

type StatsHandler struct {
	store *db.Store
	sched Scheduler
}

func NewStatsHandler(store *db.Store, sched Scheduler) *StatsHandler {
	return &StatsHandler{store: store, sched: sched}
}

// Get returns system-wide counters.
// @Summary      Get system stats
// @Tags         stats
// @Produce      json
// @Success      200  {object} object{version=string,runningMonitors=int,stats=db.SystemStats}
// @Failure      500  {object} object{error=string} "Failed to get stats"
// @Router       /stats [get]
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetSystemStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":         Version,
		"runningMonitors": h.sched.RunningCount(),
		"stats":           stats,
	})
}
