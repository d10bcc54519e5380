package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
)

// Healthz answers liveness probes.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Readyz answers readiness probes; not ready while the store is down.
func Readyz(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type HealthHandler struct {
	store  *db.Store
	engine *health.Engine
}

func NewHealthHandler(store *db.Store, engine *health.Engine) *HealthHandler {
	return &HealthHandler{store: store, engine: engine}
}

// MonitorHealth returns the engine snapshot for one monitor plus its
// uptime aggregates.
// @Summary      Monitor health statistics
// @Tags         monitors
// @Produce      json
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} object{monitorId=string,name=string,engine=health.HealthStatistics,uptime=db.UptimeStats}
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id}/health [get]
func (h *HealthHandler) MonitorHealth(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mon, err := h.store.GetMonitor(id)
	if err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load monitor")
		return
	}

	stats, tracked := h.engine.GetHealthStatistics(id)
	if !tracked {
		stats = health.HealthStatistics{MonitorID: id, State: health.StateUnknown}
	}

	uptime, err := h.store.GetUptimeStats(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute uptime")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"monitorId": mon.ID,
		"name":      mon.Name,
		"engine":    stats,
		"uptime":    uptime,
	})
}

type overviewMonitor struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Protocol    string             `json:"protocol"`
	Active      bool               `json:"active"`
	State       health.HealthState `json:"state"`
	Since       *time.Time         `json:"since,omitempty"`
	LastCheckAt *time.Time         `json:"lastCheckAt,omitempty"`
	Maintenance bool               `json:"maintenance,omitempty"`
}

// Overview summarizes every monitor in one response: current engine
// state, last check, and whether a maintenance window covers it now.
func (h *HealthHandler) Overview(w http.ResponseWriter, r *http.Request) {
	monitors, err := h.store.GetMonitors()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list monitors")
		return
	}

	now := time.Now().UTC()
	windows, err := h.store.ActiveMaintenanceWindows(now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load maintenance windows")
		return
	}

	snapshots := h.engine.SnapshotAll()

	out := make([]overviewMonitor, 0, len(monitors))
	counts := map[health.HealthState]int{}
	overall := health.StateUp

	for _, m := range monitors {
		om := overviewMonitor{
			ID:       m.ID,
			Name:     m.Name,
			Protocol: m.Protocol,
			Active:   m.Active,
			State:    health.StateUnknown,
		}
		if stats, ok := snapshots[m.ID]; ok {
			om.State = stats.State
			if !stats.Since.IsZero() {
				since := stats.Since
				om.Since = &since
			}
			if !stats.LastCheckAt.IsZero() {
				at := stats.LastCheckAt
				om.LastCheckAt = &at
			}
		}
		for _, win := range windows {
			if win.Covers(m.ID, now) {
				om.Maintenance = true
				break
			}
		}

		if m.Active {
			counts[om.State]++
			switch {
			case om.State == health.StateDown:
				overall = health.StateDown
			case om.State == health.StateDegraded && overall != health.StateDown:
				overall = health.StateDegraded
			}
		}
		out = append(out, om)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":    overall,
		"monitors": out,
		"counts": map[string]int{
			"up":       counts[health.StateUp],
			"degraded": counts[health.StateDegraded],
			"down":     counts[health.StateDown],
			"unknown":  counts[health.StateUnknown],
		},
	})
}
