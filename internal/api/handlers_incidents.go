package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
)

type IncidentHandler struct {
	store *db.Store
}

func NewIncidentHandler(store *db.Store) *IncidentHandler {
	return &IncidentHandler{store: store}
}

type incidentDTO struct {
	db.Incident
	MonitorName string `json:"monitorName,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	Ongoing     bool   `json:"ongoing"`
}

func (h *IncidentHandler) dto(i db.Incident, names map[string]string) incidentDTO {
	return incidentDTO{
		Incident:    i,
		MonitorName: names[i.MonitorID],
		DurationMs:  i.Duration(time.Now().UTC()).Milliseconds(),
		Ongoing:     i.EndedAt == nil,
	}
}

// List returns ongoing incidents plus resolved ones that started inside
// the window. Default window is the trailing 7 days.
// @Summary      List incidents
// @Tags         incidents
// @Produce      json
// @Param        since   query string false "RFC3339 window start"
// @Param        monitor query string false "Filter by monitor ID"
// @Param        limit   query int    false "Max rows (default 100)"
// @Success      200  {object} object{incidents=[]db.Incident}
// @Router       /incidents [get]
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed.UTC()
	}

	incidents, err := h.store.GetIncidents(since, r.URL.Query().Get("monitor"), queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch incidents")
		return
	}

	names, err := h.monitorNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve monitor names")
		return
	}

	out := make([]incidentDTO, 0, len(incidents))
	for _, i := range incidents {
		out = append(out, h.dto(i, names))
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": out})
}

// Get returns one incident including its verification summary.
// @Summary      Get incident
// @Tags         incidents
// @Produce      json
// @Param        id   path string true "Incident ID"
// @Success      200  {object} db.Incident
// @Failure      404  {object} object{error=string} "Incident not found"
// @Router       /incidents/{id} [get]
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	inc, err := h.store.GetIncident(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrIncidentNotFound) {
			writeError(w, http.StatusNotFound, "incident not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load incident")
		return
	}

	names, err := h.monitorNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve monitor names")
		return
	}
	writeJSON(w, http.StatusOK, h.dto(inc, names))
}

func (h *IncidentHandler) monitorNames() (map[string]string, error) {
	monitors, err := h.store.GetMonitors()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(monitors))
	for _, m := range monitors {
		names[m.ID] = m.Name
	}
	return names, nil
}
