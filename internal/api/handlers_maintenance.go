package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
)

type MaintenanceHandler struct {
	store *db.Store
}

func NewMaintenanceHandler(store *db.Store) *MaintenanceHandler {
	return &MaintenanceHandler{store: store}
}

// List returns maintenance windows; ?active=true narrows to windows
// covering the current instant.
// @Summary      List maintenance windows
// @Tags         maintenance
// @Produce      json
// @Param        active query bool false "Only windows active now"
// @Success      200  {object} object{windows=[]db.MaintenanceWindow}
// @Router       /maintenance [get]
func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		windows []db.MaintenanceWindow
		err     error
	)
	if r.URL.Query().Get("active") == "true" {
		windows, err = h.store.ActiveMaintenanceWindows(time.Now().UTC())
	} else {
		windows, err = h.store.GetMaintenanceWindows()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch maintenance windows")
		return
	}
	if windows == nil {
		windows = []db.MaintenanceWindow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

// Create schedules a maintenance window. An empty monitorIds list
// covers every monitor.
// @Summary      Create maintenance window
// @Tags         maintenance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body object{title=string,monitorIds=[]string,startsAt=string,endsAt=string} true "Window payload"
// @Success      201  {object} db.MaintenanceWindow
// @Failure      400  {object} object{error=string} "Validation error"
// @Router       /maintenance [post]
func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string   `json:"title"`
		MonitorIDs []string `json:"monitorIds"`
		StartsAt   string   `json:"startsAt"`
		EndsAt     string   `json:"endsAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Title) > maxNameLength {
		writeError(w, http.StatusBadRequest, "title too long (max 255 characters)")
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startsAt must be RFC3339")
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endsAt must be RFC3339")
		return
	}
	if !endsAt.After(startsAt) {
		writeError(w, http.StatusBadRequest, "endsAt must be after startsAt")
		return
	}

	win, err := h.store.CreateMaintenanceWindow(db.MaintenanceWindow{
		Title:      req.Title,
		MonitorIDs: req.MonitorIDs,
		StartsAt:   startsAt.UTC(),
		EndsAt:     endsAt.UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create maintenance window")
		return
	}
	writeJSON(w, http.StatusCreated, win)
}

// Delete removes a maintenance window.
// @Summary      Delete maintenance window
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Window ID"
// @Success      200  {object} object{message=string}
// @Router       /maintenance/{id} [delete]
func (h *MaintenanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMaintenanceWindow(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete maintenance window")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
