package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/verify"
)

// maxNameLength bounds monitor and window titles.
const maxNameLength = 255

// maxURLLength bounds monitor targets and webhook URLs.
const maxURLLength = 2048

// minIntervalSeconds is the tightest probe cadence the API accepts.
const minIntervalSeconds = 10

type MonitorHandler struct {
	store *db.Store
	sched Scheduler
}

func NewMonitorHandler(store *db.Store, sched Scheduler) *MonitorHandler {
	return &MonitorHandler{store: store, sched: sched}
}

// List returns all monitors.
// @Summary      List monitors
// @Tags         monitors
// @Produce      json
// @Success      200  {object} object{monitors=[]db.Monitor}
// @Router       /monitors [get]
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	monitors, err := h.store.GetMonitors()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list monitors")
		return
	}
	if monitors == nil {
		monitors = []db.Monitor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"monitors": monitors})
}

// Get returns a single monitor.
// @Summary      Get monitor
// @Tags         monitors
// @Produce      json
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} db.Monitor
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id} [get]
func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	mon, ok := h.loadMonitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mon)
}

type monitorRequest struct {
	Name                string `json:"name"`
	URL                 string `json:"url"`
	Protocol            string `json:"protocol"`
	Interval            int    `json:"interval"`
	Timeout             int    `json:"timeout"`
	AlertThreshold      int    `json:"alertThreshold"`
	DegradedThresholdMs *int64 `json:"degradedThresholdMs"`
	ExpectedResponseMs  *int64 `json:"expectedResponseMs"`
	ExpectedStatus      *int   `json:"expectedStatus"`
	Keyword             string `json:"keyword"`
	SSLExpiryDays       *int   `json:"sslExpiryDays"`
}

// Create registers a new monitor and schedules it immediately.
// @Summary      Create monitor
// @Tags         monitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body monitorRequest true "Monitor payload"
// @Success      201  {object} db.Monitor
// @Failure      400  {object} object{error=string} "Validation error"
// @Router       /monitors [post]
func (h *MonitorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mon := db.Monitor{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		URL:                 req.URL,
		Protocol:            normalizeProtocol(req.Protocol),
		Active:              true,
		Interval:            req.Interval,
		Timeout:             req.Timeout,
		AlertThreshold:      req.AlertThreshold,
		DegradedThresholdMs: req.DegradedThresholdMs,
		ExpectedResponseMs:  req.ExpectedResponseMs,
		ExpectedStatus:      req.ExpectedStatus,
		Keyword:             req.Keyword,
		SSLExpiryDays:       req.SSLExpiryDays,
	}
	if mon.Interval == 0 {
		mon.Interval = 60
	}
	if mon.Timeout == 0 {
		mon.Timeout = 10
	}

	if msg := validateMonitor(mon); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.CreateMonitor(mon); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create monitor")
		return
	}

	// Schedule without waiting for the next sync tick.
	h.sched.Sync()
	writeJSON(w, http.StatusCreated, mon)
}

// Update replaces the mutable fields of a monitor. Omitted fields keep
// their current value.
// @Summary      Update monitor
// @Tags         monitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Monitor ID"
// @Param        body body object true "Fields to update"
// @Success      200  {object} db.Monitor
// @Failure      400  {object} object{error=string} "Validation error"
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id} [put]
func (h *MonitorHandler) Update(w http.ResponseWriter, r *http.Request) {
	mon, ok := h.loadMonitor(w, r)
	if !ok {
		return
	}

	var req struct {
		Name                *string `json:"name"`
		URL                 *string `json:"url"`
		Protocol            *string `json:"protocol"`
		Interval            *int    `json:"interval"`
		Timeout             *int    `json:"timeout"`
		AlertThreshold      *int    `json:"alertThreshold"`
		DegradedThresholdMs *int64  `json:"degradedThresholdMs"`
		ExpectedResponseMs  *int64  `json:"expectedResponseMs"`
		ExpectedStatus      *int    `json:"expectedStatus"`
		Keyword             *string `json:"keyword"`
		SSLExpiryDays       *int    `json:"sslExpiryDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		mon.Name = *req.Name
	}
	if req.URL != nil {
		mon.URL = *req.URL
	}
	if req.Protocol != nil {
		mon.Protocol = normalizeProtocol(*req.Protocol)
	}
	if req.Interval != nil {
		mon.Interval = *req.Interval
	}
	if req.Timeout != nil {
		mon.Timeout = *req.Timeout
	}
	if req.AlertThreshold != nil {
		mon.AlertThreshold = *req.AlertThreshold
	}
	if req.DegradedThresholdMs != nil {
		mon.DegradedThresholdMs = req.DegradedThresholdMs
	}
	if req.ExpectedResponseMs != nil {
		mon.ExpectedResponseMs = req.ExpectedResponseMs
	}
	if req.ExpectedStatus != nil {
		mon.ExpectedStatus = req.ExpectedStatus
	}
	if req.Keyword != nil {
		mon.Keyword = *req.Keyword
	}
	if req.SSLExpiryDays != nil {
		mon.SSLExpiryDays = req.SSLExpiryDays
	}

	if msg := validateMonitor(mon); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.UpdateMonitor(mon); err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update monitor")
		return
	}

	h.sched.Sync()
	writeJSON(w, http.StatusOK, mon)
}

// Delete removes a monitor together with its history.
// @Summary      Delete monitor
// @Tags         monitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} object{message=string}
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id} [delete]
func (h *MonitorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteMonitor(id); err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete monitor")
		return
	}
	h.sched.RemoveMonitor(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "monitor deleted"})
}

// Pause stops checking a monitor without deleting it.
// @Summary      Pause monitor
// @Tags         monitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} object{message=string,active=bool}
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id}/pause [post]
func (h *MonitorHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false, "monitor paused")
}

// Resume restarts checking a paused monitor.
// @Summary      Resume monitor
// @Tags         monitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Monitor ID"
// @Success      200  {object} object{message=string,active=bool}
// @Failure      404  {object} object{error=string} "Monitor not found"
// @Router       /monitors/{id}/resume [post]
func (h *MonitorHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true, "monitor resumed")
}

func (h *MonitorHandler) setActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	id := chi.URLParam(r, "id")
	if err := h.store.SetMonitorActive(id, active); err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update monitor")
		return
	}
	h.sched.Sync()
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "active": active})
}

// Checks returns recent raw probe results, newest first.
func (h *MonitorHandler) Checks(w http.ResponseWriter, r *http.Request) {
	mon, ok := h.loadMonitor(w, r)
	if !ok {
		return
	}
	checks, err := h.store.GetMonitorChecks(mon.ID, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch checks")
		return
	}
	if checks == nil {
		checks = []db.Check{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checks": checks})
}

// Transitions returns confirmed state changes, newest first.
func (h *MonitorHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	mon, ok := h.loadMonitor(w, r)
	if !ok {
		return
	}
	transitions, err := h.store.GetTransitions(mon.ID, queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch transitions")
		return
	}
	if transitions == nil {
		transitions = []db.Transition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (h *MonitorHandler) loadMonitor(w http.ResponseWriter, r *http.Request) (db.Monitor, bool) {
	id := chi.URLParam(r, "id")
	mon, err := h.store.GetMonitor(id)
	if err != nil {
		if errors.Is(err, db.ErrMonitorNotFound) {
			writeError(w, http.StatusNotFound, "monitor not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load monitor")
		}
		return db.Monitor{}, false
	}
	return mon, true
}

func normalizeProtocol(p string) string {
	p = strings.ToUpper(strings.TrimSpace(p))
	if p == "" {
		return string(health.ProtoHTTP)
	}
	return p
}

// validateMonitor returns an error message suitable for a 400 response,
// or "" when the row is acceptable.
func validateMonitor(m db.Monitor) string {
	if m.Name == "" || m.URL == "" {
		return "name and url are required"
	}
	if len(m.Name) > maxNameLength {
		return "name too long (max 255 characters)"
	}
	if len(m.URL) > maxURLLength {
		return "url too long (max 2048 characters)"
	}
	if m.Interval < minIntervalSeconds {
		return "interval must be at least 10 seconds"
	}
	if m.Timeout < 1 {
		return "timeout must be at least 1 second"
	}
	if m.AlertThreshold < 0 {
		return "alertThreshold cannot be negative"
	}
	if m.SSLExpiryDays != nil && *m.SSLExpiryDays < 1 {
		return "sslExpiryDays must be positive"
	}

	switch health.Protocol(m.Protocol) {
	case health.ProtoHTTP, health.ProtoHTTPS:
		u, err := url.ParseRequestURI(m.URL)
		if err != nil {
			return "invalid url format"
		}
		// Only http and https schemes; anything else opens SSRF vectors.
		if u.Scheme != "http" && u.Scheme != "https" {
			return "only http and https urls are allowed"
		}
	case health.ProtoTCP, health.ProtoUDP, health.ProtoDNS, health.ProtoPing, health.ProtoSMTP, health.ProtoSSL:
		// The verification mapper applies the same host parsing the
		// probers use, so it doubles as validation.
		if _, err := verify.MapTarget(m); err != nil {
			return "invalid target for protocol " + m.Protocol
		}
	default:
		return "unsupported protocol " + m.Protocol
	}
	return ""
}

// queryLimit parses ?limit= with a default and a hard cap.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 1000 {
		return 1000
	}
	return n
}
