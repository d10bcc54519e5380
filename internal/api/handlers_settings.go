package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pulsewatch/vigil/internal/db"
)

type SettingsHandler struct {
	store *db.Store
}

func NewSettingsHandler(store *db.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get returns all settings. Values whose key hints at a credential are
// masked; the caller only learns that they are configured.
// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} map[string]string
// @Router       /settings [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	out := make(map[string]string, len(settings))
	for k, v := range settings {
		if isSensitiveKey(k) {
			out[k] = maskValue(v)
		} else {
			out[k] = v
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Update patches settings. Known numeric keys are validated; everything
// else is stored verbatim.
// @Summary      Update settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body map[string]string true "Key-value pairs to update"
// @Success      200  {object} object{status=string}
// @Failure      400  {object} object{error=string} "Invalid value"
// @Router       /settings [patch]
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	for key, val := range body {
		if key == "" || len(key) > 128 {
			writeError(w, http.StatusBadRequest, "invalid setting key")
			return
		}
		if len(val) > maxURLLength {
			writeError(w, http.StatusBadRequest, "value too long for "+key)
			return
		}
		if msg := validateSetting(key, val); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	for key, val := range body {
		if err := h.store.SetSetting(key, val); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save "+key)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// validateSetting checks the keys the server itself interprets.
func validateSetting(key, val string) string {
	switch key {
	case "data_retention_days":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return "data_retention_days must be a positive integer"
		}
	case "notify.cooldown_minutes":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return "notify.cooldown_minutes must be a non-negative integer"
		}
	}
	return ""
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, hint := range []string{"webhook", "secret", "token", "password"} {
		if strings.Contains(k, hint) {
			return true
		}
	}
	return false
}

// maskValue hides all but the edges of a configured credential.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) > 24 {
		return v[:12] + "..." + v[len(v)-4:]
	}
	return "***configured***"
}
