package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
)

type NotificationChannelsHandler struct {
	store *db.Store
}

func NewNotificationChannelsHandler(store *db.Store) *NotificationChannelsHandler {
	return &NotificationChannelsHandler{store: store}
}

// List returns all notification channels.
func (h *NotificationChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.GetNotificationChannels(false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch channels")
		return
	}
	if channels == nil {
		channels = []db.NotificationChannel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

// Create registers a webhook notification channel.
func (h *NotificationChannelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Target  string `json:"target"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Target == "" {
		writeError(w, http.StatusBadRequest, "name and target are required")
		return
	}
	if len(req.Name) > maxNameLength {
		writeError(w, http.StatusBadRequest, "name too long (max 255 characters)")
		return
	}
	if len(req.Target) > maxURLLength {
		writeError(w, http.StatusBadRequest, "target too long (max 2048 characters)")
		return
	}
	if req.Type == "" {
		req.Type = "webhook"
	}

	// Webhook targets must be plain http(s) URLs.
	parsed, err := url.ParseRequestURI(req.Target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "target must be an http or https url")
		return
	}

	channel, err := h.store.CreateNotificationChannel(db.NotificationChannel{
		Name:    req.Name,
		Type:    req.Type,
		Target:  req.Target,
		Enabled: req.Enabled,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create channel")
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

// Delete removes a notification channel.
func (h *NotificationChannelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteNotificationChannel(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
