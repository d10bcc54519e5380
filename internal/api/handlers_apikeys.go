package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/vigil/internal/db"
)

type APIKeyHandler struct {
	store  *db.Store
	logger *log.Logger
}

func NewAPIKeyHandler(store *db.Store, logger *log.Logger) *APIKeyHandler {
	return &APIKeyHandler{store: store, logger: logger}
}

// List returns all API keys; only prefixes are stored, never secrets.
// @Summary      List API keys
// @Tags         api-keys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} object{keys=[]db.APIKey}
// @Router       /api-keys [get]
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list keys")
		return
	}
	if keys == nil {
		keys = []db.APIKey{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// Create generates a new API key. The raw key is returned only once.
// @Summary      Create API key
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body object{name=string} true "Key name"
// @Success      200  {object} object{key=string,message=string}
// @Failure      400  {object} object{error=string} "Name is required"
// @Router       /api-keys [post]
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Name) > maxNameLength {
		writeError(w, http.StatusBadRequest, "name too long (max 255 characters)")
		return
	}

	rawKey, err := h.store.CreateAPIKey(req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create key")
		return
	}

	h.logger.Printf("api key %q created from %s", sanitizeLog(req.Name), extractIP(r))

	// The raw key is shown exactly once.
	writeJSON(w, http.StatusOK, map[string]string{
		"key":     rawKey,
		"message": "Key created. Save it now, it will not be shown again.",
	})
}

// Delete revokes an API key.
// @Summary      Delete API key
// @Tags         api-keys
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Key ID"
// @Success      200  {object} object{message=string}
// @Failure      404  {object} object{error=string} "Key not found"
// @Router       /api-keys/{id} [delete]
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteAPIKey(id); err != nil {
		if errors.Is(err, db.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete key")
		return
	}

	h.logger.Printf("api key %s revoked from %s", sanitizeLog(id), extractIP(r))
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
