package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
)

// streamHeartbeat keeps idle SSE connections alive through proxies.
const streamHeartbeat = 25 * time.Second

type EventsHandler struct {
	store  *db.Store
	events EventSource
}

func NewEventsHandler(store *db.Store, events EventSource) *EventsHandler {
	return &EventsHandler{store: store, events: events}
}

type transitionDTO struct {
	db.Transition
	MonitorName string `json:"monitorName,omitempty"`
}

// Recent returns the latest confirmed transitions across all monitors,
// newest first, with monitor names joined in.
func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	transitions, err := h.store.GetRecentTransitions(queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}

	monitors, err := h.store.GetMonitors()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve monitor names")
		return
	}
	names := make(map[string]string, len(monitors))
	for _, m := range monitors {
		names[m.ID] = m.Name
	}

	out := make([]transitionDTO, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, transitionDTO{Transition: t, MonitorName: names[t.MonitorID]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

// Stream pushes live transitions as server-sent events. Each message is
// `event: transition` with the JSON event as data; a comment line goes
// out periodically as a heartbeat.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "live events are not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := h.events.Subscribe(32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
