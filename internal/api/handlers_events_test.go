package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/event"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
)

func TestRecentEvents(t *testing.T) {
	f := newFixture(t)
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-ev", Name: "checkout", URL: "https://co.example.com", Protocol: "HTTPS", Active: true,
	})

	now := time.Now().UTC()
	if err := f.store.InsertTransition(db.Transition{
		MonitorID: mon.ID, From: "up", To: "down", Reason: "connection refused", OccurredAt: now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("insert transition: %v", err)
	}
	if err := f.store.InsertTransition(db.Transition{
		MonitorID: mon.ID, From: "down", To: "up", Reason: "recovered", OccurredAt: now,
	}); err != nil {
		t.Fatalf("insert transition: %v", err)
	}

	resp := f.do(t, "GET", "/api/events", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Events []struct {
			MonitorID   string `json:"monitorId"`
			MonitorName string `json:"monitorName"`
			From        string `json:"from"`
			To          string `json:"to"`
		} `json:"events"`
	}
	decodeBody(t, resp, &out)

	if len(out.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(out.Events))
	}
	if out.Events[0].To != "up" {
		t.Errorf("newest event to = %q, want up", out.Events[0].To)
	}
	if out.Events[0].MonitorName != "checkout" {
		t.Errorf("monitorName = %q, want checkout", out.Events[0].MonitorName)
	}
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Fail instead of hanging if the stream never delivers.
	timeout := time.AfterFunc(10*time.Second, cancel)
	defer timeout.Stop()

	req, err := http.NewRequestWithContext(ctx, "GET", f.server.URL+"/api/events/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	// Headers are written after the subscription is registered, so a
	// publish from here on is guaranteed to reach this stream.
	published := event.Event{
		ID:        "e-stream",
		MonitorID: "m-live",
		From:      health.StateUp,
		To:        health.StateDown,
		Reason:    "timeout",
		At:        time.Now().UTC(),
	}
	if err := f.hub.Publish(context.Background(), published); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var sawEventLine bool
	var got event.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: transition" {
			sawEventLine = true
			continue
		}
		if strings.HasPrefix(line, "data: ") {
			if err := json.Unmarshal([]byte(line[len("data: "):]), &got); err != nil {
				t.Fatalf("decode event payload: %v", err)
			}
			break
		}
	}

	if !sawEventLine {
		t.Fatal("never saw the event: transition line")
	}
	if got.ID != published.ID || got.MonitorID != published.MonitorID || got.To != published.To {
		t.Errorf("streamed event = %+v, want %+v", got, published)
	}
}

func TestEventStreamUnconfigured(t *testing.T) {
	store, err := db.NewStore(db.NewTestConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	router := NewRouter(Deps{
		Store:  store,
		Sched:  &fakeSched{},
		Engine: health.NewEngine(health.DefaultEngineConfig(), logging.Nop()),
		Config: &cfg,
		Logger: logging.Nop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/api/events/stream")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
