package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
)

func TestCreateMonitor(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")

	resp := f.do(t, "POST", "/api/monitors", map[string]any{
		"name":     "api gateway",
		"url":      "https://gw.example.com/health",
		"protocol": "https",
	}, key)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var mon db.Monitor
	decodeBody(t, resp, &mon)

	if mon.ID == "" {
		t.Error("created monitor has empty id")
	}
	if !mon.Active {
		t.Error("created monitor should start active")
	}
	if mon.Protocol != "HTTPS" {
		t.Errorf("protocol = %q, want HTTPS (normalized)", mon.Protocol)
	}
	if mon.Interval != 60 || mon.Timeout != 10 {
		t.Errorf("defaults not applied: interval=%d timeout=%d", mon.Interval, mon.Timeout)
	}
	if f.sched.syncCount() == 0 {
		t.Error("create did not trigger a scheduler sync")
	}

	stored, err := f.store.GetMonitor(mon.ID)
	if err != nil {
		t.Fatalf("monitor not persisted: %v", err)
	}
	if stored.Name != "api gateway" {
		t.Errorf("stored name = %q", stored.Name)
	}
}

func TestCreateMonitorValidation(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"url": "https://a.example.com"}},
		{"missing url", map[string]any{"name": "a"}},
		{"bad scheme", map[string]any{"name": "a", "url": "ftp://a.example.com"}},
		{"file scheme", map[string]any{"name": "a", "url": "file:///etc/passwd"}},
		{"interval too low", map[string]any{"name": "a", "url": "https://a.example.com", "interval": 5}},
		{"negative threshold", map[string]any{"name": "a", "url": "https://a.example.com", "alertThreshold": -1}},
		{"unknown protocol", map[string]any{"name": "a", "url": "a.example.com", "protocol": "GOPHER"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, "POST", "/api/monitors", tc.body, key)
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCreateMonitorNonHTTPTargets(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")

	cases := []struct {
		name     string
		protocol string
		url      string
	}{
		{"tcp host port", "tcp", "db.example.com:5432"},
		{"tcp default port", "tcp", "db.example.com"},
		{"dns bare host", "dns", "example.com"},
		{"ping bare host", "ping", "10.0.0.1"},
		{"smtp host port", "smtp", "mail.example.com:25"},
		{"ssl host port", "ssl", "example.com:443"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, "POST", "/api/monitors", map[string]any{
				"name":     tc.name,
				"url":      tc.url,
				"protocol": tc.protocol,
			}, key)
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("status = %d, want 201", resp.StatusCode)
			}
		})
	}
}

func TestGetMonitor(t *testing.T) {
	f := newFixture(t)
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-get", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

	resp := f.do(t, "GET", "/api/monitors/"+mon.ID, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	var got db.Monitor
	decodeBody(t, resp, &got)
	if got.ID != mon.ID || got.Name != "web" {
		t.Errorf("got %+v", got)
	}

	resp = f.do(t, "GET", "/api/monitors/nope", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing monitor status = %d, want 404", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestListMonitorsEmpty(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/api/monitors", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Monitors []db.Monitor `json:"monitors"`
	}
	decodeBody(t, resp, &out)
	if out.Monitors == nil {
		t.Error("monitors should decode to an empty slice, not null")
	}
	if len(out.Monitors) != 0 {
		t.Errorf("expected no monitors, got %d", len(out.Monitors))
	}
}

func TestUpdateMonitorKeepsOmittedFields(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-upd", Name: "orig", URL: "https://orig.example.com", Protocol: "HTTPS",
		Active: true, Interval: 120, Timeout: 15, AlertThreshold: 3, Keyword: "ok",
	})

	resp := f.do(t, "PUT", "/api/monitors/"+mon.ID, map[string]any{"name": "renamed"}, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	var got db.Monitor
	decodeBody(t, resp, &got)

	if got.Name != "renamed" {
		t.Errorf("name = %q, want renamed", got.Name)
	}
	if got.URL != "https://orig.example.com" || got.Interval != 120 || got.Keyword != "ok" {
		t.Errorf("omitted fields were not preserved: %+v", got)
	}

	resp = f.do(t, "PUT", "/api/monitors/"+mon.ID, map[string]any{"interval": 5}, key)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid update status = %d, want 400", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = f.do(t, "PUT", "/api/monitors/ghost", map[string]any{"name": "x"}, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("update missing monitor status = %d, want 404", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestPauseResumeMonitor(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-pause", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

	resp := f.do(t, "POST", "/api/monitors/"+mon.ID+"/pause", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", resp.StatusCode)
	}
	var out map[string]any
	decodeBody(t, resp, &out)
	if out["active"] != false {
		t.Errorf("pause response active = %v, want false", out["active"])
	}

	stored, err := f.store.GetMonitor(mon.ID)
	if err != nil {
		t.Fatalf("get monitor: %v", err)
	}
	if stored.Active {
		t.Error("monitor still active after pause")
	}

	resp = f.do(t, "POST", "/api/monitors/"+mon.ID+"/resume", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	stored, err = f.store.GetMonitor(mon.ID)
	if err != nil {
		t.Fatalf("get monitor: %v", err)
	}
	if !stored.Active {
		t.Error("monitor not active after resume")
	}

	resp = f.do(t, "POST", "/api/monitors/ghost/pause", nil, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("pause missing monitor status = %d, want 404", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestDeleteMonitor(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-del", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

	resp := f.do(t, "DELETE", "/api/monitors/"+mon.ID, nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	removed := f.sched.removedIDs()
	if len(removed) != 1 || removed[0] != mon.ID {
		t.Errorf("scheduler removals = %v, want [%s]", removed, mon.ID)
	}
	if _, err := f.store.GetMonitor(mon.ID); err == nil {
		t.Error("monitor still present after delete")
	}

	resp = f.do(t, "DELETE", "/api/monitors/"+mon.ID, nil, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestMonitorChecksAndTransitions(t *testing.T) {
	f := newFixture(t)
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-hist", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

	now := time.Now().UTC()
	checks := []db.Check{
		{ID: "c1", MonitorID: mon.ID, State: "up", Success: true, LatencyMs: 42, StatusCode: 200, CheckedAt: now.Add(-2 * time.Minute)},
		{ID: "c2", MonitorID: mon.ID, State: "down", Success: false, LatencyMs: 0, ErrorKind: "timeout", CheckedAt: now.Add(-time.Minute)},
	}
	if err := f.store.InsertChecks(checks); err != nil {
		t.Fatalf("insert checks: %v", err)
	}
	if err := f.store.InsertTransition(db.Transition{
		MonitorID: mon.ID, From: "up", To: "down", Reason: "timeout", OccurredAt: now,
	}); err != nil {
		t.Fatalf("insert transition: %v", err)
	}

	resp := f.do(t, "GET", "/api/monitors/"+mon.ID+"/checks?limit=1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checks status = %d, want 200", resp.StatusCode)
	}
	var ch struct {
		Checks []db.Check `json:"checks"`
	}
	decodeBody(t, resp, &ch)
	if len(ch.Checks) != 1 {
		t.Fatalf("limit=1 returned %d checks", len(ch.Checks))
	}
	if ch.Checks[0].ID != "c2" {
		t.Errorf("newest check = %s, want c2", ch.Checks[0].ID)
	}

	resp = f.do(t, "GET", "/api/monitors/"+mon.ID+"/transitions", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transitions status = %d, want 200", resp.StatusCode)
	}
	var tr struct {
		Transitions []db.Transition `json:"transitions"`
	}
	decodeBody(t, resp, &tr)
	if len(tr.Transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(tr.Transitions))
	}
	if tr.Transitions[0].From != "up" || tr.Transitions[0].To != "down" {
		t.Errorf("transition = %+v", tr.Transitions[0])
	}

	resp = f.do(t, "GET", "/api/monitors/ghost/checks", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("checks for missing monitor = %d, want 404", resp.StatusCode)
	}
	_ = resp.Body.Close()
}
