package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/verify"
)

func TestTriggerVerification(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-ver", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

	resp := f.do(t, "POST", "/api/monitors/"+mon.ID+"/verify", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", resp.StatusCode)
	}
	var summary verify.Summary
	decodeBody(t, resp, &summary)

	if summary.MonitorID != mon.ID {
		t.Errorf("summary monitorId = %q, want %q", summary.MonitorID, mon.ID)
	}
	if summary.Conclusion != verify.ConclusionGlobalOutage {
		t.Errorf("conclusion = %q", summary.Conclusion)
	}

	f.verifier.mu.Lock()
	calls := len(f.verifier.calls)
	f.verifier.mu.Unlock()
	if calls != 1 {
		t.Errorf("verifier called %d times, want 1", calls)
	}
}

func TestTriggerVerificationErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"queue full", verify.ErrQueueFull, http.StatusServiceUnavailable},
		{"stopped", verify.ErrStopped, http.StatusServiceUnavailable},
		{"canceled", verify.ErrCanceled, http.StatusBadGateway},
		{"provider failure", errors.New("upstream exploded"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			key := mintKey(t, f.store, "ops")
			mon := seedMonitor(t, f.store, db.Monitor{
				ID: "m-err", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
			})
			f.verifier.mu.Lock()
			f.verifier.err = tc.err
			f.verifier.mu.Unlock()

			resp := f.do(t, "POST", "/api/monitors/"+mon.ID+"/verify", nil, key)
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestTriggerVerificationMissingMonitor(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")

	resp := f.do(t, "POST", "/api/monitors/ghost/verify", nil, key)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

// Without a configured verifier the endpoint answers 503 instead of
// panicking on the nil dependency.
func TestTriggerVerificationUnconfigured(t *testing.T) {
	store, err := db.NewStore(db.NewTestConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mon := seedMonitor(t, store, db.Monitor{
		ID: "m-nover", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})

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

	req, _ := http.NewRequest("POST", srv.URL+"/api/monitors/"+mon.ID+"/verify", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

// The engine state passed through shapes the summary level, so the
// handler must read the tracked state rather than assuming down.
func TestTriggerVerificationUsesEngineState(t *testing.T) {
	f := newFixture(t)
	key := mintKey(t, f.store, "ops")
	mon := seedMonitor(t, f.store, db.Monitor{
		ID: "m-state", Name: "web", URL: "https://web.example.com", Protocol: "HTTPS", Active: true,
	})
	f.engine.SeedState(mon.ID, health.StateDegraded, time.Now().UTC().Add(-time.Minute))

	states := make(chan health.HealthState, 1)
	f.verifier.mu.Lock()
	f.verifier.onState = func(s health.HealthState) { states <- s }
	f.verifier.mu.Unlock()

	resp := f.do(t, "POST", "/api/monitors/"+mon.ID+"/verify", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	select {
	case got := <-states:
		if got != health.StateDegraded {
			t.Errorf("verifier saw state %q, want degraded", got)
		}
	default:
		t.Fatal("verifier state not captured")
	}
}
