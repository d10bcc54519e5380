package db

import (
	"testing"
	"time"
)

// TestMultiDB_MonitorCRUD exercises monitor operations on every
// configured backend.
func TestMultiDB_MonitorCRUD(t *testing.T) {
	RunTestWithBothDBs(t, "MonitorCRUD", func(t *testing.T, s *Store) {
		m := Monitor{
			ID:       "m1",
			Name:     "Test Monitor",
			URL:      "https://example.com",
			Protocol: "HTTPS",
			Active:   true,
			Interval: 60,
		}
		if err := s.CreateMonitor(m); err != nil {
			t.Fatalf("CreateMonitor failed: %v", err)
		}

		monitors, err := s.GetMonitors()
		if err != nil {
			t.Fatalf("GetMonitors failed: %v", err)
		}
		if len(monitors) != 1 {
			t.Fatalf("Expected 1 monitor, got %d", len(monitors))
		}
		if monitors[0].Name != "Test Monitor" {
			t.Errorf("Expected 'Test Monitor', got %q", monitors[0].Name)
		}

		m.Name = "Updated Monitor"
		m.Interval = 120
		if err := s.UpdateMonitor(m); err != nil {
			t.Fatalf("UpdateMonitor failed: %v", err)
		}
		got, _ := s.GetMonitor("m1")
		if got.Name != "Updated Monitor" || got.Interval != 120 {
			t.Errorf("Update not applied: %+v", got)
		}

		if err := s.DeleteMonitor("m1"); err != nil {
			t.Fatalf("DeleteMonitor failed: %v", err)
		}
		monitors, _ = s.GetMonitors()
		if len(monitors) != 0 {
			t.Errorf("Expected 0 monitors after delete, got %d", len(monitors))
		}
	})
}

// TestMultiDB_ChecksAndTransitions verifies the placeholder rebinding
// used by the batched insert paths on every backend.
func TestMultiDB_ChecksAndTransitions(t *testing.T) {
	RunTestWithBothDBs(t, "ChecksAndTransitions", func(t *testing.T, s *Store) {
		if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
			t.Fatalf("CreateMonitor failed: %v", err)
		}

		now := time.Now().UTC().Truncate(time.Second)
		err := s.InsertChecks([]Check{
			{MonitorID: "m1", State: "up", Success: true, LatencyMs: 10, StatusCode: 200, CheckedAt: now.Add(-time.Minute)},
			{MonitorID: "m1", State: "down", Success: false, ErrorKind: "TIMEOUT", CheckedAt: now},
		})
		if err != nil {
			t.Fatalf("InsertChecks failed: %v", err)
		}

		checks, err := s.GetMonitorChecks("m1", 10)
		if err != nil {
			t.Fatalf("GetMonitorChecks failed: %v", err)
		}
		if len(checks) != 2 {
			t.Fatalf("Expected 2 checks, got %d", len(checks))
		}

		if err := s.InsertTransition(Transition{MonitorID: "m1", From: "up", To: "down", Reason: "timeout", OccurredAt: now}); err != nil {
			t.Fatalf("InsertTransition failed: %v", err)
		}
		last, err := s.LastTransition("m1")
		if err != nil {
			t.Fatalf("LastTransition failed: %v", err)
		}
		if last == nil || last.To != "down" {
			t.Errorf("Unexpected last transition: %+v", last)
		}
	})
}

// TestMultiDB_Incidents exercises the nullable ended_at handling on
// every backend.
func TestMultiDB_Incidents(t *testing.T) {
	RunTestWithBothDBs(t, "Incidents", func(t *testing.T, s *Store) {
		if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
			t.Fatalf("CreateMonitor failed: %v", err)
		}

		inc, err := s.CreateIncident(Incident{MonitorID: "m1", Severity: "down", Cause: "refused"})
		if err != nil {
			t.Fatalf("CreateIncident failed: %v", err)
		}

		ongoing, err := s.FindOngoingIncident("m1")
		if err != nil {
			t.Fatalf("FindOngoingIncident failed: %v", err)
		}
		if ongoing.ID != inc.ID {
			t.Errorf("Expected %s, got %s", inc.ID, ongoing.ID)
		}

		if err := s.ResolveIncident(inc.ID, time.Now().UTC()); err != nil {
			t.Fatalf("ResolveIncident failed: %v", err)
		}
		got, _ := s.GetIncident(inc.ID)
		if got.EndedAt == nil {
			t.Error("EndedAt should be set after resolve")
		}
	})
}
