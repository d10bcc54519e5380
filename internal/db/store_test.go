package db

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndGetMonitor(t *testing.T) {
	s := newTestStore(t)

	threshold := int64(800)
	m := Monitor{
		ID:                  "m1",
		Name:                "Test Monitor",
		URL:                 "http://example.com",
		Protocol:            "HTTP",
		Active:              true,
		Interval:            120,
		Timeout:             10,
		AlertThreshold:      3,
		DegradedThresholdMs: &threshold,
		Keyword:             "welcome",
	}
	if err := s.CreateMonitor(m); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	got, err := s.GetMonitor("m1")
	if err != nil {
		t.Fatalf("GetMonitor failed: %v", err)
	}
	if got.Name != "Test Monitor" {
		t.Errorf("Expected name 'Test Monitor', got %q", got.Name)
	}
	if got.Interval != 120 {
		t.Errorf("Expected interval 120, got %d", got.Interval)
	}
	if got.DegradedThresholdMs == nil || *got.DegradedThresholdMs != 800 {
		t.Errorf("Degraded threshold not persisted: %v", got.DegradedThresholdMs)
	}
	if got.ExpectedStatus != nil {
		t.Errorf("Expected nil expected status, got %v", *got.ExpectedStatus)
	}
	if got.Keyword != "welcome" {
		t.Errorf("Keyword not persisted, got %q", got.Keyword)
	}

	if _, err := s.GetMonitor("missing"); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("Expected ErrMonitorNotFound, got %v", err)
	}
}

func TestUpdateMonitor(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "Old", URL: "http://old.com", Protocol: "HTTP", Interval: 60}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	status := 201
	upd := Monitor{
		ID:             "m1",
		Name:           "New Name",
		URL:            "http://new.com",
		Protocol:       "HTTPS",
		Interval:       300,
		Timeout:        15,
		AlertThreshold: 2,
		ExpectedStatus: &status,
	}
	if err := s.UpdateMonitor(upd); err != nil {
		t.Fatalf("UpdateMonitor failed: %v", err)
	}

	got, _ := s.GetMonitor("m1")
	if got.Name != "New Name" {
		t.Errorf("Name not updated, got %q", got.Name)
	}
	if got.Protocol != "HTTPS" {
		t.Errorf("Protocol not updated, got %q", got.Protocol)
	}
	if got.Interval != 300 {
		t.Errorf("Interval not updated, got %d", got.Interval)
	}
	if got.ExpectedStatus == nil || *got.ExpectedStatus != 201 {
		t.Errorf("Expected status not updated: %v", got.ExpectedStatus)
	}
	if got.UpdatedAt == nil {
		t.Error("UpdatedAt should be set after update")
	}

	if err := s.UpdateMonitor(Monitor{ID: "missing", Name: "x", URL: "y"}); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("Expected ErrMonitorNotFound, got %v", err)
	}
}

func TestSetMonitorActive(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP", Active: true}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	if err := s.SetMonitorActive("m1", false); err != nil {
		t.Fatalf("SetMonitorActive failed: %v", err)
	}
	got, _ := s.GetMonitor("m1")
	if got.Active {
		t.Error("Monitor should be paused")
	}

	if err := s.SetMonitorActive("m1", true); err != nil {
		t.Fatalf("SetMonitorActive failed: %v", err)
	}
	got, _ = s.GetMonitor("m1")
	if !got.Active {
		t.Error("Monitor should be active again")
	}
}

func TestDeleteMonitorCascades(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}
	now := time.Now().UTC()
	err := s.InsertChecks([]Check{
		{MonitorID: "m1", State: "up", Success: true, LatencyMs: 42, StatusCode: 200, CheckedAt: now},
	})
	if err != nil {
		t.Fatalf("InsertChecks failed: %v", err)
	}
	if err := s.InsertTransition(Transition{MonitorID: "m1", From: "unknown", To: "up", OccurredAt: now}); err != nil {
		t.Fatalf("InsertTransition failed: %v", err)
	}

	if err := s.DeleteMonitor("m1"); err != nil {
		t.Fatalf("DeleteMonitor failed: %v", err)
	}

	checks, _ := s.GetMonitorChecks("m1", 10)
	if len(checks) != 0 {
		t.Errorf("Expected checks to cascade delete, got %d", len(checks))
	}
	transitions, _ := s.GetTransitions("m1", 10)
	if len(transitions) != 0 {
		t.Errorf("Expected transitions to cascade delete, got %d", len(transitions))
	}
}

func TestInsertAndGetChecks(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	var batch []Check
	for i := 0; i < 5; i++ {
		batch = append(batch, Check{
			MonitorID:  "m1",
			State:      "up",
			Success:    true,
			LatencyMs:  int64(100 + i),
			StatusCode: 200,
			CheckedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	batch[4].State = "down"
	batch[4].Success = false
	batch[4].ErrorKind = "TIMEOUT"
	batch[4].ErrorMsg = "context deadline exceeded"
	if err := s.InsertChecks(batch); err != nil {
		t.Fatalf("InsertChecks failed: %v", err)
	}

	checks, err := s.GetMonitorChecks("m1", 3)
	if err != nil {
		t.Fatalf("GetMonitorChecks failed: %v", err)
	}
	if len(checks) != 3 {
		t.Fatalf("Expected 3 checks, got %d", len(checks))
	}
	if checks[0].State != "down" || checks[0].ErrorKind != "TIMEOUT" {
		t.Errorf("Expected newest check first, got %+v", checks[0])
	}
	if checks[0].CheckedAt.Before(checks[1].CheckedAt) {
		t.Error("Checks should be ordered newest first")
	}

	since, err := s.GetChecksSince("m1", base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("GetChecksSince failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("Expected 2 checks since cutoff, got %d", len(since))
	}
	if len(since) == 2 && since[0].CheckedAt.After(since[1].CheckedAt) {
		t.Error("GetChecksSince should be ordered oldest first")
	}
}

func TestSetCheckVerification(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}
	err := s.InsertChecks([]Check{
		{ID: "c1", MonitorID: "m1", State: "down", CheckedAt: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("InsertChecks failed: %v", err)
	}

	payload := `{"conclusion":"Global outage","upCount":0,"totalCount":3}`
	if err := s.SetCheckVerification("c1", payload); err != nil {
		t.Fatalf("SetCheckVerification failed: %v", err)
	}
	checks, err := s.GetMonitorChecks("m1", 1)
	if err != nil {
		t.Fatalf("GetMonitorChecks failed: %v", err)
	}
	if len(checks) != 1 || checks[0].Verification != payload {
		t.Errorf("Expected verification on check, got %+v", checks)
	}

	if err := s.SetCheckVerification("missing", "{}"); !errors.Is(err, ErrCheckNotFound) {
		t.Errorf("Expected ErrCheckNotFound, got %v", err)
	}
}

func TestPruneChecks(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	now := time.Now().UTC()
	err := s.InsertChecks([]Check{
		{MonitorID: "m1", State: "up", Success: true, CheckedAt: now.Add(-48 * time.Hour)},
		{MonitorID: "m1", State: "up", Success: true, CheckedAt: now.Add(-2 * time.Hour)},
		{MonitorID: "m1", State: "up", Success: true, CheckedAt: now},
	})
	if err != nil {
		t.Fatalf("InsertChecks failed: %v", err)
	}

	pruned, err := s.PruneChecks(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneChecks failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned row, got %d", pruned)
	}
	checks, _ := s.GetMonitorChecks("m1", 10)
	if len(checks) != 2 {
		t.Errorf("Expected 2 remaining checks, got %d", len(checks))
	}
}

func TestUptimeStats(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	now := time.Now().UTC()
	var batch []Check
	// Three successes and one failure inside the last day.
	for i := 0; i < 3; i++ {
		batch = append(batch, Check{MonitorID: "m1", State: "up", Success: true, CheckedAt: now.Add(-time.Duration(i+1) * time.Hour)})
	}
	batch = append(batch, Check{MonitorID: "m1", State: "down", Success: false, CheckedAt: now.Add(-5 * time.Hour)})
	// One old success outside the daily window but inside the month.
	batch = append(batch, Check{MonitorID: "m1", State: "up", Success: true, CheckedAt: now.Add(-72 * time.Hour)})
	if err := s.InsertChecks(batch); err != nil {
		t.Fatalf("InsertChecks failed: %v", err)
	}

	stats, err := s.GetUptimeStats("m1")
	if err != nil {
		t.Fatalf("GetUptimeStats failed: %v", err)
	}
	if stats.Day != 75 {
		t.Errorf("Expected 75%% daily uptime, got %.2f", stats.Day)
	}
	if stats.Week != 80 {
		t.Errorf("Expected 80%% weekly uptime, got %.2f", stats.Week)
	}
	if stats.TotalChecks != 5 {
		t.Errorf("Expected 5 total checks, got %d", stats.TotalChecks)
	}
}

func TestTransitions(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateMonitor(Monitor{ID: "m1", Name: "M", URL: "http://x", Protocol: "HTTP"}); err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}

	last, err := s.LastTransition("m1")
	if err != nil {
		t.Fatalf("LastTransition failed: %v", err)
	}
	if last != nil {
		t.Errorf("Expected nil last transition, got %+v", last)
	}

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	seq := []Transition{
		{MonitorID: "m1", From: "unknown", To: "up", Reason: "recovered", OccurredAt: base},
		{MonitorID: "m1", From: "up", To: "degraded", Reason: "slow", OccurredAt: base.Add(time.Minute)},
		{MonitorID: "m1", From: "degraded", To: "down", Reason: "timeout", OccurredAt: base.Add(2 * time.Minute)},
	}
	for _, tr := range seq {
		if err := s.InsertTransition(tr); err != nil {
			t.Fatalf("InsertTransition failed: %v", err)
		}
	}

	got, err := s.GetTransitions("m1", 10)
	if err != nil {
		t.Fatalf("GetTransitions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 transitions, got %d", len(got))
	}
	if got[0].To != "down" {
		t.Errorf("Expected newest transition first, got %+v", got[0])
	}

	last, err = s.LastTransition("m1")
	if err != nil {
		t.Fatalf("LastTransition failed: %v", err)
	}
	if last == nil || last.To != "down" || last.Reason != "timeout" {
		t.Errorf("Unexpected last transition: %+v", last)
	}

	recent, err := s.GetRecentTransitions(2)
	if err != nil {
		t.Fatalf("GetRecentTransitions failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Expected 2 recent transitions, got %d", len(recent))
	}
}

func TestRebind(t *testing.T) {
	s := &Store{dialect: DialectPostgres}
	got := s.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("rebind postgres: got %q, want %q", got, want)
	}

	s = &Store{dialect: DialectSQLite}
	q := "SELECT * FROM t WHERE a = ?"
	if got := s.rebind(q); got != q {
		t.Errorf("rebind sqlite should be a no-op, got %q", got)
	}
}
