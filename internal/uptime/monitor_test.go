package uptime

import (
	"testing"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
)

func testRow(id string) db.Monitor {
	return db.Monitor{
		ID:        id,
		Name:      "Test Monitor",
		URL:       "http://example.com",
		Protocol:  "HTTP",
		Active:    true,
		Interval:  60,
		Timeout:   10,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMonitorRecordKeepsDepth(t *testing.T) {
	jobQueue := make(chan Job, 1)
	m := newMonitor(testRow("m1"), jobQueue, 50)

	for i := 0; i < 55; i++ {
		m.Record(health.CheckSample{MonitorID: "m1", Success: true, LatencyMs: int64(100 + i)})
	}

	history := m.History()
	if len(history) != 50 {
		t.Fatalf("Expected history length 50, got %d", len(history))
	}
	// FIFO: entries 5..54 remain.
	if history[0].LatencyMs != 105 {
		t.Errorf("Expected first latency 105, got %d", history[0].LatencyMs)
	}
	if history[49].LatencyMs != 154 {
		t.Errorf("Expected last latency 154, got %d", history[49].LatencyMs)
	}
}

func TestMonitorSeedHistoryTrims(t *testing.T) {
	jobQueue := make(chan Job, 1)
	m := newMonitor(testRow("m1"), jobQueue, 3)

	samples := []health.CheckSample{
		{LatencyMs: 1}, {LatencyMs: 2}, {LatencyMs: 3}, {LatencyMs: 4}, {LatencyMs: 5},
	}
	m.seedHistory(samples)

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("Expected 3 seeded samples, got %d", len(history))
	}
	if history[0].LatencyMs != 3 || history[2].LatencyMs != 5 {
		t.Errorf("Expected newest 3 samples kept, got %+v", history)
	}
}

func TestMonitorLastSample(t *testing.T) {
	jobQueue := make(chan Job, 1)
	m := newMonitor(testRow("m1"), jobQueue, 50)

	if _, ok := m.LastSample(); ok {
		t.Error("Expected no last sample on a fresh monitor")
	}

	m.Record(health.CheckSample{Success: true, LatencyMs: 12})
	m.Record(health.CheckSample{Success: false, LatencyMs: 90, ErrorKind: health.ErrTimeout})

	last, ok := m.LastSample()
	if !ok {
		t.Fatal("Expected a last sample")
	}
	if last.Success || last.ErrorKind != health.ErrTimeout {
		t.Errorf("Expected newest sample, got %+v", last)
	}
}

func TestMonitorTargetAndPolicy(t *testing.T) {
	row := testRow("m1")
	status := 204
	degraded := int64(750)
	row.Protocol = "HTTPS"
	row.Keyword = "ok"
	row.ExpectedStatus = &status
	row.DegradedThresholdMs = &degraded
	row.AlertThreshold = 4

	m := newMonitor(row, make(chan Job, 1), 50)

	target := m.Target()
	if target.MonitorID != "m1" || target.URL != row.URL {
		t.Errorf("Target identity wrong: %+v", target)
	}
	if target.Protocol != health.ProtoHTTPS {
		t.Errorf("Target protocol = %s, want HTTPS", target.Protocol)
	}
	if target.Timeout != 10*time.Second {
		t.Errorf("Target timeout = %s, want 10s", target.Timeout)
	}
	if target.Keyword != "ok" {
		t.Errorf("Target keyword = %q", target.Keyword)
	}

	policy := m.Policy()
	if policy.ID != "m1" || policy.Protocol != health.ProtoHTTPS {
		t.Errorf("Policy identity wrong: %+v", policy)
	}
	if policy.ExpectedStatus == nil || *policy.ExpectedStatus != 204 {
		t.Errorf("Policy expected status = %v", policy.ExpectedStatus)
	}
	if policy.DegradedThresholdMs == nil || *policy.DegradedThresholdMs != 750 {
		t.Errorf("Policy degraded threshold = %v", policy.DegradedThresholdMs)
	}
	if policy.AlertThreshold != 4 {
		t.Errorf("Policy alert threshold = %d", policy.AlertThreshold)
	}
}

func TestMonitorDefaultsOnBadRow(t *testing.T) {
	row := testRow("m1")
	row.Interval = 0
	row.Timeout = 0
	row.CreatedAt = time.Time{}

	before := time.Now()
	m := newMonitor(row, make(chan Job, 1), 0)
	after := time.Now()

	if m.Interval() != time.Minute {
		t.Errorf("Expected default interval 1m, got %s", m.Interval())
	}
	if m.timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %s", m.timeout)
	}
	if m.depth != 50 {
		t.Errorf("Expected default depth 50, got %d", m.depth)
	}
	if m.createdAt.Before(before) || m.createdAt.After(after) {
		t.Errorf("Expected createdAt ~now, got %v", m.createdAt)
	}
	if m.LastState() != health.StateUnknown {
		t.Errorf("Fresh monitor state = %s, want unknown", m.LastState())
	}
}

func TestMonitorScheduling(t *testing.T) {
	jobQueue := make(chan Job, 10)
	row := testRow("m1")
	row.Interval = 1 // floor is 1s via newMonitor when below
	m := newMonitor(row, jobQueue, 50)
	m.interval = 10 * time.Millisecond

	go m.Start()
	defer m.Stop()

	timeout := time.After(500 * time.Millisecond)
	jobs := 0
loop:
	for {
		select {
		case job := <-jobQueue:
			if job.MonitorID != "m1" {
				t.Fatalf("Job for wrong monitor: %s", job.MonitorID)
			}
			if job.Target.Protocol != health.ProtoHTTP {
				t.Fatalf("Job target protocol = %s", job.Target.Protocol)
			}
			m.endTick()
			jobs++
			if jobs >= 3 {
				break loop
			}
		case <-timeout:
			t.Fatalf("Timeout waiting for scheduled jobs, got %d", jobs)
		}
	}
}

func TestMonitorSkipsTickWhileInFlight(t *testing.T) {
	jobQueue := make(chan Job, 10)
	m := newMonitor(testRow("m1"), jobQueue, 50)

	m.schedule()
	if len(jobQueue) != 1 {
		t.Fatalf("Expected 1 queued job, got %d", len(jobQueue))
	}

	// The first evaluation has not finished; further ticks are skipped.
	m.schedule()
	m.schedule()
	if len(jobQueue) != 1 {
		t.Errorf("Expected in-flight tick to be skipped, queue has %d", len(jobQueue))
	}

	<-jobQueue
	m.endTick()

	m.schedule()
	if len(jobQueue) != 1 {
		t.Errorf("Expected tick after endTick, queue has %d", len(jobQueue))
	}
}

func TestMonitorQueueFullReleasesTick(t *testing.T) {
	jobQueue := make(chan Job) // unbuffered, nothing reading
	m := newMonitor(testRow("m1"), jobQueue, 50)

	m.schedule() // dropped: queue full
	m.mu.RLock()
	inFlight := m.inFlight
	m.mu.RUnlock()
	if inFlight {
		t.Error("Dropped tick must not leave the monitor in flight")
	}
}

func TestMonitorScheduleSurvivesClosedQueue(t *testing.T) {
	jobQueue := make(chan Job, 1)
	m := newMonitor(testRow("m1"), jobQueue, 50)
	close(jobQueue)

	// Shutdown race: scheduling into a closed queue must not panic.
	m.schedule()
}

func TestSpecEquals(t *testing.T) {
	base := testRow("m1")
	m := newMonitor(base, make(chan Job, 1), 50)

	if !m.specEquals(base) {
		t.Error("Identical row should match")
	}

	renamed := base
	renamed.Name = "New Name"
	if !m.specEquals(renamed) {
		t.Error("A rename alone should not force a restart")
	}

	threshold := int64(500)
	cases := []struct {
		name string
		mod  func(r *db.Monitor)
	}{
		{"url", func(r *db.Monitor) { r.URL = "http://other.com" }},
		{"protocol", func(r *db.Monitor) { r.Protocol = "TCP" }},
		{"interval", func(r *db.Monitor) { r.Interval = 120 }},
		{"timeout", func(r *db.Monitor) { r.Timeout = 5 }},
		{"keyword", func(r *db.Monitor) { r.Keyword = "error" }},
		{"alertThreshold", func(r *db.Monitor) { r.AlertThreshold = 9 }},
		{"degradedThreshold", func(r *db.Monitor) { r.DegradedThresholdMs = &threshold }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := base
			tc.mod(&row)
			if m.specEquals(row) {
				t.Errorf("Change to %s should force a restart", tc.name)
			}
		})
	}
}

func TestAlignDelay(t *testing.T) {
	interval := 60 * time.Second

	tests := []struct {
		name      string
		createdAt time.Time
		now       time.Time
		want      time.Duration
	}{
		{
			name:      "exactly on aligned tick",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 1, 1, 0, 3, 0, 0, time.UTC), // 3 intervals later
			want:      0,
		},
		{
			name:      "half interval elapsed",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 1, 1, 0, 2, 30, 0, time.UTC), // 2.5 intervals
			want:      30 * time.Second,
		},
		{
			name:      "quarter interval elapsed",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 1, 1, 0, 0, 15, 0, time.UTC), // 0.25 intervals
			want:      45 * time.Second,
		},
		{
			name:      "just after creation",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC), // 1 second after
			want:      59 * time.Second,
		},
		{
			name:      "now equals createdAt",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alignDelay(tt.createdAt, interval, tt.now)
			if got != tt.want {
				t.Errorf("alignDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlignDelayDifferentIntervals(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// 30-second interval, 45 seconds elapsed: 15s until next tick.
	got := alignDelay(createdAt, 30*time.Second, createdAt.Add(45*time.Second))
	if got != 15*time.Second {
		t.Errorf("30s interval: got %v, want 15s", got)
	}

	// 5-minute interval, 7.5 minutes elapsed: 2.5 minutes until next tick.
	got = alignDelay(createdAt, 5*time.Minute, createdAt.Add(7*time.Minute+30*time.Second))
	if got != 2*time.Minute+30*time.Second {
		t.Errorf("5m interval: got %v, want 2m30s", got)
	}
}
