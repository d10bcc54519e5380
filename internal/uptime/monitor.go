package uptime

import (
	"sync"
	"time"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/probe"
)

// Monitor is one scheduled target. It owns its tick loop and an
// in-memory ring of recent samples; classification and confirmation
// happen in the evaluation pipeline, never here.
type Monitor struct {
	row       db.Monitor
	interval  time.Duration
	timeout   time.Duration
	createdAt time.Time

	mu        sync.RWMutex
	history   []health.CheckSample // oldest first
	depth     int
	lastState health.HealthState
	inFlight  bool

	stopCh   chan struct{}
	stopOnce sync.Once
	jobQueue chan<- Job
}

func newMonitor(row db.Monitor, jobQueue chan<- Job, depth int) *Monitor {
	interval := time.Duration(row.Interval) * time.Second
	if interval < time.Second {
		interval = time.Minute
	}
	timeout := time.Duration(row.Timeout) * time.Second
	if timeout < time.Second {
		timeout = 30 * time.Second
	}
	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if depth < 1 {
		depth = 50
	}
	return &Monitor{
		row:       row,
		interval:  interval,
		timeout:   timeout,
		createdAt: createdAt,
		history:   make([]health.CheckSample, 0, depth),
		depth:     depth,
		lastState: health.StateUnknown,
		stopCh:    make(chan struct{}),
		jobQueue:  jobQueue,
	}
}

// alignDelay computes the duration until the next tick aligned to createdAt.
// Checks should fire at createdAt, createdAt+interval, createdAt+2*interval, ...
// At time now, the next aligned tick is interval - ((now - createdAt) mod interval).
func alignDelay(createdAt time.Time, interval time.Duration, now time.Time) time.Duration {
	elapsed := now.Sub(createdAt) % interval
	if elapsed < 0 {
		elapsed += interval // Handle clock skew
	}
	delay := interval - elapsed
	if delay == interval {
		delay = 0 // We're exactly on an aligned tick
	}
	return delay
}

// Start runs the tick loop: one immediate check, then ticks aligned to
// the monitor's creation time. Blocks until Stop.
func (m *Monitor) Start() {
	m.schedule()

	delay := alignDelay(m.createdAt, m.interval, time.Now())
	if delay > 0 {
		alignTimer := time.NewTimer(delay)
		defer alignTimer.Stop()

		select {
		case <-m.stopCh:
			return
		case <-alignTimer.C:
			m.schedule()
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.schedule()
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// schedule enqueues one probe job. A tick is skipped when the previous
// evaluation for this monitor has not finished yet, so at most one
// evaluation per monitor is ever in flight.
func (m *Monitor) schedule() {
	defer func() {
		if r := recover(); r != nil {
			// Send on the closed queue during shutdown.
			_ = r
		}
	}()
	if !m.beginTick() {
		return
	}
	select {
	case m.jobQueue <- Job{MonitorID: m.row.ID, Target: m.Target()}:
	default:
		// Queue full. Drop the tick rather than block the scheduler.
		m.endTick()
	}
}

func (m *Monitor) beginTick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return false
	}
	m.inFlight = true
	return true
}

func (m *Monitor) endTick() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}

// Target builds the probe input from the stored row.
func (m *Monitor) Target() probe.Target {
	return probe.Target{
		MonitorID: m.row.ID,
		URL:       m.row.URL,
		Protocol:  health.Protocol(m.row.Protocol),
		Timeout:   m.timeout,
		Keyword:   m.row.Keyword,
	}
}

// Policy projects the stored row into the engine's per-monitor knobs.
func (m *Monitor) Policy() health.MonitorPolicy {
	return health.MonitorPolicy{
		ID:                     m.row.ID,
		Protocol:               health.Protocol(m.row.Protocol),
		ExpectedStatus:         m.row.ExpectedStatus,
		Keyword:                m.row.Keyword,
		DegradedThresholdMs:    m.row.DegradedThresholdMs,
		ExpectedResponseTimeMs: m.row.ExpectedResponseMs,
		AlertThreshold:         m.row.AlertThreshold,
		SSLExpiryDays:          m.row.SSLExpiryDays,
	}
}

// Record appends one evaluated sample, keeping the latest depth entries.
func (m *Monitor) Record(sample health.CheckSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) >= m.depth {
		m.history = m.history[1:]
	}
	m.history = append(m.history, sample)
}

// History returns a copy of the ring, oldest first.
func (m *Monitor) History() []health.CheckSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dst := make([]health.CheckSample, len(m.history))
	copy(dst, m.history)
	return dst
}

// seedHistory replaces the ring with persisted samples, oldest first.
// Used once during hydration before the monitor starts ticking.
func (m *Monitor) seedHistory(samples []health.CheckSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(samples) > m.depth {
		samples = samples[len(samples)-m.depth:]
	}
	m.history = append(m.history[:0], samples...)
}

// LastState is the most recent confirmed state the pipeline published
// for this monitor.
func (m *Monitor) LastState() health.HealthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastState
}

func (m *Monitor) SetLastState(s health.HealthState) {
	m.mu.Lock()
	m.lastState = s
	m.mu.Unlock()
}

// LastSample returns the newest recorded sample, if any.
func (m *Monitor) LastSample() (health.CheckSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return health.CheckSample{}, false
	}
	return m.history[len(m.history)-1], true
}

func (m *Monitor) ID() string              { return m.row.ID }
func (m *Monitor) Name() string            { return m.row.Name }
func (m *Monitor) URL() string             { return m.row.URL }
func (m *Monitor) Interval() time.Duration { return m.interval }

// Row returns the monitor row this instance was built from.
func (m *Monitor) Row() db.Monitor {
	return m.row
}

// specEquals reports whether the stored row still matches what this
// instance was built from. A mismatch means the monitor must be
// restarted to pick up the new target or schedule.
func (m *Monitor) specEquals(row db.Monitor) bool {
	a, b := m.row, row
	switch {
	case a.URL != b.URL,
		a.Protocol != b.Protocol,
		a.Interval != b.Interval,
		a.Timeout != b.Timeout,
		a.Keyword != b.Keyword,
		a.AlertThreshold != b.AlertThreshold:
		return false
	}
	if !int64PtrEqual(a.DegradedThresholdMs, b.DegradedThresholdMs) ||
		!int64PtrEqual(a.ExpectedResponseMs, b.ExpectedResponseMs) ||
		!intPtrEqual(a.ExpectedStatus, b.ExpectedStatus) ||
		!intPtrEqual(a.SSLExpiryDays, b.SSLExpiryDays) {
		return false
	}
	return true
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
