// Package uptime schedules monitors and runs the evaluation pipeline:
// probe workers feed a single result processor that classifies each
// sample, persists it in batches, and fans confirmed transitions out to
// events, incidents, verification and notifications.
package uptime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsewatch/vigil/internal/db"
	"github.com/pulsewatch/vigil/internal/event"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/metrics"
	"github.com/pulsewatch/vigil/internal/notifications"
	"github.com/pulsewatch/vigil/internal/probe"
	"github.com/pulsewatch/vigil/internal/verify"
)

// Job is one probe order handed to the worker pool.
type Job struct {
	MonitorID string
	Target    probe.Target
}

// Verifier triggers multi-location confirmation for a monitor whose
// confirmed state left up.
type Verifier interface {
	TriggerVerification(ctx context.Context, mon db.Monitor, state health.HealthState) (verify.Summary, error)
	Cancel(monitorID string)
}

// Notifier accepts alerts for delivery. Enqueue must not block.
type Notifier interface {
	Enqueue(alert notifications.Alert)
}

// IncidentSink records confirmed transitions as incident opens/resolves.
type IncidentSink interface {
	HandleTransition(d health.HealthDecision) (*db.Incident, error)
}

// Deps are the collaborators the manager fans results out to. Store,
// Engine and Prober are required; the rest may be nil and are skipped.
type Deps struct {
	Store     *db.Store
	Engine    *health.Engine
	Prober    *probe.Prober
	Verifier  Verifier
	Incidents IncidentSink
	Notifier  Notifier
	Events    event.Publisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Options tune the pipeline. Zero values fall back to the defaults.
type Options struct {
	Workers       int
	QueueSize     int
	BatchSize     int
	BatchInterval time.Duration
	SyncInterval  time.Duration
	HistoryDepth  int
	RetentionDays int
}

const (
	DefaultWorkers       = 50
	DefaultQueueSize     = 1000
	DefaultBatchSize     = 50
	DefaultBatchInterval = 2 * time.Second
	DefaultSyncInterval  = 10 * time.Second
	DefaultHistoryDepth  = 50
	DefaultRetentionDays = 90
)

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if o.QueueSize < 1 {
		o.QueueSize = DefaultQueueSize
	}
	if o.BatchSize < 1 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchInterval <= 0 {
		o.BatchInterval = DefaultBatchInterval
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = DefaultSyncInterval
	}
	if o.HistoryDepth < 1 {
		o.HistoryDepth = DefaultHistoryDepth
	}
	if o.RetentionDays < 1 {
		o.RetentionDays = DefaultRetentionDays
	}
	return o
}

type Manager struct {
	store     *db.Store
	engine    *health.Engine
	prober    *probe.Prober
	verifier  Verifier
	incidents IncidentSink
	notifier  Notifier
	events    event.Publisher
	metrics   *metrics.Metrics
	logger    *log.Logger

	opts Options

	mu       sync.RWMutex
	monitors map[string]*Monitor

	jobQueue    chan Job
	resultQueue chan health.CheckSample

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	workerWg sync.WaitGroup
	procWg   sync.WaitGroup
	bgWg     sync.WaitGroup
}

func NewManager(deps Deps, opts Options) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = logging.New("uptime")
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		store:       deps.Store,
		engine:      deps.Engine,
		prober:      deps.Prober,
		verifier:    deps.Verifier,
		incidents:   deps.Incidents,
		notifier:    deps.Notifier,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      logger,
		opts:        opts,
		monitors:    make(map[string]*Monitor),
		jobQueue:    make(chan Job, opts.QueueSize),
		resultQueue: make(chan health.CheckSample, opts.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		stopCh:      make(chan struct{}),
	}
}

// Start spins up the worker pool, the result processor and the
// background loops, then runs the first sync.
func (m *Manager) Start() {
	for i := 0; i < m.opts.Workers; i++ {
		m.workerWg.Add(1)
		go m.worker()
	}

	m.procWg.Add(1)
	go m.resultProcessor()

	m.bgWg.Add(1)
	go m.retentionWorker()

	m.Sync()

	m.bgWg.Add(1)
	go m.syncLoop()
}

// Stop shuts the pipeline down in dependency order: schedulers first,
// then workers, then the processor, which drains and flushes whatever
// is still queued.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.cancel()

		m.mu.Lock()
		for _, mon := range m.monitors {
			mon.Stop()
		}
		m.mu.Unlock()

		close(m.jobQueue)
		m.workerWg.Wait()
		close(m.resultQueue)
		m.procWg.Wait()
		m.bgWg.Wait()
	})
}

func (m *Manager) syncLoop() {
	defer m.bgWg.Done()
	ticker := time.NewTicker(m.opts.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Sync()
		}
	}
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for job := range m.jobQueue {
		select {
		case <-m.stopCh:
			// Draining during shutdown; skip the probe.
			continue
		default:
		}

		sample := m.prober.Probe(m.ctx, job.Target)

		select {
		case <-m.ctx.Done():
			// Aborted mid-probe. The sample reflects the shutdown, not
			// the target, so it must not reach the engine.
			continue
		default:
		}
		m.resultQueue <- sample
	}
}

// resultProcessor is the single consumer of probe results. Running the
// evaluation on one goroutine keeps engine state and the per-monitor
// history free of write races.
func (m *Manager) resultProcessor() {
	defer m.procWg.Done()

	var batch []db.Check
	ticker := time.NewTicker(m.opts.BatchInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := m.store.InsertChecks(batch); err != nil {
			m.logger.Printf("check batch insert failed: %v", err)
		}
		batch = nil
	}

	for {
		select {
		case <-ticker.C:
			flush()
		case sample, ok := <-m.resultQueue:
			if !ok {
				flush()
				return
			}
			if row, keep := m.process(sample); keep {
				batch = append(batch, row)
				if len(batch) >= m.opts.BatchSize {
					flush()
				}
			}
		}
	}
}

// process evaluates one sample and returns the row to persist. keep is
// false when the monitor vanished while the probe was in flight.
func (m *Manager) process(sample health.CheckSample) (db.Check, bool) {
	mon := m.monitor(sample.MonitorID)
	if mon == nil {
		return db.Check{}, false
	}
	defer mon.endTick()

	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}

	history := mon.History()
	decision := m.engine.DetermineHealthState(sample, mon.Policy(), history)
	sample.State = decision.Verdict.State
	mon.Record(sample)

	if m.metrics != nil {
		m.metrics.ObserveCheck(string(sample.Protocol), string(decision.State), sample.LatencyMs)
		if decision.PreventedFlapping {
			m.metrics.FlapsSuppressed.Inc()
		}
	}

	if decision.Changed {
		m.handleTransition(mon, decision)
	}

	return checkRow(sample), true
}

// handleTransition persists and fans out one confirmed state change.
func (m *Manager) handleTransition(mon *Monitor, d health.HealthDecision) {
	from := mon.LastState()
	mon.SetLastState(d.State)

	if err := m.store.InsertTransition(db.Transition{
		MonitorID:  d.MonitorID,
		From:       string(from),
		To:         string(d.State),
		Reason:     d.PrimaryReason(),
		OccurredAt: d.At,
	}); err != nil {
		m.logger.Printf("transition insert failed for %s: %v", d.MonitorID, err)
	}
	if m.metrics != nil {
		m.metrics.TransitionsTotal.WithLabelValues(string(from), string(d.State)).Inc()
	}

	if m.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.events.Publish(ctx, event.FromDecision(d, from)); err != nil {
			m.logger.Printf("event publish failed for %s: %v", d.MonitorID, err)
		}
		cancel()
	}

	if m.incidents != nil {
		inc, err := m.incidents.HandleTransition(d)
		if err != nil {
			m.logger.Printf("incident update failed for %s: %v", d.MonitorID, err)
		}
		if inc != nil && m.metrics != nil {
			if inc.EndedAt == nil {
				m.metrics.OngoingIncidents.Inc()
			} else {
				m.metrics.OngoingIncidents.Dec()
			}
		}
	}

	m.logger.Printf("monitor %s: %s -> %s (%s)", d.MonitorID, from, d.State, d.PrimaryReason())

	switch d.State {
	case health.StateUp:
		if from == health.StateUnknown {
			// First confirmation after warmup, not a recovery.
			return
		}
		m.enqueueAlert(alertFor(mon, d))
	case health.StateDown, health.StateDegraded:
		m.verifyThenAlert(mon, d)
	}
}

// verifyThenAlert confirms the failure from outside before alerting.
// The verification summary rides along on the alert; a failed or
// disabled verification still alerts, just without it.
func (m *Manager) verifyThenAlert(mon *Monitor, d health.HealthDecision) {
	alert := alertFor(mon, d)
	if m.verifier == nil {
		m.enqueueAlert(alert)
		return
	}

	row := mon.Row()
	m.bgWg.Add(1)
	go func() {
		defer m.bgWg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, 2*time.Minute)
		defer cancel()

		summary, err := m.verifier.TriggerVerification(ctx, row, d.State)
		if err != nil {
			m.logger.Printf("verification failed for %s: %v", d.MonitorID, err)
		} else {
			alert.Summary = &summary
			// Stamping retries while the check row commits; it must not
			// delay the alert.
			m.bgWg.Add(1)
			go func() {
				defer m.bgWg.Done()
				m.stampCheck(d.CheckID, summary)
			}()
		}
		m.enqueueAlert(alert)
	}()
}

// stampCheck attaches the summary to the check that triggered the
// verification. The row may still sit in the batch writer, so misses
// are retried across a few flush intervals before giving up.
func (m *Manager) stampCheck(checkID string, summary verify.Summary) {
	if checkID == "" {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		m.logger.Printf("verification summary for check %s not encodable: %v", checkID, err)
		return
	}
	for attempt := 0; attempt < 4; attempt++ {
		err = m.store.SetCheckVerification(checkID, string(payload))
		if !errors.Is(err, db.ErrCheckNotFound) {
			break
		}
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		m.logger.Printf("verification not attached to check %s: %v", checkID, err)
	}
}

func alertFor(mon *Monitor, d health.HealthDecision) notifications.Alert {
	return notifications.Alert{
		MonitorID:   d.MonitorID,
		MonitorName: mon.Name(),
		MonitorURL:  mon.URL(),
		State:       d.State,
		Reason:      d.PrimaryReason(),
		At:          d.At,
	}
}

func (m *Manager) enqueueAlert(alert notifications.Alert) {
	if m.notifier == nil {
		return
	}
	m.notifier.Enqueue(alert)
}

// Sync reconciles running monitors against the store: starts new and
// resumed ones, restarts changed ones, stops paused and deleted ones.
// Called on startup, periodically, and by the API after writes.
func (m *Manager) Sync() {
	rows, err := m.store.GetMonitors()
	if err != nil {
		m.logger.Printf("monitor sync failed: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	activeIDs := make(map[string]bool)
	for _, row := range rows {
		activeIDs[row.ID] = true

		if !row.Active {
			if existing, ok := m.monitors[row.ID]; ok {
				existing.Stop()
				delete(m.monitors, row.ID)
				m.logger.Printf("paused monitor %s", row.ID)
			}
			// Engine state survives a pause; a resume rehydrates and
			// continues where it left off.
			continue
		}

		if existing, ok := m.monitors[row.ID]; ok && !existing.specEquals(row) {
			m.logger.Printf("monitor %s changed, restarting", row.ID)
			existing.Stop()
			delete(m.monitors, row.ID)
		}

		if _, ok := m.monitors[row.ID]; !ok {
			mon := newMonitor(row, m.jobQueue, m.opts.HistoryDepth)
			m.hydrate(mon)
			go mon.Start()
			m.monitors[row.ID] = mon
			m.logger.Printf("scheduled monitor %s (%s every %ds)", row.Name, row.Protocol, row.Interval)
		}
	}

	for id, mon := range m.monitors {
		if !activeIDs[id] {
			mon.Stop()
			delete(m.monitors, id)
			m.logger.Printf("stopped monitor %s", id)
		}
	}

	if m.metrics != nil {
		m.metrics.MonitorsActive.Set(float64(len(m.monitors)))
	}

	m.reconcileIncidents()
}

// hydrate loads persisted history and the last confirmed state so a
// restart neither re-announces a long-standing state nor loses the
// window the analyzer reasons over.
func (m *Manager) hydrate(mon *Monitor) {
	checks, err := m.store.GetMonitorChecks(mon.ID(), m.opts.HistoryDepth)
	if err != nil {
		m.logger.Printf("history hydration failed for %s: %v", mon.ID(), err)
		return
	}
	if len(checks) > 0 {
		// Stored newest first; the ring wants oldest first.
		samples := make([]health.CheckSample, 0, len(checks))
		protocol := health.Protocol(mon.Row().Protocol)
		for i := len(checks) - 1; i >= 0; i-- {
			samples = append(samples, sampleFromCheck(checks[i], protocol))
		}
		mon.seedHistory(samples)
	}

	last, err := m.store.LastTransition(mon.ID())
	if err != nil {
		m.logger.Printf("transition hydration failed for %s: %v", mon.ID(), err)
		return
	}
	if last != nil {
		state := health.HealthState(last.To)
		mon.SetLastState(state)
		m.engine.SeedState(mon.ID(), state, last.OccurredAt)
	}
}

// reconcileIncidents closes incidents left open by a crash when the
// hydrated state says the monitor recovered. Callers hold m.mu.
func (m *Manager) reconcileIncidents() {
	for id, mon := range m.monitors {
		if mon.LastState() != health.StateUp {
			continue
		}
		inc, err := m.store.FindOngoingIncident(id)
		if err != nil {
			continue
		}
		if err := m.store.ResolveIncident(inc.ID, time.Now().UTC()); err != nil {
			m.logger.Printf("stale incident %s for %s not resolved: %v", inc.ID, id, err)
			continue
		}
		m.logger.Printf("resolved stale incident %s for monitor %s", inc.ID, id)
	}
}

// RemoveMonitor stops a monitor immediately and drops every trace of
// it: pending verification, engine state, schedule. Used by the API on
// delete; periodic sync would catch it eventually, just later.
func (m *Manager) RemoveMonitor(id string) {
	m.mu.Lock()
	if mon, ok := m.monitors[id]; ok {
		mon.Stop()
		delete(m.monitors, id)
		m.logger.Printf("removed monitor %s", id)
	}
	if m.metrics != nil {
		m.metrics.MonitorsActive.Set(float64(len(m.monitors)))
	}
	m.mu.Unlock()

	if m.verifier != nil {
		m.verifier.Cancel(id)
	}
	m.engine.ClearStateHistory(id)
}

// Running reports whether a monitor is currently scheduled.
func (m *Manager) Running(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.monitors[id]
	return ok
}

// RunningCount returns how many monitors are scheduled.
func (m *Manager) RunningCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monitors)
}

func (m *Manager) monitor(id string) *Monitor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monitors[id]
}

func (m *Manager) retentionWorker() {
	defer m.bgWg.Done()

	prune := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -m.opts.RetentionDays)
		n, err := m.store.PruneChecks(cutoff)
		if err != nil {
			m.logger.Printf("retention prune failed: %v", err)
			return
		}
		if n > 0 {
			m.logger.Printf("pruned %d checks older than %d days", n, m.opts.RetentionDays)
		}
	}

	prune()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			prune()
		}
	}
}

func checkRow(s health.CheckSample) db.Check {
	return db.Check{
		ID:         s.ID,
		MonitorID:  s.MonitorID,
		State:      string(s.State),
		Success:    s.Success,
		LatencyMs:  s.LatencyMs,
		StatusCode: s.StatusCode,
		ErrorKind:  string(s.ErrorKind),
		ErrorMsg:   s.ErrorMsg,
		CheckedAt:  s.Timestamp,
	}
}

func sampleFromCheck(c db.Check, protocol health.Protocol) health.CheckSample {
	return health.CheckSample{
		ID:         c.ID,
		MonitorID:  c.MonitorID,
		Timestamp:  c.CheckedAt,
		Protocol:   protocol,
		Success:    c.Success,
		LatencyMs:  c.LatencyMs,
		StatusCode: c.StatusCode,
		ErrorKind:  health.ErrorKind(c.ErrorKind),
		ErrorMsg:   c.ErrorMsg,
		State:      health.HealthState(c.State),
	}
}
