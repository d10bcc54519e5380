package health

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pulsewatch/vigil/internal/logging"
)

// Engine runs the full evaluation pipeline: classify, analyze, decide,
// confirm. It owns all in-memory monitor state; persistence of samples and
// transitions is the caller's concern.
type Engine struct {
	cfg    EngineConfig
	states *stateStore
	logger *log.Logger
}

func NewEngine(cfg EngineConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = logging.New("health")
	}
	return &Engine{
		cfg:    cfg,
		states: newStateStore(),
		logger: logger,
	}
}

func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// DetermineHealthState evaluates one probe sample against the monitor's
// recent history and returns the published decision. history holds the
// persisted samples for this monitor, newest last, with State already
// filled from their own evaluations.
func (e *Engine) DetermineHealthState(sample CheckSample, policy MonitorPolicy, history []CheckSample) HealthDecision {
	now := sample.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
		sample.Timestamp = now
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.MonitorID == "" {
		sample.MonitorID = policy.ID
	}

	verdict := classifyGuarded(e.cfg, sample, policy, e.logger)

	baseline := analyzeBaseline(e.cfg, history)
	states := append(rawStates(history), verdict.State)
	window := analyzeWindow(e.cfg, states)

	proposal := propose(verdict, window, baseline)

	// A clean, fast success outranks window-driven degradation; recovery
	// would otherwise drag on until the failure weights decay.
	if proposal == StateDegraded && fastTrackRecovery(sample, verdict, policy) {
		proposal = StateUp
	}

	var d HealthDecision
	e.states.with(policy.ID, now, func(st *MonitorState) {
		st.SamplesSeen++
		st.LastVerdict = verdict
		st.LastSampleAt = now
		st.LastBaseline = baseline
		st.LastWindow = window
		d = e.confirm(st, proposal, verdict, sample, policy, now)
	})

	if d.Changed {
		e.logger.Printf("monitor %s state change -> %s (%s)", policy.ID, d.State, d.PrimaryReason())
	}
	return d
}

// ClearStateHistory drops every trace of a monitor from the engine. Used
// when a monitor is deleted or paused for good.
func (e *Engine) ClearStateHistory(monitorID string) {
	e.states.remove(monitorID)
	e.logger.Printf("cleared state history for monitor %s", monitorID)
}

// SeedState primes a fresh entry from persisted history so a restart does
// not re-announce long-standing states. Entries that already saw samples
// are left alone.
func (e *Engine) SeedState(monitorID string, state HealthState, since time.Time) {
	if state == "" || state == StateUnknown {
		return
	}
	e.states.with(monitorID, since, func(st *MonitorState) {
		if st.SamplesSeen > 0 || st.Current != StateUnknown {
			return
		}
		st.Current = state
		st.Since = since
		st.ConsecutiveCount = 1
	})
}

// HealthStatistics is the introspection snapshot for one monitor.
type HealthStatistics struct {
	MonitorID        string       `json:"monitorId"`
	State            HealthState  `json:"state"`
	Since            time.Time    `json:"since"`
	ConsecutiveCount int          `json:"consecutiveCount"`
	PendingState     HealthState  `json:"pendingState,omitempty"`
	PendingCount     int          `json:"pendingCount,omitempty"`
	SamplesSeen      int          `json:"samplesSeen"`
	LowConfidence    bool         `json:"lowConfidence"`
	LastVerdict      Verdict      `json:"lastVerdict"`
	LastCheckAt      time.Time    `json:"lastCheckAt"`
	Baseline         Baseline     `json:"baseline"`
	Window           WindowStats  `json:"window"`
	Transitions      []Transition `json:"transitions"`
}

// GetHealthStatistics returns the current snapshot for a monitor. The
// second return is false when the engine has never seen the monitor.
func (e *Engine) GetHealthStatistics(monitorID string) (HealthStatistics, bool) {
	var stats HealthStatistics
	ok := e.states.peek(monitorID, func(st *MonitorState) {
		stats = snapshotState(st, e.cfg)
	})
	return stats, ok
}

// SnapshotAll returns statistics for every tracked monitor.
func (e *Engine) SnapshotAll() map[string]HealthStatistics {
	out := make(map[string]HealthStatistics)
	for _, id := range e.states.ids() {
		if stats, ok := e.GetHealthStatistics(id); ok {
			out[id] = stats
		}
	}
	return out
}

func snapshotState(st *MonitorState, cfg EngineConfig) HealthStatistics {
	return HealthStatistics{
		MonitorID:        st.MonitorID,
		State:            st.Current,
		Since:            st.Since,
		ConsecutiveCount: st.ConsecutiveCount,
		PendingState:     st.PendingState,
		PendingCount:     st.PendingCount,
		SamplesSeen:      st.SamplesSeen,
		LowConfidence:    st.SamplesSeen < cfg.MinChecksForKnownState,
		LastVerdict:      st.LastVerdict,
		LastCheckAt:      st.LastSampleAt,
		Baseline:         st.LastBaseline,
		Window:           st.LastWindow,
		Transitions:      append([]Transition(nil), st.Transitions...),
	}
}

// rawStates extracts the persisted classified states from history samples,
// falling back to plain success/failure when a row predates classification.
func rawStates(history []CheckSample) []HealthState {
	out := make([]HealthState, 0, len(history)+1)
	for _, s := range history {
		switch {
		case s.State != "" && s.State != StateUnknown:
			out = append(out, s.State)
		case s.Success:
			out = append(out, StateUp)
		default:
			out = append(out, StateDown)
		}
	}
	return out
}
