package health

import (
	"sync"
	"time"
)

// transitionHistoryCap bounds the per-monitor transition ring.
const transitionHistoryCap = 10

// Transition is one confirmed state change.
type Transition struct {
	From   HealthState `json:"from"`
	To     HealthState `json:"to"`
	At     time.Time   `json:"at"`
	Reason string      `json:"reason,omitempty"`
}

// MonitorState is the engine's working memory for one monitor. All access
// goes through stateStore.with so the per-entry lock is always held.
type MonitorState struct {
	MonitorID string

	Current          HealthState
	Since            time.Time
	FirstSeen        time.Time
	ConsecutiveCount int
	SamplesSeen      int

	// Pending tracks consecutive proposals that differ from Current.
	PendingState HealthState
	PendingCount int

	LastVerdict  Verdict
	LastSampleAt time.Time
	LastBaseline Baseline
	LastWindow   WindowStats

	// Transitions is a ring of the most recent confirmed changes, oldest
	// first, capped at transitionHistoryCap.
	Transitions []Transition
}

// confirmCurrent notes one more proposal agreeing with the current state.
func (st *MonitorState) confirmCurrent() {
	st.ConsecutiveCount++
	st.PendingState = ""
	st.PendingCount = 0
}

// notePending counts a proposal that disagrees with the current state.
// Returns the updated streak length for the proposed state.
func (st *MonitorState) notePending(proposed HealthState) int {
	if st.PendingState == proposed {
		st.PendingCount++
	} else {
		st.PendingState = proposed
		st.PendingCount = 1
	}
	return st.PendingCount
}

// transitionTo commits a confirmed state change: the ring records it, the
// consecutive counter resets to 1, pending bookkeeping clears.
func (st *MonitorState) transitionTo(to HealthState, reason string, at time.Time) {
	st.Transitions = append(st.Transitions, Transition{
		From:   st.Current,
		To:     to,
		At:     at,
		Reason: reason,
	})
	if len(st.Transitions) > transitionHistoryCap {
		st.Transitions = st.Transitions[len(st.Transitions)-transitionHistoryCap:]
	}

	st.Current = to
	st.Since = at
	st.ConsecutiveCount = 1
	st.PendingState = ""
	st.PendingCount = 0
}

// transitionsWithin counts confirmed changes newer than now-window.
func (st *MonitorState) transitionsWithin(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	n := 0
	for _, t := range st.Transitions {
		if t.At.After(cutoff) {
			n++
		}
	}
	return n
}

type stateEntry struct {
	mu sync.Mutex
	st MonitorState
}

// stateStore maps monitor IDs to their engine state. The outer lock only
// guards the map; each entry carries its own mutex so monitors never
// contend with each other.
type stateStore struct {
	mu      sync.RWMutex
	entries map[string]*stateEntry
}

func newStateStore() *stateStore {
	return &stateStore{entries: make(map[string]*stateEntry)}
}

// with runs fn with the entry locked, creating the entry on first use.
func (s *stateStore) with(monitorID string, now time.Time, fn func(*MonitorState)) {
	s.mu.RLock()
	e, ok := s.entries[monitorID]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		e, ok = s.entries[monitorID]
		if !ok {
			e = &stateEntry{st: MonitorState{
				MonitorID: monitorID,
				Current:   StateUnknown,
				Since:     now,
				FirstSeen: now,
			}}
			s.entries[monitorID] = e
		}
		s.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.st)
}

// peek runs fn with the entry locked only if it exists.
func (s *stateStore) peek(monitorID string, fn func(*MonitorState)) bool {
	s.mu.RLock()
	e, ok := s.entries[monitorID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.st)
	return true
}

// remove drops all engine memory for a monitor.
func (s *stateStore) remove(monitorID string) {
	s.mu.Lock()
	delete(s.entries, monitorID)
	s.mu.Unlock()
}

// ids returns the monitor IDs currently tracked.
func (s *stateStore) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}
