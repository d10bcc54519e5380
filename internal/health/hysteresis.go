package health

import (
	"fmt"
	"time"
)

// severityFastPath is the verdict severity that proposes down without
// waiting for the window to agree.
const severityFastPath = 0.9

// propose applies the decision rules in order. The proposal is what the
// engine would like the state to be; the confirmation layer decides whether
// it actually becomes the published state.
func propose(verdict Verdict, window WindowStats, baseline Baseline) HealthState {
	switch {
	// Slow responses and rate limiting are quality failures. They may not
	// escalate to down no matter how severe the verdict looks.
	case verdict.IsSlowResponse:
		return StateDegraded

	case verdict.Severity >= severityFastPath:
		return StateDown

	case window.ShouldBeDown:
		return StateDown

	// A service without a stable baseline gets degraded before the window
	// fully agrees; its history cannot vouch for it.
	case !baseline.Insufficient && !baseline.Stable && window.ShouldBeDegraded:
		return StateDegraded

	case window.ShouldBeDegraded || verdict.State == StateDegraded:
		return StateDegraded

	default:
		return StateUp
	}
}

// thresholdFor is how many consecutive identical proposals commit a change.
func (e *Engine) thresholdFor(proposal HealthState, verdict Verdict, policy MonitorPolicy) int {
	switch proposal {
	case StateUp:
		return e.cfg.ConsecutiveChecksForRecovery
	case StateDegraded:
		if verdict.IsSlowResponse {
			// Rate limits and slow responses mark degraded immediately.
			return 1
		}
		return alertThreshold(policy, e.cfg)
	default:
		return alertThreshold(policy, e.cfg)
	}
}

// fastTrackRecovery lets a clean, fast success skip the recovery count.
func fastTrackRecovery(sample CheckSample, verdict Verdict, policy MonitorPolicy) bool {
	if !sample.Success || verdict.State != StateUp {
		return false
	}
	if verdict.Severity > 0 || len(verdict.Reasons) > 0 {
		return false
	}
	return float64(sample.LatencyMs) < 0.8*float64(expectedResponseTime(policy))
}

// timeGated reports whether this change is the degraded<->down pair that
// must also wait out half the minimum time in state.
func timeGated(cur, proposal HealthState) bool {
	return (cur == StateDegraded && proposal == StateDown) ||
		(cur == StateDown && proposal == StateDegraded)
}

// confirm turns a proposal into the published decision, mutating st.
// Called with the state entry locked.
func (e *Engine) confirm(st *MonitorState, proposal HealthState, verdict Verdict, sample CheckSample, policy MonitorPolicy, now time.Time) HealthDecision {
	d := HealthDecision{
		MonitorID: policy.ID,
		CheckID:   sample.ID,
		Verdict:   verdict,
		Reasons:   append([]string(nil), verdict.Reasons...),
		At:        now,
	}

	cur := st.Current

	// Proposal agrees with the settled state.
	if proposal == cur {
		st.confirmCurrent()
		d.State = cur
		d.Confirmed = true
		d.ConsecutiveCount = st.ConsecutiveCount
		if cur == StateUp && len(d.Reasons) == 0 {
			d.Reasons = []string{"within normal parameters"}
		}
		return d
	}

	streak := st.notePending(proposal)

	// A monitor must not sit in unknown forever. Past the deadline the raw
	// verdict state wins, confirmation counts notwithstanding.
	if cur == StateUnknown && now.Sub(st.FirstSeen) >= e.cfg.MaxTimeForUnknown {
		reason := transitionReason(verdict, cur, verdict.State)
		st.transitionTo(verdict.State, reason, now)
		d.State = verdict.State
		d.Confirmed = true
		d.Changed = true
		d.ConsecutiveCount = st.ConsecutiveCount
		if len(d.Reasons) == 0 {
			d.Reasons = []string{reason}
		}
		return d
	}

	// degraded<->down flips also wait out half the minimum time in state,
	// so severity wobbles near a threshold do not churn the state.
	if timeGated(cur, proposal) && now.Sub(st.Since) < e.cfg.MinTimeInState/2 {
		d.State = cur
		d.Confirmed = true
		d.ConsecutiveCount = st.ConsecutiveCount
		d.Reasons = append(d.Reasons, "state change held (minimum time in state)")
		return d
	}

	threshold := e.thresholdFor(proposal, verdict, policy)
	confirmed := streak >= threshold
	if proposal == StateUp && fastTrackRecovery(sample, verdict, policy) {
		confirmed = true
	}

	if !confirmed {
		d.Confirmed = false
		d.ConsecutiveCount = streak
		// The settled state does not move, but callers see degraded while
		// any failure proposal waits out its threshold.
		switch proposal {
		case StateDown:
			d.State = StateDegraded
			d.Reasons = append(d.Reasons, fmt.Sprintf("Service glitch detected, awaiting confirmation (%d/%d)", streak, threshold))
		case StateDegraded:
			d.State = StateDegraded
			d.Reasons = append(d.Reasons, fmt.Sprintf("Potential degradation, awaiting confirmation (%d/%d)", streak, threshold))
		default:
			d.State = cur
		}
		return d
	}

	// Flap suppression: too many recent transitions pin the monitor to
	// degraded instead of committing yet another change.
	if proposal != StateDegraded && st.transitionsWithin(e.cfg.FlapWindow, now) >= e.cfg.FlapTransitionLimit {
		d.PreventedFlapping = true
		d.Reasons = append(d.Reasons, "state change suppressed (flapping)")
		if cur != StateDegraded {
			st.transitionTo(StateDegraded, "flap suppression", now)
			d.Changed = true
		}
		d.State = StateDegraded
		d.Confirmed = true
		d.ConsecutiveCount = st.ConsecutiveCount
		return d
	}

	reason := transitionReason(verdict, cur, proposal)
	if len(d.Reasons) == 0 {
		d.Reasons = []string{reason}
	}
	st.transitionTo(proposal, reason, now)
	d.State = proposal
	d.Confirmed = true
	d.Changed = true
	d.ConsecutiveCount = st.ConsecutiveCount
	return d
}

// transitionReason picks the ring-buffer label for a committed change.
func transitionReason(verdict Verdict, from, to HealthState) string {
	if len(verdict.Reasons) > 0 {
		return verdict.Reasons[0]
	}
	if to == StateUp {
		if from == StateUnknown {
			return "Initial state established"
		}
		return "Service recovered"
	}
	return "state " + string(to)
}
