package health

import (
	"testing"

	"github.com/pulsewatch/vigil/internal/logging"
)

func TestPropose(t *testing.T) {
	quiet := WindowStats{}
	unstable := Baseline{Insufficient: false, Stable: false}

	tests := []struct {
		name     string
		verdict  Verdict
		window   WindowStats
		baseline Baseline
		want     HealthState
	}{
		{
			name:    "slow response caps at degraded",
			verdict: Verdict{State: StateDegraded, Severity: 1.0, IsSlowResponse: true},
			window:  WindowStats{ShouldBeDown: true},
			want:    StateDegraded,
		},
		{
			name:    "high severity is an immediate down",
			verdict: Verdict{State: StateDown, Severity: 0.95},
			window:  quiet,
			want:    StateDown,
		},
		{
			name:    "window failure rate forces down",
			verdict: Verdict{State: StateUp},
			window:  WindowStats{ShouldBeDown: true},
			want:    StateDown,
		},
		{
			name:     "unstable baseline degrades early",
			verdict:  Verdict{State: StateUp},
			window:   WindowStats{ShouldBeDegraded: true},
			baseline: unstable,
			want:     StateDegraded,
		},
		{
			name:    "degraded verdict alone degrades",
			verdict: Verdict{State: StateDegraded, Severity: 0.6},
			window:  quiet,
			want:    StateDegraded,
		},
		{
			name:    "clean verdict and quiet window is up",
			verdict: Verdict{State: StateUp},
			window:  quiet,
			want:    StateUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := propose(tt.verdict, tt.window, tt.baseline); got != tt.want {
				t.Errorf("propose() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestThresholdFor(t *testing.T) {
	e := NewEngine(DefaultEngineConfig(), logging.Nop())

	t.Run("recovery needs one agreement", func(t *testing.T) {
		if got := e.thresholdFor(StateUp, Verdict{}, testPolicy(ProtoHTTP)); got != 1 {
			t.Errorf("threshold = %d, want 1", got)
		}
	})

	t.Run("slow degraded is immediate", func(t *testing.T) {
		v := Verdict{State: StateDegraded, IsSlowResponse: true}
		if got := e.thresholdFor(StateDegraded, v, testPolicy(ProtoHTTP)); got != 1 {
			t.Errorf("threshold = %d, want 1", got)
		}
	})

	t.Run("monitor alert threshold wins", func(t *testing.T) {
		policy := testPolicy(ProtoHTTP)
		policy.AlertThreshold = 5
		if got := e.thresholdFor(StateDown, Verdict{}, policy); got != 5 {
			t.Errorf("threshold = %d, want 5", got)
		}
		if got := e.thresholdFor(StateDegraded, Verdict{}, policy); got != 5 {
			t.Errorf("degraded threshold = %d, want 5", got)
		}
	})

	t.Run("zero alert threshold falls back to config", func(t *testing.T) {
		policy := testPolicy(ProtoHTTP)
		policy.AlertThreshold = 0
		if got := e.thresholdFor(StateDown, Verdict{}, policy); got != 2 {
			t.Errorf("threshold = %d, want config default 2", got)
		}
	})
}

func TestFastTrackRecovery(t *testing.T) {
	policy := testPolicy(ProtoHTTP)
	clean := Verdict{State: StateUp}

	tests := []struct {
		name    string
		sample  CheckSample
		verdict Verdict
		policy  MonitorPolicy
		want    bool
	}{
		{"fast clean success", CheckSample{Success: true, LatencyMs: 200}, clean, policy, true},
		{"failure never fast tracks", CheckSample{Success: false, LatencyMs: 200}, clean, policy, false},
		{"non-up verdict never fast tracks", CheckSample{Success: true, LatencyMs: 200}, Verdict{State: StateDegraded}, policy, false},
		{"residual severity blocks", CheckSample{Success: true, LatencyMs: 200}, Verdict{State: StateUp, Severity: 0.3}, policy, false},
		{"lingering reasons block", CheckSample{Success: true, LatencyMs: 200}, Verdict{State: StateUp, Reasons: []string{"x"}}, policy, false},
		{"latency at 80 percent of expected blocks", CheckSample{Success: true, LatencyMs: 800}, clean, policy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fastTrackRecovery(tt.sample, tt.verdict, tt.policy); got != tt.want {
				t.Errorf("fastTrackRecovery() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("monitor expected response time stretches the cutoff", func(t *testing.T) {
		p := testPolicy(ProtoHTTP)
		p.ExpectedResponseTimeMs = int64Ptr(2000)
		if !fastTrackRecovery(CheckSample{Success: true, LatencyMs: 1500}, clean, p) {
			t.Error("1500ms should fast track against a 2000ms expectation")
		}
	})
}

func TestTimeGated(t *testing.T) {
	tests := []struct {
		cur, proposal HealthState
		want          bool
	}{
		{StateDegraded, StateDown, true},
		{StateDown, StateDegraded, true},
		{StateUp, StateDown, false},
		{StateDown, StateUp, false},
		{StateUnknown, StateDown, false},
		{StateUp, StateDegraded, false},
	}
	for _, tt := range tests {
		if got := timeGated(tt.cur, tt.proposal); got != tt.want {
			t.Errorf("timeGated(%s, %s) = %v, want %v", tt.cur, tt.proposal, got, tt.want)
		}
	}
}

func TestTransitionReason(t *testing.T) {
	t.Run("verdict reason wins", func(t *testing.T) {
		v := Verdict{Reasons: []string{"Server error (HTTP 500)"}}
		if got := transitionReason(v, StateUp, StateDown); got != "Server error (HTTP 500)" {
			t.Errorf("reason = %q", got)
		}
	})

	t.Run("first up from unknown", func(t *testing.T) {
		if got := transitionReason(Verdict{}, StateUnknown, StateUp); got != "Initial state established" {
			t.Errorf("reason = %q", got)
		}
	})

	t.Run("recovery", func(t *testing.T) {
		if got := transitionReason(Verdict{}, StateDown, StateUp); got != "Service recovered" {
			t.Errorf("reason = %q", got)
		}
	})

	t.Run("fallback names the state", func(t *testing.T) {
		if got := transitionReason(Verdict{}, StateUp, StateDown); got != "state down" {
			t.Errorf("reason = %q", got)
		}
	})
}
