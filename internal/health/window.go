package health

// Pattern labels the shape of the last few raw states.
type Pattern string

const (
	PatternConsistentlyDown Pattern = "consistently_down"
	PatternConsistentlyUp   Pattern = "consistently_up"
	PatternFlapping         Pattern = "flapping"
	PatternDegraded         Pattern = "degraded_pattern"
	PatternStable           Pattern = "stable"
)

// WindowStats scores the newest raw states with exponentially decaying
// weights so one stale failure cannot hold a monitor down.
type WindowStats struct {
	Size             int     `json:"size"`
	FailureRate      float64 `json:"failureRate"`
	DegradationRate  float64 `json:"degradationRate"`
	Pattern          Pattern `json:"pattern"`
	ShouldBeDown     bool    `json:"shouldBeDown"`
	ShouldBeDegraded bool    `json:"shouldBeDegraded"`
}

// windowDecay is the per-step weight falloff; the newest state weighs 1.0.
const windowDecay = 0.8

// analyzeWindow scores raw classified states, newest last. Degraded states
// count half; healthy states actively pull both rates down.
func analyzeWindow(cfg EngineConfig, states []HealthState) WindowStats {
	w := len(states)
	if w > cfg.CheckWindowSize {
		states = states[w-cfg.CheckWindowSize:]
		w = cfg.CheckWindowSize
	}

	stats := WindowStats{Size: w, Pattern: PatternStable}
	if w == 0 {
		return stats
	}

	var failure, degradation, total float64
	weight := 1.0
	// Walk newest to oldest so the decay applies per step back in time.
	for i := w - 1; i >= 0; i-- {
		switch states[i] {
		case StateDown:
			failure += weight
		case StateDegraded:
			degradation += weight * 0.5
		case StateUp:
			failure -= 0.1 * weight
			degradation -= 0.1 * weight
		}
		total += weight
		weight *= windowDecay
	}

	stats.FailureRate = clampRate(failure / total)
	stats.DegradationRate = clampRate(degradation / total)
	stats.Pattern = detectPattern(states)
	stats.ShouldBeDown = stats.FailureRate >= cfg.DegradedThresholdRatio
	stats.ShouldBeDegraded = stats.DegradationRate >= 0.3 || stats.FailureRate >= 0.2
	return stats
}

// detectPattern looks at the last three states only; older history is the
// analyzers' business, not the pattern label's.
func detectPattern(states []HealthState) Pattern {
	if len(states) < 3 {
		return PatternStable
	}
	last := states[len(states)-3:]

	allDown, allUp := true, true
	degradedCount := 0
	for _, s := range last {
		if s != StateDown {
			allDown = false
		}
		if s != StateUp {
			allUp = false
		}
		if s == StateDegraded {
			degradedCount++
		}
	}

	switch {
	case allDown:
		return PatternConsistentlyDown
	case allUp:
		return PatternConsistentlyUp
	case last[0] != last[1] && last[1] != last[2]:
		return PatternFlapping
	case degradedCount >= 2:
		return PatternDegraded
	default:
		return PatternStable
	}
}

func clampRate(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
