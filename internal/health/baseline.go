package health

import "math"

// Trend describes where a monitor's latency is heading.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendSteady    Trend = "steady"
	TrendDegrading Trend = "degrading"
)

// Baseline summarizes recent successful samples so the hysteresis engine
// can tell an unstable service from a stable one having a bad moment.
type Baseline struct {
	Insufficient bool    `json:"insufficient"`
	SampleCount  int     `json:"sampleCount"`
	MeanMs       float64 `json:"meanMs"`
	Variance     float64 `json:"variance"`
	StdDevMs     float64 `json:"stdDevMs"`
	Reliability  float64 `json:"reliability"`
	Stable       bool    `json:"stable"`
	Trend        Trend   `json:"trend"`
}

// analyzeBaseline derives the latency baseline from the newest
// cfg.BaselineWindowSize samples (newest last). Only successful samples
// contribute latency statistics; reliability is successes over the whole
// window considered.
func analyzeBaseline(cfg EngineConfig, history []CheckSample) Baseline {
	window := history
	if len(window) > cfg.BaselineWindowSize {
		window = window[len(window)-cfg.BaselineWindowSize:]
	}

	var latencies []float64
	for _, s := range window {
		if s.Success {
			latencies = append(latencies, float64(s.LatencyMs))
		}
	}

	b := Baseline{SampleCount: len(latencies), Trend: TrendSteady}
	if len(latencies) < cfg.MinChecksForKnownState {
		b.Insufficient = true
		return b
	}

	var sum float64
	for _, l := range latencies {
		sum += l
	}
	b.MeanMs = sum / float64(len(latencies))

	var sq float64
	for _, l := range latencies {
		d := l - b.MeanMs
		sq += d * d
	}
	b.Variance = sq / float64(len(latencies))
	b.StdDevMs = math.Sqrt(b.Variance)
	b.Reliability = float64(len(latencies)) / float64(len(window))

	// Coefficient of variation below 0.5 and reliability above 0.8 reads
	// as a service with a dependable latency profile.
	cv := 0.0
	if b.MeanMs > 0 {
		cv = b.StdDevMs / b.MeanMs
	}
	b.Stable = cv < 0.5 && b.Reliability > 0.8

	b.Trend = latencyTrend(latencies)
	return b
}

// latencyTrend compares the older half of the window against the newer
// half. A 10% swing either way is treated as noise.
func latencyTrend(latencies []float64) Trend {
	if len(latencies) < 4 {
		return TrendSteady
	}
	half := len(latencies) / 2
	older := mean(latencies[:half])
	newer := mean(latencies[half:])

	switch {
	case newer < older*0.9:
		return TrendImproving
	case newer > older*1.1:
		return TrendDegrading
	default:
		return TrendSteady
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
