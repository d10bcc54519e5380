package health

import (
	"testing"
)

func okSample(latencyMs int64) CheckSample {
	return CheckSample{Success: true, LatencyMs: latencyMs}
}

func failSample() CheckSample {
	return CheckSample{Success: false, ErrorKind: ErrTimeout}
}

func TestAnalyzeBaselineInsufficient(t *testing.T) {
	cfg := DefaultEngineConfig()

	t.Run("empty history", func(t *testing.T) {
		b := analyzeBaseline(cfg, nil)
		if !b.Insufficient || b.SampleCount != 0 {
			t.Errorf("baseline = %+v, want insufficient with 0 samples", b)
		}
		if b.Trend != TrendSteady {
			t.Errorf("trend = %s, want steady", b.Trend)
		}
	})

	t.Run("below minimum successes", func(t *testing.T) {
		history := []CheckSample{okSample(100), okSample(110), failSample()}
		b := analyzeBaseline(cfg, history)
		if !b.Insufficient {
			t.Error("two successes should be insufficient")
		}
		if b.SampleCount != 2 {
			t.Errorf("sampleCount = %d, want 2", b.SampleCount)
		}
	})

	t.Run("failures alone never build a baseline", func(t *testing.T) {
		history := []CheckSample{failSample(), failSample(), failSample(), failSample()}
		if b := analyzeBaseline(cfg, history); !b.Insufficient {
			t.Error("failure-only history should be insufficient")
		}
	})
}

func TestAnalyzeBaselineStats(t *testing.T) {
	cfg := DefaultEngineConfig()
	history := []CheckSample{okSample(100), okSample(100), okSample(400), okSample(400)}

	b := analyzeBaseline(cfg, history)
	if b.Insufficient {
		t.Fatal("four successes should be sufficient")
	}
	if b.MeanMs != 250 {
		t.Errorf("mean = %v, want 250", b.MeanMs)
	}
	if b.Variance != 22500 {
		t.Errorf("variance = %v, want 22500", b.Variance)
	}
	if b.StdDevMs != 150 {
		t.Errorf("stdDev = %v, want 150", b.StdDevMs)
	}
	if b.Reliability != 1.0 {
		t.Errorf("reliability = %v, want 1.0", b.Reliability)
	}
	// Coefficient of variation 0.6 disqualifies stability.
	if b.Stable {
		t.Error("high variance baseline should not be stable")
	}
	if b.Trend != TrendDegrading {
		t.Errorf("trend = %s, want degrading", b.Trend)
	}
}

func TestAnalyzeBaselineStability(t *testing.T) {
	cfg := DefaultEngineConfig()

	t.Run("flat latency and full reliability is stable", func(t *testing.T) {
		history := []CheckSample{okSample(100), okSample(100), okSample(100), okSample(100), okSample(100)}
		b := analyzeBaseline(cfg, history)
		if !b.Stable {
			t.Errorf("baseline = %+v, want stable", b)
		}
		if b.StdDevMs != 0 || b.MeanMs != 100 {
			t.Errorf("mean/stddev = %v/%v, want 100/0", b.MeanMs, b.StdDevMs)
		}
	})

	t.Run("reliability at 0.8 is not stable", func(t *testing.T) {
		history := []CheckSample{okSample(100), okSample(100), failSample(), okSample(100), okSample(100)}
		b := analyzeBaseline(cfg, history)
		if b.Reliability != 0.8 {
			t.Fatalf("reliability = %v, want 0.8", b.Reliability)
		}
		if b.Stable {
			t.Error("0.8 reliability should not count as stable")
		}
	})
}

func TestAnalyzeBaselineWindowTruncation(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.BaselineWindowSize = 4

	// Old failures fall out of the window entirely.
	history := []CheckSample{
		failSample(), failSample(), failSample(), failSample(),
		okSample(100), okSample(100), okSample(100), okSample(100),
	}
	b := analyzeBaseline(cfg, history)
	if b.Insufficient {
		t.Fatal("newest window should be sufficient")
	}
	if b.SampleCount != 4 {
		t.Errorf("sampleCount = %d, want 4", b.SampleCount)
	}
	if b.Reliability != 1.0 {
		t.Errorf("reliability = %v, want 1.0 once failures age out", b.Reliability)
	}
}

func TestLatencyTrend(t *testing.T) {
	tests := []struct {
		name      string
		latencies []float64
		want      Trend
	}{
		{"too few samples", []float64{100, 500, 900}, TrendSteady},
		{"improving", []float64{400, 400, 100, 100}, TrendImproving},
		{"degrading", []float64{100, 100, 400, 400}, TrendDegrading},
		{"within noise band", []float64{100, 100, 105, 105}, TrendSteady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := latencyTrend(tt.latencies); got != tt.want {
				t.Errorf("latencyTrend() = %s, want %s", got, tt.want)
			}
		})
	}
}
