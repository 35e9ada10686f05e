package pipeline

import "time"

// Phase names one stage of a single prediction.
type Phase string

const (
	PhasePreprocess  Phase = "preprocess"
	PhaseInference   Phase = "inference"
	PhasePostprocess Phase = "postprocess"
)

// TimingMetrics holds the wall-clock durations of one prediction and the
// throughput derived from them.
type TimingMetrics struct {
	PreprocessMs  float64 `json:"preprocess_ms"`
	InferenceMs   float64 `json:"inference_ms"`
	PostprocessMs float64 `json:"postprocess_ms"`
	TotalMs       float64 `json:"total_ms"`
	// ThroughputPerSec is 1000 / TotalMs: predictions per second this
	// single run extrapolates to.
	ThroughputPerSec float64 `json:"throughput_per_sec"`
}

// PhaseTimer records per-phase durations from the monotonic clock. Total is
// the sum of the recorded phases; the small drift from clock-call overhead
// is acceptable.
type PhaseTimer struct {
	preprocess  time.Duration
	inference   time.Duration
	postprocess time.Duration
}

// NewPhaseTimer creates an empty timer.
func NewPhaseTimer() *PhaseTimer {
	return &PhaseTimer{}
}

// Record stores the duration of one phase. Unknown phases are ignored.
func (t *PhaseTimer) Record(phase Phase, d time.Duration) {
	switch phase {
	case PhasePreprocess:
		t.preprocess = d
	case PhaseInference:
		t.inference = d
	case PhasePostprocess:
		t.postprocess = d
	}
}

// Inference returns the recorded inference duration.
func (t *PhaseTimer) Inference() time.Duration { return t.inference }

// Total returns the sum of the recorded phases.
func (t *PhaseTimer) Total() time.Duration {
	return t.preprocess + t.inference + t.postprocess
}

// Metrics derives TimingMetrics from the recorded phases.
func (t *PhaseTimer) Metrics() TimingMetrics {
	m := TimingMetrics{
		PreprocessMs:  durationMs(t.preprocess),
		InferenceMs:   durationMs(t.inference),
		PostprocessMs: durationMs(t.postprocess),
	}
	m.TotalMs = durationMs(t.Total())
	if m.TotalMs > 0 {
		m.ThroughputPerSec = 1000.0 / m.TotalMs
	}
	return m
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
