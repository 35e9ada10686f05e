package bench

import (
	"time"

	"github.com/tclab/textbench/internal/monitor"
)

// Tier is the qualitative performance classification of a benchmark run.
type Tier string

const (
	TierExcellent  Tier = "excellent"
	TierGood       Tier = "good"
	TierAcceptable Tier = "acceptable"
	TierPoor       Tier = "poor"
)

// The single fixed threshold table applied to mean total latency. Every
// deployment uses these cutoffs; they are not configurable.
const (
	excellentBelow  = 10 * time.Millisecond
	goodBelow       = 50 * time.Millisecond
	acceptableBelow = 100 * time.Millisecond
)

// ClassifyTier maps a mean latency to its performance tier.
func ClassifyTier(mean time.Duration) Tier {
	switch {
	case mean < excellentBelow:
		return TierExcellent
	case mean < goodBelow:
		return TierGood
	case mean < acceptableBelow:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// Result aggregates the timed iterations of one benchmark run.
type Result struct {
	TimestampRFC3339 string `json:"timestamp_rfc3339"`
	Iterations       int    `json:"iterations"`
	Warmup           int    `json:"warmup"`
	Completed        int    `json:"completed"`
	// Failed counts iterations whose inference call errored. They are
	// excluded from the latency aggregates but never silently dropped.
	Failed int `json:"failed"`

	MeanLatencyMs   float64 `json:"mean_latency_ms"`
	MinLatencyMs    float64 `json:"min_latency_ms"`
	MaxLatencyMs    float64 `json:"max_latency_ms"`
	MeanInferenceMs float64 `json:"mean_inference_ms"`
	// ThroughputPerSec is completed iterations divided by total elapsed
	// wall-clock seconds.
	ThroughputPerSec float64 `json:"throughput_per_sec"`
	WallSeconds      float64 `json:"wall_seconds"`

	Tier      Tier           `json:"tier"`
	Resources *monitor.Stats `json:"resources,omitempty"`
}
