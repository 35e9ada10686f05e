package bench

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tclab/textbench/internal/monitor"
	"github.com/tclab/textbench/internal/pipeline"
)

// DefaultWarmup is the number of untimed priming runs before measurement.
const DefaultWarmup = 5

// Harness runs the full prediction pipeline repeatedly and aggregates the
// per-run latencies. Iterations are strictly sequential: each run needs
// wall-clock isolation for its statistics to mean anything.
type Harness struct {
	classifier *pipeline.Classifier
	texts      []string
	warmup     int
	limiter    *rate.Limiter
	sink       Sink
	logger     *zap.Logger
}

// Options configures a benchmark harness.
type Options struct {
	// Texts are the inputs rotated across iterations. At least one is
	// required.
	Texts []string
	// Warmup overrides DefaultWarmup when >= 0.
	Warmup int
	// TargetRate, when positive, paces iterations at this many runs per
	// second instead of running back to back.
	TargetRate float64
	// Sink, when set, receives the final result for persistence.
	Sink Sink
}

// New creates a harness around a classifier.
func New(classifier *pipeline.Classifier, opts Options, logger *zap.Logger) (*Harness, error) {
	if len(opts.Texts) == 0 {
		return nil, fmt.Errorf("benchmark requires at least one input text")
	}
	warmup := opts.Warmup
	if warmup < 0 {
		warmup = DefaultWarmup
	}
	var limiter *rate.Limiter
	if opts.TargetRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.TargetRate), 1)
	}
	return &Harness{
		classifier: classifier,
		texts:      opts.Texts,
		warmup:     warmup,
		limiter:    limiter,
		sink:       opts.Sink,
		logger:     logger,
	}, nil
}

// Run executes warmup plus iterations timed runs and aggregates latency
// statistics. A failed iteration is skipped and counted, not fatal; Run
// itself errors only when every timed iteration failed.
func (h *Harness) Run(ctx context.Context, iterations int) (*Result, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	h.logger.Info("Benchmark starting",
		zap.Int("iterations", iterations),
		zap.Int("warmup", h.warmup),
		zap.Int("inputs", len(h.texts)))

	// Warmup primes engine caches; timings are discarded.
	for i := 0; i < h.warmup; i++ {
		if _, err := h.classifier.Classify(ctx, h.texts[i%len(h.texts)]); err != nil {
			h.logger.Warn("Warmup run failed", zap.Int("run", i), zap.Error(err))
		}
	}

	mon := monitor.New(0, h.logger)
	if err := mon.Start(); err != nil {
		return nil, fmt.Errorf("failed to start resource monitor: %w", err)
	}

	result := &Result{
		TimestampRFC3339: time.Now().Format(time.RFC3339),
		Iterations:       iterations,
		Warmup:           h.warmup,
	}

	var (
		totalLatency time.Duration
		minLatency   time.Duration
		maxLatency   time.Duration
		totalInfer   time.Duration
	)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				mon.Stop()
				return nil, fmt.Errorf("benchmark cancelled: %w", err)
			}
		}

		pred, err := h.classifier.Classify(ctx, h.texts[i%len(h.texts)])
		if err != nil {
			result.Failed++
			h.logger.Warn("Benchmark iteration failed",
				zap.Int("iteration", i),
				zap.Error(err))
			continue
		}

		latency := pred.TotalDuration()
		totalLatency += latency
		totalInfer += pred.InferenceDuration()
		if result.Completed == 0 || latency < minLatency {
			minLatency = latency
		}
		if latency > maxLatency {
			maxLatency = latency
		}
		result.Completed++
	}
	elapsed := time.Since(start)

	stats, err := mon.Stop()
	if err != nil {
		h.logger.Warn("Resource monitor stop failed", zap.Error(err))
	}
	result.Resources = stats
	result.WallSeconds = elapsed.Seconds()

	if result.Completed == 0 {
		return result, fmt.Errorf("all %d benchmark iterations failed", iterations)
	}

	mean := totalLatency / time.Duration(result.Completed)
	result.MeanLatencyMs = durationMs(mean)
	result.MinLatencyMs = durationMs(minLatency)
	result.MaxLatencyMs = durationMs(maxLatency)
	result.MeanInferenceMs = durationMs(totalInfer / time.Duration(result.Completed))
	if result.WallSeconds > 0 {
		result.ThroughputPerSec = float64(result.Completed) / result.WallSeconds
	}
	result.Tier = ClassifyTier(mean)

	h.logger.Info("Benchmark complete",
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Float64("mean_latency_ms", result.MeanLatencyMs),
		zap.Float64("throughput_per_sec", result.ThroughputPerSec),
		zap.String("tier", string(result.Tier)))

	if h.sink != nil {
		if err := h.sink.Save(ctx, result); err != nil {
			h.logger.Error("Failed to persist benchmark result", zap.Error(err))
		}
	}

	return result, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
