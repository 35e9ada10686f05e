package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
	"github.com/tclab/textbench/internal/cache"
	"github.com/tclab/textbench/internal/encoder"
	"github.com/tclab/textbench/internal/inference"
	"github.com/tclab/textbench/internal/monitor"
)

// Prediction is the result of classifying one text, including the telemetry
// captured around the call.
type Prediction struct {
	Text       string         `json:"text"`
	Label      string         `json:"label"`
	ClassIndex int            `json:"class_index"`
	Confidence float64        `json:"confidence"`
	Scores     []float32      `json:"scores,omitempty"`
	CacheHit   bool           `json:"cache_hit"`
	Timing     TimingMetrics  `json:"timing"`
	Resources  *monitor.Stats `json:"resources,omitempty"`
}

// Classifier drives the sequential prediction pipeline: encode (and scale,
// on the TF-IDF path) -> infer -> select label. One monitor goroutine runs
// alongside each call; the pipeline itself is single-threaded.
type Classifier struct {
	encoder        encoder.Encoder
	scaler         *encoder.Scaler
	invoker        inference.Invoker
	labels         *artifacts.LabelMap
	features       *cache.FeatureCache
	sampleInterval time.Duration
	logger         *zap.Logger
}

// Options configures optional classifier collaborators.
type Options struct {
	// Scaler standardizes TF-IDF vectors before inference. Ignored on
	// the sequence path.
	Scaler *encoder.Scaler
	// Labels maps class indices to display names.
	Labels *artifacts.LabelMap
	// FeatureCache, when set, caches encoded vectors across calls.
	FeatureCache *cache.FeatureCache
	// SampleInterval overrides the CPU sampling period.
	SampleInterval time.Duration
}

// New creates a classifier over an injected inference session.
func New(enc encoder.Encoder, invoker inference.Invoker, opts Options, logger *zap.Logger) *Classifier {
	scaler := opts.Scaler
	if enc.Kind() == encoder.KindSequence {
		scaler = nil
	}
	return &Classifier{
		encoder:        enc,
		scaler:         scaler,
		invoker:        invoker,
		labels:         opts.Labels,
		features:       opts.FeatureCache,
		sampleInterval: opts.SampleInterval,
		logger:         logger,
	}
}

// Classify runs the full pipeline for one text with CPU monitoring around
// the whole operation.
func (c *Classifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	mon := monitor.New(c.sampleInterval, c.logger)
	if err := mon.Start(); err != nil {
		return nil, fmt.Errorf("failed to start resource monitor: %w", err)
	}

	pred, err := c.classify(ctx, text)

	stats, stopErr := mon.Stop()
	if stopErr != nil {
		c.logger.Warn("Resource monitor stop failed", zap.Error(stopErr))
	}
	if err != nil {
		return nil, err
	}
	pred.Resources = stats

	c.logger.Debug("Prediction complete",
		zap.String("label", pred.Label),
		zap.Float64("total_ms", pred.Timing.TotalMs),
		zap.Bool("cache_hit", pred.CacheHit))

	return pred, nil
}

// classify is the monitored section: preprocess, infer, postprocess.
func (c *Classifier) classify(ctx context.Context, text string) (*Prediction, error) {
	timer := NewPhaseTimer()
	pred := &Prediction{Text: text}

	// Preprocess: cached or freshly encoded feature vector, scaled on the
	// TF-IDF path.
	start := time.Now()
	var vec *encoder.FeatureVector
	if c.features != nil {
		if cached := c.features.Get(ctx, text); cached != nil {
			vec = cached
			pred.CacheHit = true
		}
	}
	if vec == nil {
		vec = c.encoder.Encode(text)
		if c.scaler != nil {
			vec = &encoder.FeatureVector{Floats: c.scaler.Apply(vec.Floats)}
		}
		if c.features != nil {
			c.features.Put(ctx, text, vec)
		}
	}
	timer.Record(PhasePreprocess, time.Since(start))

	// Inference: the only blocking call on this goroutine.
	start = time.Now()
	scores, err := c.invoker.Run(ctx, vec)
	timer.Record(PhaseInference, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: model produced no scores", inference.ErrRuntime)
	}

	// Postprocess: argmax and label lookup.
	start = time.Now()
	pred.ClassIndex = argmax(scores)
	pred.Confidence = softmaxProbability(scores, pred.ClassIndex)
	pred.Label = c.labels.Name(pred.ClassIndex)
	pred.Scores = scores
	timer.Record(PhasePostprocess, time.Since(start))

	pred.Timing = timer.Metrics()
	return pred, nil
}

// InferenceDuration extracts the inference-only latency of a prediction.
func (p *Prediction) InferenceDuration() time.Duration {
	return time.Duration(p.Timing.InferenceMs * float64(time.Millisecond))
}

// TotalDuration extracts the total pipeline latency of a prediction.
func (p *Prediction) TotalDuration() time.Duration {
	return time.Duration(p.Timing.TotalMs * float64(time.Millisecond))
}

func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}

// softmaxProbability computes the softmax weight of one class, shifted by
// the max score for numerical stability.
func softmaxProbability(scores []float32, class int) float64 {
	max := scores[argmax(scores)]
	var sum float64
	for _, s := range scores {
		sum += math.Exp(float64(s - max))
	}
	if sum == 0 {
		return 0
	}
	return math.Exp(float64(scores[class]-max)) / sum
}
