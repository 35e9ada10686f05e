package bench

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
	"github.com/tclab/textbench/internal/encoder"
	"github.com/tclab/textbench/internal/inference"
	"github.com/tclab/textbench/internal/pipeline"
)

// constantInvoker simulates an engine with a fixed per-call latency.
type constantInvoker struct {
	latency   time.Duration
	failEvery int // fail every n-th call when > 0
	calls     int
}

func (f *constantInvoker) Run(ctx context.Context, input *encoder.FeatureVector) ([]float32, error) {
	f.calls++
	time.Sleep(f.latency)
	if f.failEvery > 0 && f.calls%f.failEvery == 0 {
		return nil, fmt.Errorf("%w: injected failure", inference.ErrRuntime)
	}
	return []float32{0.1, 0.9}, nil
}

func (f *constantInvoker) Signature() inference.Signature { return inference.Signature{} }
func (f *constantInvoker) Close() error                   { return nil }

func benchClassifier(invoker inference.Invoker) *pipeline.Classifier {
	vocab := &artifacts.Vocabulary{
		Index: map[string]int{"fast": 0, "slow": 1},
		IDF:   []float32{1.0, 1.0},
	}
	enc := encoder.NewTfidfEncoder(vocab, false, zap.NewNop())
	labels := &artifacts.LabelMap{Labels: map[int]string{0: "fast", 1: "slow"}}
	return pipeline.New(enc, invoker, pipeline.Options{
		Labels:         labels,
		SampleInterval: 50 * time.Millisecond,
	}, zap.NewNop())
}

func TestHarnessRun(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ConstantLatencyAggregates", func(t *testing.T) {
		latency := 5 * time.Millisecond
		invoker := &constantInvoker{latency: latency}
		h, err := New(benchClassifier(invoker), Options{
			Texts:  []string{"fast run"},
			Warmup: 2,
		}, logger)
		if err != nil {
			t.Fatalf("Failed to create harness: %v", err)
		}

		result, err := h.Run(context.Background(), 20)
		if err != nil {
			t.Fatalf("Benchmark failed: %v", err)
		}

		if result.Completed != 20 || result.Failed != 0 {
			t.Errorf("Expected 20 completed / 0 failed, got %d / %d", result.Completed, result.Failed)
		}
		// Warmup runs must not count toward the aggregate but must hit
		// the invoker.
		if invoker.calls != 22 {
			t.Errorf("Expected 22 invoker calls (2 warmup + 20 timed), got %d", invoker.calls)
		}

		wantMs := float64(latency) / float64(time.Millisecond)
		if result.MeanLatencyMs < wantMs || result.MeanLatencyMs > wantMs*3 {
			t.Errorf("Mean latency %f ms not near injected %f ms", result.MeanLatencyMs, wantMs)
		}
		if result.MinLatencyMs > result.MeanLatencyMs || result.MaxLatencyMs < result.MeanLatencyMs {
			t.Errorf("min %f <= mean %f <= max %f violated",
				result.MinLatencyMs, result.MeanLatencyMs, result.MaxLatencyMs)
		}
		if result.MeanInferenceMs > result.MeanLatencyMs {
			t.Errorf("Inference-only %f ms exceeds total %f ms", result.MeanInferenceMs, result.MeanLatencyMs)
		}
		if result.Tier != TierExcellent {
			t.Errorf("Expected tier excellent for ~5ms latency, got %s", result.Tier)
		}
		if result.ThroughputPerSec <= 0 {
			t.Error("Expected positive throughput")
		}
		if result.Resources == nil {
			t.Error("Expected resource stats for the run")
		}
	})

	t.Run("FailuresSkippedAndCounted", func(t *testing.T) {
		invoker := &constantInvoker{latency: time.Millisecond, failEvery: 5}
		h, err := New(benchClassifier(invoker), Options{
			Texts:  []string{"a", "b"},
			Warmup: 0,
		}, logger)
		if err != nil {
			t.Fatalf("Failed to create harness: %v", err)
		}

		result, err := h.Run(context.Background(), 20)
		if err != nil {
			t.Fatalf("Benchmark failed: %v", err)
		}
		if result.Failed != 4 {
			t.Errorf("Expected 4 failed iterations, got %d", result.Failed)
		}
		if result.Completed != 16 {
			t.Errorf("Expected 16 completed iterations, got %d", result.Completed)
		}
	})

	t.Run("AllFailed", func(t *testing.T) {
		invoker := &constantInvoker{failEvery: 1}
		h, err := New(benchClassifier(invoker), Options{Texts: []string{"a"}, Warmup: 0}, logger)
		if err != nil {
			t.Fatalf("Failed to create harness: %v", err)
		}

		result, err := h.Run(context.Background(), 3)
		if err == nil {
			t.Fatal("Expected error when every iteration fails")
		}
		if result == nil || result.Failed != 3 {
			t.Errorf("Expected result with 3 failures, got %+v", result)
		}
	})

	t.Run("NoTexts", func(t *testing.T) {
		if _, err := New(benchClassifier(&constantInvoker{}), Options{}, logger); err == nil {
			t.Error("Expected error for empty input set")
		}
	})

	t.Run("InvalidIterations", func(t *testing.T) {
		h, _ := New(benchClassifier(&constantInvoker{}), Options{Texts: []string{"a"}}, logger)
		if _, err := h.Run(context.Background(), 0); err == nil {
			t.Error("Expected error for zero iterations")
		}
	})
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		mean time.Duration
		want Tier
	}{
		{5 * time.Millisecond, TierExcellent},
		{9999 * time.Microsecond, TierExcellent},
		{10 * time.Millisecond, TierGood},
		{49 * time.Millisecond, TierGood},
		{50 * time.Millisecond, TierAcceptable},
		{99 * time.Millisecond, TierAcceptable},
		{100 * time.Millisecond, TierPoor},
		{time.Second, TierPoor},
	}
	for _, tc := range cases {
		if got := ClassifyTier(tc.mean); got != tc.want {
			t.Errorf("ClassifyTier(%v) = %s, want %s", tc.mean, got, tc.want)
		}
	}
}

func TestLoadDataset(t *testing.T) {
	logger := zap.NewNop()

	t.Run("CSV", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")
		content := "text,label\nthis is fine,0\n\"quoted, with comma\",1\n ,1\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write dataset: %v", err)
		}

		texts, err := LoadDataset(path, logger)
		if err != nil {
			t.Fatalf("Failed to load dataset: %v", err)
		}
		if len(texts) != 2 {
			t.Fatalf("Expected 2 texts (blank skipped), got %d", len(texts))
		}
		if texts[1] != "quoted, with comma" {
			t.Errorf("Unexpected second text: %q", texts[1])
		}
	})

	t.Run("JSONLines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.jsonl")
		content := `{"text": "first"}` + "\n" + `{"text": "second"}` + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write dataset: %v", err)
		}

		texts, err := LoadDataset(path, logger)
		if err != nil {
			t.Fatalf("Failed to load dataset: %v", err)
		}
		if len(texts) != 2 || texts[0] != "first" {
			t.Errorf("Unexpected texts: %v", texts)
		}
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		if _, err := LoadDataset("data.xml", logger); err == nil {
			t.Error("Expected error for unsupported format")
		}
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")
		if err := os.WriteFile(path, []byte("text,label\n"), 0644); err != nil {
			t.Fatalf("Failed to write dataset: %v", err)
		}
		if _, err := LoadDataset(path, logger); err == nil {
			t.Error("Expected error for dataset without texts")
		}
	})
}

func TestDurationMs(t *testing.T) {
	if got := durationMs(1500 * time.Microsecond); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("durationMs(1.5ms) = %f", got)
	}
}
