package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
	"github.com/tclab/textbench/internal/encoder"
	"github.com/tclab/textbench/internal/inference"
)

// fakeInvoker returns fixed scores after an optional artificial delay.
type fakeInvoker struct {
	scores []float32
	delay  time.Duration
	err    error
	calls  int
}

func (f *fakeInvoker) Run(ctx context.Context, input *encoder.FeatureVector) ([]float32, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, len(f.scores))
	copy(out, f.scores)
	return out, nil
}

func (f *fakeInvoker) Signature() inference.Signature { return inference.Signature{} }
func (f *fakeInvoker) Close() error                   { return nil }

func testClassifier(invoker inference.Invoker) *Classifier {
	vocab := &artifacts.Vocabulary{
		Index: map[string]int{"good": 0, "bad": 1},
		IDF:   []float32{1.0, 1.0, 1.0},
	}
	enc := encoder.NewTfidfEncoder(vocab, false, zap.NewNop())
	labels := &artifacts.LabelMap{Labels: map[int]string{0: "negative", 1: "positive"}}
	return New(enc, invoker, Options{
		Labels:         labels,
		SampleInterval: 50 * time.Millisecond,
	}, zap.NewNop())
}

func TestClassify(t *testing.T) {
	t.Run("SelectsArgmaxLabel", func(t *testing.T) {
		c := testClassifier(&fakeInvoker{scores: []float32{0.2, 1.9}})

		pred, err := c.Classify(context.Background(), "this is good")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if pred.ClassIndex != 1 {
			t.Errorf("Expected class 1, got %d", pred.ClassIndex)
		}
		if pred.Label != "positive" {
			t.Errorf("Expected label 'positive', got %q", pred.Label)
		}
		if pred.Confidence <= 0.5 || pred.Confidence > 1.0 {
			t.Errorf("Confidence %f outside (0.5, 1.0]", pred.Confidence)
		}
	})

	t.Run("TimingCaptured", func(t *testing.T) {
		c := testClassifier(&fakeInvoker{scores: []float32{1, 0}, delay: 20 * time.Millisecond})

		pred, err := c.Classify(context.Background(), "good bad")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if pred.Timing.InferenceMs < 15 {
			t.Errorf("Inference time %f ms below injected 20ms delay", pred.Timing.InferenceMs)
		}
		if pred.Timing.TotalMs < pred.Timing.InferenceMs {
			t.Errorf("Total %f ms less than inference %f ms", pred.Timing.TotalMs, pred.Timing.InferenceMs)
		}
		if pred.Timing.ThroughputPerSec <= 0 {
			t.Error("Expected positive throughput")
		}
		if pred.Resources == nil {
			t.Fatal("Expected resource stats")
		}
	})

	t.Run("InferenceFailure", func(t *testing.T) {
		wantErr := inference.ErrRuntime
		c := testClassifier(&fakeInvoker{err: wantErr})

		_, err := c.Classify(context.Background(), "good")
		if !errors.Is(err, wantErr) {
			t.Errorf("Expected wrapped runtime error, got %v", err)
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		// The zero vector is a valid input; the pipeline must not fail.
		c := testClassifier(&fakeInvoker{scores: []float32{1, 0}})

		pred, err := c.Classify(context.Background(), "   ")
		if err != nil {
			t.Fatalf("Classify failed on whitespace input: %v", err)
		}
		if pred.Label != "negative" {
			t.Errorf("Expected label 'negative', got %q", pred.Label)
		}
	})
}

func TestPhaseTimer(t *testing.T) {
	timer := NewPhaseTimer()
	timer.Record(PhasePreprocess, 2*time.Millisecond)
	timer.Record(PhaseInference, 5*time.Millisecond)
	timer.Record(PhasePostprocess, 3*time.Millisecond)

	if timer.Total() != 10*time.Millisecond {
		t.Errorf("Expected total 10ms, got %v", timer.Total())
	}

	m := timer.Metrics()
	if m.TotalMs != 10 {
		t.Errorf("Expected 10 total ms, got %f", m.TotalMs)
	}
	if m.ThroughputPerSec != 100 {
		t.Errorf("Expected throughput 100/s, got %f", m.ThroughputPerSec)
	}
}

func TestSoftmaxProbability(t *testing.T) {
	scores := []float32{1.0, 1.0}
	if p := softmaxProbability(scores, 0); p < 0.49 || p > 0.51 {
		t.Errorf("Equal scores should give ~0.5, got %f", p)
	}

	scores = []float32{10.0, -10.0}
	if p := softmaxProbability(scores, 0); p < 0.99 {
		t.Errorf("Dominant score should give ~1.0, got %f", p)
	}
}
