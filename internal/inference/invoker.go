package inference

import (
	"context"
	"errors"

	"github.com/tclab/textbench/internal/encoder"
)

// Failure categories surfaced by invokers. Inference errors are never
// retried by the core; callers decide whether to skip or abort.
var (
	// ErrModelLoad indicates the model could not be opened or inspected.
	ErrModelLoad = errors.New("model load failed")
	// ErrShapeMismatch indicates the input vector does not match the
	// model's declared input signature.
	ErrShapeMismatch = errors.New("input shape mismatch")
	// ErrRuntime indicates the engine failed while executing the model.
	ErrRuntime = errors.New("inference runtime error")
)

// Signature describes the model's declared input and output, read from the
// loaded model rather than hardcoded.
type Signature struct {
	InputName  string
	OutputName string
	// InputLen is the expected flat element count of the input tensor,
	// or 0 when the model declares a dynamic dimension.
	InputLen int
	// IntInput is true when the model expects integer token ids
	// (sequence path) rather than floats (TF-IDF path).
	IntInput bool
}

// Invoker runs a loaded model on one feature vector. A call is synchronous,
// has no side effects beyond its output, and is deterministic for a fixed
// model and input. The session handle behind an Invoker is constructed once
// and injected; there is no process-wide engine state.
type Invoker interface {
	Run(ctx context.Context, input *encoder.FeatureVector) ([]float32, error)
	Signature() Signature
	Close() error
}
