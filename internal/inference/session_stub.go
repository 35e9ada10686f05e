//go:build !onnx
// +build !onnx

package inference

import (
	"fmt"

	"go.uber.org/zap"
)

// NewSession reports that engine support is unavailable when built without
// the 'onnx' tag. This keeps the default build free of CGO dependencies;
// benchmarks and tests use a fake Invoker instead.
func NewSession(modelPath string, logger *zap.Logger) (Invoker, error) {
	logger.Error("Built without ONNX Runtime support (rebuild with -tags onnx)",
		zap.String("model", modelPath))
	return nil, fmt.Errorf("%w: binary built without onnx support", ErrModelLoad)
}
