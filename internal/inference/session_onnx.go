//go:build onnx
// +build onnx

package inference

import (
	"context"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/encoder"
)

// Session is an ONNX Runtime backed Invoker. Requires the 'onnx' build tag
// and an ONNX Runtime shared library (path via ONNXRUNTIME_SHARED_LIB or
// ORT_SHLIB).
type Session struct {
	session   *ort.DynamicAdvancedSession
	signature Signature
	elemType  ort.TensorElementDataType
	logger    *zap.Logger
}

// NewSession loads the model, reads its input/output signature, and creates
// one reusable inference session.
func NewSession(modelPath string, logger *zap.Logger) (Invoker, error) {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("%w: environment init: %v", ErrModelLoad, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("%w: %s: model declares no inputs or outputs", ErrModelLoad, modelPath)
	}

	in := inputs[0]
	out := outputs[0]

	sig := Signature{
		InputName:  in.Name,
		OutputName: out.Name,
		InputLen:   flatInputLen(in.Dimensions),
	}

	elemType := ort.TensorElementDataTypeFloat
	if in.OrtValueType == ort.ONNXTypeTensor {
		elemType = in.DataType
	}
	switch elemType {
	case ort.TensorElementDataTypeInt32, ort.TensorElementDataTypeInt64:
		sig.IntInput = true
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{sig.InputName}, []string{sig.OutputName}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("%w: session creation: %v", ErrModelLoad, err)
	}

	logger.Info("ONNX session ready",
		zap.String("model", modelPath),
		zap.String("input", sig.InputName),
		zap.String("output", sig.OutputName),
		zap.Int("input_len", sig.InputLen),
		zap.Bool("int_input", sig.IntInput))

	return &Session{session: sess, signature: sig, elemType: elemType, logger: logger}, nil
}

// flatInputLen multiplies the non-batch dimensions of the declared input
// shape. A dynamic non-batch dimension yields 0 (length checked at runtime
// by the engine instead).
func flatInputLen(dims ort.Shape) int {
	if len(dims) < 2 {
		return 0
	}
	length := 1
	for _, d := range dims[1:] {
		if d <= 0 {
			return 0
		}
		length *= int(d)
	}
	return length
}

// Signature returns the model's declared input/output signature.
func (s *Session) Signature() Signature { return s.signature }

// Run executes one inference for a single feature vector (batch of one).
func (s *Session) Run(ctx context.Context, input *encoder.FeatureVector) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRuntime, ctx.Err())
	default:
	}

	if s.signature.InputLen > 0 && input.Len() != s.signature.InputLen {
		return nil, fmt.Errorf("%w: input has %d elements, model expects %d",
			ErrShapeMismatch, input.Len(), s.signature.InputLen)
	}
	if s.signature.IntInput && input.Ints == nil {
		return nil, fmt.Errorf("%w: model expects integer input, got floats", ErrShapeMismatch)
	}
	if !s.signature.IntInput && input.Floats == nil {
		return nil, fmt.Errorf("%w: model expects float input, got integers", ErrShapeMismatch)
	}

	shape := ort.NewShape(1, int64(input.Len()))
	var inputValue ort.Value

	switch {
	case s.elemType == ort.TensorElementDataTypeInt64:
		data := make([]int64, len(input.Ints))
		for i, v := range input.Ints {
			data[i] = int64(v)
		}
		tensor, err := ort.NewTensor[int64](shape, data)
		if err != nil {
			return nil, fmt.Errorf("%w: input tensor: %v", ErrRuntime, err)
		}
		defer tensor.Destroy()
		inputValue = tensor
	case s.elemType == ort.TensorElementDataTypeInt32:
		tensor, err := ort.NewTensor[int32](shape, input.Ints)
		if err != nil {
			return nil, fmt.Errorf("%w: input tensor: %v", ErrRuntime, err)
		}
		defer tensor.Destroy()
		inputValue = tensor
	default:
		tensor, err := ort.NewTensor[float32](shape, input.Floats)
		if err != nil {
			return nil, fmt.Errorf("%w: input tensor: %v", ErrRuntime, err)
		}
		defer tensor.Destroy()
		inputValue = tensor
	}

	outputs := make([]ort.Value, 1)
	if err := s.session.Run([]ort.Value{inputValue}, outputs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntime, err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("%w: engine returned no output", ErrRuntime)
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output type (want float32 tensor)", ErrShapeMismatch)
	}

	data := outTensor.GetData()
	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close releases the session and the runtime environment.
func (s *Session) Close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	ort.DestroyEnvironment()
	return nil
}
