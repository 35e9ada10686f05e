package encoder

import (
	"github.com/tclab/textbench/internal/artifacts"
)

// Scaler applies per-feature standardization to a continuous vector:
// out[i] = (in[i] - mean[i]) / scale[i]. Because scale entries are verified
// non-zero at artifact load time, Apply cannot fail.
type Scaler struct {
	params *artifacts.ScalerParams
}

// NewScaler creates a scaler over loaded parameters.
func NewScaler(params *artifacts.ScalerParams) *Scaler {
	return &Scaler{params: params}
}

// Dim returns the feature dimension the scaler operates on.
func (s *Scaler) Dim() int { return s.params.Dim() }

// Apply standardizes the vector into a freshly allocated slice. The input
// is not modified.
func (s *Scaler) Apply(vec []float32) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = (v - s.params.Mean[i]) / s.params.Scale[i]
	}
	return out
}
