package encoder

import (
	"math"
	"strings"
)

// Kind identifies the encoding variant a pipeline is configured with.
type Kind string

const (
	// KindTfidf produces a continuous weighted float vector.
	KindTfidf Kind = "tfidf"
	// KindSequence produces a fixed-length integer token sequence.
	KindSequence Kind = "sequence"
)

// FeatureVector is a fixed-length numeric encoding of one input text.
// Exactly one of Floats or Ints is populated, depending on the encoder kind.
// A vector is created per call and owned exclusively by that call.
type FeatureVector struct {
	Floats []float32
	Ints   []int32
}

// Len returns the number of elements in the populated representation.
func (v *FeatureVector) Len() int {
	if v.Ints != nil {
		return len(v.Ints)
	}
	return len(v.Floats)
}

// Encoder converts raw text into a FeatureVector. Implementations are pure
// and deterministic: identical input always yields an identical vector.
type Encoder interface {
	Encode(text string) *FeatureVector
	Kind() Kind
	// Dim is the output length: feature dimension for tfidf, sequence
	// length for the sequence variant.
	Dim() int
}

// tokenize lowercases the text and splits on whitespace. This is the single
// tokenization rule shared by both encoder variants.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// l2Normalize divides the vector by its Euclidean norm in place. A zero
// vector is left untouched.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
