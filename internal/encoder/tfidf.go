package encoder

import (
	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
)

// TfidfEncoder converts text into a dense TF-IDF weighted vector aligned
// with the vocabulary's feature indices.
//
// Term frequency is count(w) / total_tokens where total_tokens counts every
// token produced by tokenization, including out-of-vocabulary tokens. OOV
// tokens therefore dilute the weights of known tokens but contribute no
// feature weight of their own.
type TfidfEncoder struct {
	vocab     *artifacts.Vocabulary
	normalize bool
	logger    *zap.Logger
}

// NewTfidfEncoder creates a TF-IDF encoder. The normalize flag enables L2
// normalization of the output vector; it is a fixed per-deployment policy
// matching how the model was trained, never decided per input.
func NewTfidfEncoder(vocab *artifacts.Vocabulary, normalize bool, logger *zap.Logger) *TfidfEncoder {
	logger.Info("TF-IDF encoder ready",
		zap.Int("feature_dim", vocab.Dim()),
		zap.Int("vocabulary_tokens", len(vocab.Index)),
		zap.Bool("l2_normalize", normalize))

	return &TfidfEncoder{vocab: vocab, normalize: normalize, logger: logger}
}

// Kind returns KindTfidf.
func (e *TfidfEncoder) Kind() Kind { return KindTfidf }

// Dim returns the feature dimension.
func (e *TfidfEncoder) Dim() int { return e.vocab.Dim() }

// Encode converts text into a float32 vector of length Dim. Empty or
// whitespace-only input yields the zero vector.
func (e *TfidfEncoder) Encode(text string) *FeatureVector {
	features := make([]float32, e.vocab.Dim())

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return &FeatureVector{Floats: features}
	}

	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	total := float32(len(tokens))

	for token, count := range counts {
		idx, ok := e.vocab.Index[token]
		if !ok {
			continue
		}
		tf := float32(count) / total
		features[idx] = tf * e.vocab.IDF[idx]
	}

	if e.normalize {
		l2Normalize(features)
	}

	return &FeatureVector{Floats: features}
}
