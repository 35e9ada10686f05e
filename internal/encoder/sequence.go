package encoder

import (
	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
)

// DefaultSequenceLength is the fixed output length when the configuration
// does not specify one.
const DefaultSequenceLength = 30

// SequenceEncoder converts text into a fixed-length int32 token sequence.
// Unknown tokens map to the OOV id, short inputs are zero-padded, and
// tokens beyond the sequence length are silently discarded.
type SequenceEncoder struct {
	tokens *artifacts.TokenMap
	seqLen int
	logger *zap.Logger
}

// NewSequenceEncoder creates a sequence encoder with the given fixed output
// length. A non-positive length falls back to DefaultSequenceLength.
func NewSequenceEncoder(tokens *artifacts.TokenMap, seqLen int, logger *zap.Logger) *SequenceEncoder {
	if seqLen <= 0 {
		seqLen = DefaultSequenceLength
	}

	logger.Info("Sequence encoder ready",
		zap.Int("sequence_length", seqLen),
		zap.Int32("vocab_size", tokens.VocabSize),
		zap.Int32("oov_id", tokens.OOVID))

	return &SequenceEncoder{tokens: tokens, seqLen: seqLen, logger: logger}
}

// Kind returns KindSequence.
func (e *SequenceEncoder) Kind() Kind { return KindSequence }

// Dim returns the fixed sequence length.
func (e *SequenceEncoder) Dim() int { return e.seqLen }

// Encode converts text into exactly seqLen int32 ids, each in
// [0, VocabSize).
func (e *SequenceEncoder) Encode(text string) *FeatureVector {
	ids := make([]int32, e.seqLen)

	tokens := tokenize(text)
	for p := 0; p < e.seqLen && p < len(tokens); p++ {
		if id, ok := e.tokens.IDs[tokens[p]]; ok {
			ids[p] = id
		} else {
			ids[p] = e.tokens.OOVID
		}
	}

	return &FeatureVector{Ints: ids}
}
