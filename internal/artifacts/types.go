package artifacts

import (
	"errors"
	"fmt"
)

// Load-time error categories. All artifact problems are surfaced before the
// first inference; nothing is deferred to call time.
var (
	// ErrNotFound indicates the artifact file does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrParse indicates malformed JSON or missing required keys.
	ErrParse = errors.New("artifact parse failed")
	// ErrValidation indicates an invariant violation in an otherwise
	// well-formed artifact (mismatched lengths, zero scale, bad indices).
	ErrValidation = errors.New("artifact validation failed")
)

// IsLoadError reports whether err belongs to the artifact error taxonomy.
// The CLI maps these to exit code 2.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrParse) || errors.Is(err, ErrValidation)
}

// Vocabulary holds the TF-IDF vocabulary and its index-aligned IDF table.
// Loaded once at startup and immutable thereafter.
type Vocabulary struct {
	Index map[string]int
	IDF   []float32
}

// Dim returns the feature dimension of the vocabulary.
func (v *Vocabulary) Dim() int {
	return len(v.IDF)
}

// ScalerParams holds per-feature standardization parameters. Both slices
// have the same length and every Scale entry is non-zero, enforced at load.
type ScalerParams struct {
	Mean  []float32
	Scale []float32
}

// Dim returns the feature dimension of the scaler.
func (p *ScalerParams) Dim() int {
	return len(p.Mean)
}

// OOVFallbackID is used for out-of-vocabulary tokens when the token map
// carries no explicit "<OOV>" entry.
const OOVFallbackID int32 = 1

// OOVToken is the reserved out-of-vocabulary key in sequence token maps.
const OOVToken = "<OOV>"

// TokenMap maps words to integer ids for the sequence encoding path.
type TokenMap struct {
	IDs       map[string]int32
	OOVID     int32
	VocabSize int32
}

// LabelMap maps output-class indices to display labels. It is consumed only
// for presentation and is not part of the numeric pipeline.
type LabelMap struct {
	Labels map[int]string
}

// Name returns the label for a class index, or a stable placeholder when
// the index is unmapped.
func (m *LabelMap) Name(class int) string {
	if m == nil {
		return fmt.Sprintf("class_%d", class)
	}
	if label, ok := m.Labels[class]; ok {
		return label
	}
	return fmt.Sprintf("class_%d", class)
}
