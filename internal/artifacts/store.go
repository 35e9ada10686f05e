package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Store loads and validates the JSON artifacts the pipeline depends on.
// Every Load method returns an immutable artifact or one of ErrNotFound,
// ErrParse, ErrValidation wrapped with the offending path.
type Store struct {
	logger *zap.Logger
}

// NewStore creates an artifact store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// readFile reads an artifact file, mapping a missing file to ErrNotFound.
func (s *Store) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	return data, nil
}

// LoadVocabulary loads a TF-IDF vocabulary artifact:
// {"vocab": {token: index, ...}, "idf": [float, ...]}.
func (s *Store) LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Vocab map[string]int `json:"vocab"`
		IDF   []float64      `json:"idf"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if raw.Vocab == nil {
		return nil, fmt.Errorf("%w: %s: missing required key %q", ErrParse, path, "vocab")
	}
	if raw.IDF == nil {
		return nil, fmt.Errorf("%w: %s: missing required key %q", ErrParse, path, "idf")
	}

	dim := len(raw.IDF)
	if dim == 0 {
		return nil, fmt.Errorf("%w: %s: empty idf table", ErrValidation, path)
	}

	seen := make(map[int]string, len(raw.Vocab))
	for token, idx := range raw.Vocab {
		if idx < 0 || idx >= dim {
			return nil, fmt.Errorf("%w: %s: token %q index %d out of range [0,%d)",
				ErrValidation, path, token, idx, dim)
		}
		if prev, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%w: %s: tokens %q and %q share index %d",
				ErrValidation, path, prev, token, idx)
		}
		seen[idx] = token
	}

	idf := make([]float32, dim)
	for i, v := range raw.IDF {
		idf[i] = float32(v)
	}

	s.logger.Info("Vocabulary loaded",
		zap.String("path", path),
		zap.Int("tokens", len(raw.Vocab)),
		zap.Int("feature_dim", dim))

	return &Vocabulary{Index: raw.Vocab, IDF: idf}, nil
}

// LoadScaler loads a standardization artifact:
// {"mean": [float, ...], "scale": [float, ...]}.
// When featureDim > 0, both arrays must match it exactly.
func (s *Store) LoadScaler(path string, featureDim int) (*ScalerParams, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if raw.Mean == nil {
		return nil, fmt.Errorf("%w: %s: missing required key %q", ErrParse, path, "mean")
	}
	if raw.Scale == nil {
		return nil, fmt.Errorf("%w: %s: missing required key %q", ErrParse, path, "scale")
	}

	if len(raw.Mean) != len(raw.Scale) {
		return nil, fmt.Errorf("%w: %s: mean length %d != scale length %d",
			ErrValidation, path, len(raw.Mean), len(raw.Scale))
	}
	if featureDim > 0 && len(raw.Mean) != featureDim {
		return nil, fmt.Errorf("%w: %s: scaler dimension %d does not match feature dimension %d",
			ErrValidation, path, len(raw.Mean), featureDim)
	}
	for i, v := range raw.Scale {
		if v == 0 {
			return nil, fmt.Errorf("%w: %s: scale[%d] is zero", ErrValidation, path, i)
		}
	}

	params := &ScalerParams{
		Mean:  make([]float32, len(raw.Mean)),
		Scale: make([]float32, len(raw.Scale)),
	}
	for i := range raw.Mean {
		params.Mean[i] = float32(raw.Mean[i])
		params.Scale[i] = float32(raw.Scale[i])
	}

	s.logger.Info("Scaler loaded",
		zap.String("path", path),
		zap.Int("feature_dim", params.Dim()))

	return params, nil
}

// LoadTokenMap loads a sequence token map: {token: id, ..., "<OOV>": id}.
// When no explicit OOV entry exists, OOVFallbackID is used.
func (s *Store) LoadTokenMap(path string) (*TokenMap, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]int32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s: empty token map", ErrValidation, path)
	}

	var maxID int32
	for token, id := range raw {
		if id < 0 {
			return nil, fmt.Errorf("%w: %s: token %q has negative id %d",
				ErrValidation, path, token, id)
		}
		if id > maxID {
			maxID = id
		}
	}

	oovID, hasOOV := raw[OOVToken]
	if !hasOOV {
		oovID = OOVFallbackID
		s.logger.Warn("Token map has no <OOV> entry, using fallback id",
			zap.String("path", path),
			zap.Int32("oov_id", oovID))
	}
	if oovID > maxID {
		maxID = oovID
	}

	s.logger.Info("Token map loaded",
		zap.String("path", path),
		zap.Int("tokens", len(raw)),
		zap.Int32("oov_id", oovID),
		zap.Int32("vocab_size", maxID+1))

	return &TokenMap{IDs: raw, OOVID: oovID, VocabSize: maxID + 1}, nil
}

// LoadLabels loads a display label map: {"0": "negative", "1": "positive"}.
func (s *Store) LoadLabels(path string) (*LabelMap, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s: empty label map", ErrValidation, path)
	}

	labels := make(map[int]string, len(raw))
	for key, label := range raw {
		class, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: class index %q is not an integer", ErrParse, path, key)
		}
		if class < 0 {
			return nil, fmt.Errorf("%w: %s: negative class index %d", ErrValidation, path, class)
		}
		labels[class] = label
	}

	s.logger.Info("Label map loaded",
		zap.String("path", path),
		zap.Int("classes", len(labels)))

	return &LabelMap{Labels: labels}, nil
}
