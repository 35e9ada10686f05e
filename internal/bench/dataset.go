package bench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// datasetRecord is one benchmark input row. Only the text column matters;
// label columns present in classification datasets are ignored.
type datasetRecord struct {
	Text string `json:"text" parquet:"text"`
}

// LoadDataset reads benchmark input texts from a CSV, Parquet, or
// JSON-lines file, chosen by extension. Empty texts are skipped.
func LoadDataset(path string, logger *zap.Logger) ([]string, error) {
	var (
		texts []string
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		texts, err = loadCSV(path, logger)
	case ".parquet":
		texts, err = loadParquet(path, logger)
	case ".json", ".jsonl", ".ndjson":
		texts, err = loadJSONLines(path, logger)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("dataset %s contains no usable texts", path)
	}

	logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("texts", len(texts)))

	return texts, nil
}

// loadCSV reads the first column of each row, skipping the header.
func loadCSV(path string, logger *zap.Logger) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var texts []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("Skipping malformed CSV record", zap.Error(err))
			continue
		}
		if len(record) == 0 {
			continue
		}
		if text := strings.TrimSpace(record[0]); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

func loadParquet(path string, logger *zap.Logger) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	var texts []string
	for {
		var record datasetRecord
		err := reader.Read(&record)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("Skipping malformed Parquet record", zap.Error(err))
			continue
		}
		if text := strings.TrimSpace(record.Text); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// loadJSONLines reads a stream of {"text": ...} objects.
func loadJSONLines(path string, logger *zap.Logger) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	var texts []string
	for {
		var record datasetRecord
		err := decoder.Decode(&record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON record: %w", err)
		}
		if text := strings.TrimSpace(record.Text); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}
