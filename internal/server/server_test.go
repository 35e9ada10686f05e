package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
	"github.com/tclab/textbench/internal/config"
	"github.com/tclab/textbench/internal/encoder"
	"github.com/tclab/textbench/internal/inference"
	"github.com/tclab/textbench/internal/logger"
	"github.com/tclab/textbench/internal/pipeline"
)

type fakeInvoker struct {
	scores []float32
}

func (f *fakeInvoker) Run(ctx context.Context, vec *encoder.FeatureVector) ([]float32, error) {
	out := make([]float32, len(f.scores))
	copy(out, f.scores)
	return out, nil
}

func (f *fakeInvoker) Signature() inference.Signature {
	return inference.Signature{InputName: "input", OutputName: "output", InputLen: 4}
}

func (f *fakeInvoker) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	vocab := &artifacts.Vocabulary{
		Index: map[string]int{"good": 0, "bad": 1},
		IDF:   []float32{1.0, 1.0},
	}
	enc := encoder.NewTfidfEncoder(vocab, false, zap.NewNop())

	labels := &artifacts.LabelMap{Labels: map[int]string{0: "benign", 1: "malicious"}}
	classifier := pipeline.New(enc, &fakeInvoker{scores: []float32{0.2, 3.1}}, pipeline.Options{
		Labels: labels,
	}, zap.NewNop())

	cfg := config.GetDefaults()
	log := &logger.Logger{Logger: zap.NewNop()}
	return New(cfg, log, classifier, nil)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %q", body["status"])
	}
}

func TestHandleClassify(t *testing.T) {
	srv := newTestServer(t)

	t.Run("valid request", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"text": "this is bad"})
		req := httptest.NewRequest("POST", "/classify", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var pred pipeline.Prediction
		if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
			t.Fatalf("Failed to parse prediction: %v", err)
		}
		if pred.Label != "malicious" {
			t.Errorf("Expected label malicious, got %q", pred.Label)
		}
		if pred.ClassIndex != 1 {
			t.Errorf("Expected class index 1, got %d", pred.ClassIndex)
		}
		if pred.Timing.TotalMs <= 0 {
			t.Error("Expected positive total timing")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"text": "   "})
		req := httptest.NewRequest("POST", "/classify", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/classify", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/stats", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}
