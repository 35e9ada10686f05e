package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tclab/textbench/internal/cache"
	"github.com/tclab/textbench/internal/inference"
	"go.uber.org/zap"
)

// classifyRequest is the body of a POST /classify call
type classifyRequest struct {
	Text string `json:"text"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"name":"textbench",
		"encoder":"%s",
		"cache_enabled":%t
	}`, s.config.Encoder.Type, s.features != nil)
}

// handleStats reports feature-cache hit statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := cache.Stats{}
	if s.features != nil {
		stats = s.features.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error("Failed to encode cache stats", zap.Error(err))
	}
}

// handleClassify runs the full pipeline for one text
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Missing text field", http.StatusBadRequest)
		return
	}

	pred, err := s.classifier.Classify(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("Classification failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, inference.ErrShapeMismatch) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, "Classification failed", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(pred); err != nil {
		s.logger.Error("Failed to encode prediction", zap.Error(err))
	}
}
