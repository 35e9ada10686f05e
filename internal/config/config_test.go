package config

import (
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		if err := validateConfig(GetDefaults()); err != nil {
			t.Errorf("Default configuration should validate: %v", err)
		}
	})

	t.Run("BadEncoderType", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Encoder.Type = "bagofwords"
		if err := validateConfig(cfg); err == nil || !strings.Contains(err.Error(), "encoder type") {
			t.Errorf("Expected encoder type error, got %v", err)
		}
	})

	t.Run("BadSequenceLength", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Encoder.Type = "sequence"
		cfg.Encoder.SequenceLength = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected sequence length error")
		}
	})

	t.Run("BadSampleInterval", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Monitor.SampleInterval = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected sample interval error")
		}
	})

	t.Run("NegativeTargetRate", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Benchmark.TargetRate = -1
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected target rate error")
		}
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected log level error")
		}
	})
}
