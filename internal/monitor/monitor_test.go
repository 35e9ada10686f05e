package monitor

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMonitorLifecycle(t *testing.T) {
	logger := zap.NewNop()

	t.Run("CollectsSamples", func(t *testing.T) {
		m := New(100*time.Millisecond, logger)
		if err := m.Start(); err != nil {
			t.Fatalf("Failed to start monitor: %v", err)
		}

		time.Sleep(250 * time.Millisecond)

		stats, err := m.Stop()
		if err != nil {
			t.Fatalf("Failed to stop monitor: %v", err)
		}
		if stats.CPUSampleCount < 2 {
			t.Errorf("Expected at least 2 samples after 250ms at 100ms period, got %d", stats.CPUSampleCount)
		}
		if len(stats.CPUSamples) != stats.CPUSampleCount {
			t.Errorf("Sample slice length %d != count %d", len(stats.CPUSamples), stats.CPUSampleCount)
		}
		if stats.CPUMaxPercent < stats.CPUAvgPercent {
			t.Errorf("Max %f below avg %f", stats.CPUMaxPercent, stats.CPUAvgPercent)
		}
	})

	t.Run("DoubleStart", func(t *testing.T) {
		m := New(100*time.Millisecond, logger)
		if err := m.Start(); err != nil {
			t.Fatalf("Failed to start monitor: %v", err)
		}
		if err := m.Start(); !errors.Is(err, ErrState) {
			t.Errorf("Expected ErrState on double start, got %v", err)
		}
		if _, err := m.Stop(); err != nil {
			t.Fatalf("Failed to stop monitor: %v", err)
		}
	})

	t.Run("StopWithoutStart", func(t *testing.T) {
		m := New(100*time.Millisecond, logger)
		if _, err := m.Stop(); !errors.Is(err, ErrState) {
			t.Errorf("Expected ErrState, got %v", err)
		}
	})

	t.Run("SingleUse", func(t *testing.T) {
		m := New(50*time.Millisecond, logger)
		if err := m.Start(); err != nil {
			t.Fatalf("Failed to start monitor: %v", err)
		}
		if _, err := m.Stop(); err != nil {
			t.Fatalf("Failed to stop monitor: %v", err)
		}
		if err := m.Start(); !errors.Is(err, ErrState) {
			t.Errorf("Expected ErrState restarting a stopped monitor, got %v", err)
		}
		if m.State() != StateStopped {
			t.Errorf("Expected StateStopped, got %d", m.State())
		}
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		m := New(0, logger)
		if m.interval != DefaultSampleInterval {
			t.Errorf("Expected default interval %v, got %v", DefaultSampleInterval, m.interval)
		}
	})
}
