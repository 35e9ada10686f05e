package monitor

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// DefaultSampleInterval is the CPU sampling period.
const DefaultSampleInterval = 100 * time.Millisecond

// ErrState indicates an illegal Start/Stop transition.
var ErrState = errors.New("monitor state error")

// State is the monitor lifecycle: Idle -> Monitoring -> Stopped. A monitor
// is single-use; create a new one per measured interval.
type State int

const (
	StateIdle State = iota
	StateMonitoring
	StateStopped
)

// Stats holds the resource readings collected over one measured interval.
type Stats struct {
	CPUAvgPercent  float64   `json:"cpu_avg_percent"`
	CPUMaxPercent  float64   `json:"cpu_max_percent"`
	CPUSampleCount int       `json:"cpu_sample_count"`
	CPUSamples     []float64 `json:"cpu_samples,omitempty"`
	MemoryBeforeMB float64   `json:"memory_before_mb"`
	MemoryAfterMB  float64   `json:"memory_after_mb"`
}

// Monitor samples process CPU utilization on a background goroutine while
// the caller drives the pipeline. The sample buffer is the only shared
// mutable state and is always accessed under mu.
type Monitor struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu           sync.Mutex
	state        State
	samples      []float64
	memoryBefore float64

	stop chan struct{}
	done chan struct{}
}

// New creates an idle monitor. A non-positive interval falls back to
// DefaultSampleInterval.
func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("Process handle unavailable, memory readings disabled", zap.Error(err))
		proc = nil
	}
	return &Monitor{
		interval: interval,
		logger:   logger,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start transitions Idle -> Monitoring and spawns the sampling goroutine.
// Starting a monitor that is already Monitoring or Stopped is an error.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateMonitoring:
		return fmt.Errorf("%w: already monitoring", ErrState)
	case StateStopped:
		return fmt.Errorf("%w: monitor is single-use, create a new one", ErrState)
	}
	m.state = StateMonitoring
	m.memoryBefore = m.memoryMB()

	// Prime the delta-based CPU reading so the first tick measures the
	// interval since Start rather than since boot.
	_, _ = cpu.Percent(0, false)

	go m.sample()
	return nil
}

// sample appends one CPU reading per interval until stopped. The stop flag
// is checked once per period, so worst-case shutdown latency is one period.
func (m *Monitor) sample() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			percents, err := cpu.Percent(0, false)
			if err != nil || len(percents) == 0 {
				continue
			}
			m.mu.Lock()
			m.samples = append(m.samples, percents[0])
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Stop transitions Monitoring -> Stopped, waits for the sampler to finish
// its current tick, and aggregates the drained buffer. The returned Stats
// observe every sample appended before the last tick completed.
func (m *Monitor) Stop() (*Stats, error) {
	m.mu.Lock()
	if m.state != StateMonitoring {
		state := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: stop called in state %d", ErrState, state)
	}
	m.state = StateStopped
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{
		CPUSampleCount: len(m.samples),
		CPUSamples:     m.samples,
		MemoryBeforeMB: m.memoryBefore,
		MemoryAfterMB:  m.memoryMB(),
	}
	if len(m.samples) > 0 {
		var sum, max float64
		for _, s := range m.samples {
			sum += s
			if s > max {
				max = s
			}
		}
		stats.CPUAvgPercent = sum / float64(len(m.samples))
		stats.CPUMaxPercent = max
	}

	m.logger.Debug("Monitor stopped",
		zap.Int("cpu_samples", stats.CPUSampleCount),
		zap.Float64("cpu_avg_percent", stats.CPUAvgPercent),
		zap.Float64("cpu_max_percent", stats.CPUMaxPercent))

	return stats, nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// memoryMB reads the process resident set size in megabytes.
func (m *Monitor) memoryMB() float64 {
	if m.proc == nil {
		return 0
	}
	info, err := m.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return float64(info.RSS) / (1024 * 1024)
}
