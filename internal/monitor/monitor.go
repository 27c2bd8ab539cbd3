package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Snapshot captures system resource usage at one point in time.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryTotalGB float64   `json:"memory_total_gb"`
	Goroutines    int       `json:"goroutines"`
}

// SystemMonitor samples CPU and memory usage and keeps a bounded history of
// recent snapshots.
type SystemMonitor struct {
	mu          sync.RWMutex
	history     []Snapshot
	historySize int
	memoryGB    float64
	logger      *logrus.Logger
}

// NewSystemMonitor creates a monitor keeping up to historySize snapshots.
func NewSystemMonitor(logger *logrus.Logger, historySize int) *SystemMonitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if historySize <= 0 {
		historySize = 60
	}

	m := &SystemMonitor{
		historySize: historySize,
		logger:      logger,
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		m.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		m.logger.WithError(err).Warn("Could not get memory info, using default")
		m.memoryGB = 8.0
	}

	return m
}

// Sample reads current system metrics and appends them to the history.
func (m *SystemMonitor) Sample(ctx context.Context) (Snapshot, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get CPU usage: %w", err)
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get memory usage: %w", err)
	}

	snapshot := Snapshot{
		Timestamp:     time.Now(),
		MemoryPercent: memInfo.UsedPercent,
		MemoryTotalGB: m.memoryGB,
		Goroutines:    runtime.NumGoroutine(),
	}
	if len(cpuPercent) > 0 {
		snapshot.CPUPercent = cpuPercent[0]
	}

	m.mu.Lock()
	m.history = append(m.history, snapshot)
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
	m.mu.Unlock()

	return snapshot, nil
}

// Latest returns the most recent snapshot, if any.
func (m *SystemMonitor) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return Snapshot{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns a copy of the recorded snapshots, oldest first.
func (m *SystemMonitor) History() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out
}

// Run samples at the given interval until the context is cancelled.
func (m *SystemMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sample(ctx); err != nil {
				m.logger.WithError(err).Warn("System metrics sample failed")
			}
		}
	}
}
