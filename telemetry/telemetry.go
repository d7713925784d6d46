package telemetry

import (
	"runtime"
)

// Snapshot captures process resource counters at one training instant.
// Kernel counters stay zero on platforms without a perf collector
type Snapshot struct {
	HeapAllocMiB    uint64
	TotalAllocMiB   uint64
	SysMiB          uint64
	GCCycles        uint32
	Goroutines      int
	PageFaults      uint64
	ContextSwitches uint64
	CPUMigrations   uint64
}

// Collector accumulates counters between snapshots. Start arms the
// kernel side counters where present, Close releases them
type Collector interface {
	Start() error
	Snapshot() Snapshot
	Close() error
}

// NewCollector returns the richest collector the platform supports
func NewCollector() Collector {
	return newPlatformCollector()
}

type runtimeCollector struct{}

func (rc runtimeCollector) Start() error { return nil }
func (rc runtimeCollector) Close() error { return nil }

func (rc runtimeCollector) Snapshot() (s Snapshot) {
	fillRuntime(&s)
	return
}

func fillRuntime(s *Snapshot) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocMiB = toMiB(ms.HeapAlloc)
	s.TotalAllocMiB = toMiB(ms.TotalAlloc)
	s.SysMiB = toMiB(ms.Sys)
	s.GCCycles = ms.NumGC
	s.Goroutines = runtime.NumGoroutine()
}

func toMiB(b uint64) uint64 {
	return b / 1024 / 1024
}
