//go:build linux

package telemetry

import (
	"os"

	perf "github.com/hodgesds/perf-utils"
)

// perfCollector reads kernel software counters for this process through
// the perf_event_open interface
type perfCollector struct {
	sw perf.SoftwareProfiler
}

func newPlatformCollector() Collector {
	sw, err := perf.NewSoftwareProfiler(os.Getpid(), -1)
	if err != nil {
		// perf_event_paranoid can block counter access, keep the
		// runtime only collector in that case
		return runtimeCollector{}
	}
	return &perfCollector{sw: sw}
}

func (pc *perfCollector) Start() error {
	return pc.sw.Start()
}

func (pc *perfCollector) Snapshot() (s Snapshot) {
	fillRuntime(&s)
	profile := &perf.SoftwareProfile{}
	if err := pc.sw.Profile(profile); err != nil {
		return
	}
	if profile.PageFaults != nil {
		s.PageFaults = *profile.PageFaults
	}
	if profile.ContextSwitches != nil {
		s.ContextSwitches = *profile.ContextSwitches
	}
	if profile.CPUMigrations != nil {
		s.CPUMigrations = *profile.CPUMigrations
	}
	return
}

func (pc *perfCollector) Close() error {
	_ = pc.sw.Stop()
	return pc.sw.Close()
}
