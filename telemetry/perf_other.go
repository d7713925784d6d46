//go:build !linux

package telemetry

func newPlatformCollector() Collector {
	return runtimeCollector{}
}
