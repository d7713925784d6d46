package logging

import (
	"time"

	"go.uber.org/zap"

	"github.com/hydronet/gopinn/telemetry"
)

// EventLog emits the structured training event stream. It wraps zap so
// callers never touch the logging backend directly
type EventLog struct {
	z *zap.Logger
}

// NewEventLog builds a logger for a training run. Verbose selects the
// human readable development encoder, otherwise events are JSON
func NewEventLog(verbose bool) (el *EventLog, err error) {
	var z *zap.Logger
	if verbose {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &EventLog{z: z}, nil
}

// Nop returns a logger that discards everything. Tests and library
// callers that bring their own logging use this
func Nop() *EventLog {
	return &EventLog{z: zap.NewNop()}
}

func (el *EventLog) Sync() {
	_ = el.z.Sync()
}

func (el *EventLog) RunStart(runID string, layerDims []int, activation string, nParams int) {
	el.z.Info("Training run starting",
		zap.String("runID", runID),
		zap.Ints("layerDims", layerDims),
		zap.String("activation", activation),
		zap.Int("parameters", nParams),
	)
}

func (el *EventLog) Iteration(iter int, total, physics, boundary, initial, data, lr float64) {
	el.z.Info("Iteration complete",
		zap.Int("iteration", iter),
		zap.Float64("loss", total),
		zap.Float64("lossPhysics", physics),
		zap.Float64("lossBoundary", boundary),
		zap.Float64("lossInitial", initial),
		zap.Float64("lossData", data),
		zap.Float64("learningRate", lr),
	)
}

func (el *EventLog) SampleRefresh(iter, nInterior, nBoundary, nInitial int) {
	el.z.Info("Collocation points refreshed",
		zap.Int("iteration", iter),
		zap.Int("interior", nInterior),
		zap.Int("boundary", nBoundary),
		zap.Int("initial", nInitial),
	)
}

func (el *EventLog) Checkpoint(iter int, path string) {
	el.z.Info("Checkpoint written",
		zap.Int("iteration", iter),
		zap.String("path", path),
	)
}

func (el *EventLog) Instability(iter, streak, limit int) {
	el.z.Warn("Non finite loss detected",
		zap.Int("iteration", iter),
		zap.Int("streak", streak),
		zap.Int("limit", limit),
	)
}

func (el *EventLog) Divergence(iter int, loss, floor float64) {
	el.z.Warn("Loss diverging from historical floor",
		zap.Int("iteration", iter),
		zap.Float64("loss", loss),
		zap.Float64("floor", floor),
	)
}

func (el *EventLog) Telemetry(iter int, s telemetry.Snapshot) {
	el.z.Debug("Resource snapshot",
		zap.Int("iteration", iter),
		zap.Uint64("heapAllocMiB", s.HeapAllocMiB),
		zap.Uint64("totalAllocMiB", s.TotalAllocMiB),
		zap.Uint32("gcCycles", s.GCCycles),
		zap.Int("goroutines", s.Goroutines),
		zap.Uint64("pageFaults", s.PageFaults),
		zap.Uint64("contextSwitches", s.ContextSwitches),
		zap.Uint64("cpuMigrations", s.CPUMigrations),
	)
}

func (el *EventLog) RunEnd(runID, status string, iters int, finalLoss float64, elapsed time.Duration) {
	el.z.Info("Training run finished",
		zap.String("runID", runID),
		zap.String("status", status),
		zap.Int("iterations", iters),
		zap.Float64("finalLoss", finalLoss),
		zap.Duration("elapsed", elapsed),
	)
}
