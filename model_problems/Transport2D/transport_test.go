package Transport2D

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/types"
	"github.com/stretchr/testify/assert"
)

// smallParams is a fast configuration for unit runs, a few dozen
// collocation points and a small net
func smallParams() (ip *InputParameters.TransportParameters) {
	ip = InputParameters.Defaults()
	ip.Title = "unit"
	ip.Velocity = [2]float64{0.5, 0}
	ip.InitType = "gaussian"
	ip.InitParams = map[string]float64{"Amplitude": 1, "X0": 0.3, "Y0": 0.5, "Sigma": 0.1}
	ip.HiddenLayers = []int{8, 8}
	ip.MaxIterations = 30
	ip.NumInterior = 64
	ip.NumBoundary = 32
	ip.NumInitial = 16
	ip.LogEvery = 1000
	ip.ParallelDegree = 1
	return
}

func TestTransportConfiguration(t *testing.T) {
	{ // Field range violations surface as typed configuration errors
		ip := smallParams()
		ip.Diffusivity = 0
		_, err := NewTransport(ip, false)
		assert.Error(t, err)
		var cfg *ConfigurationError
		assert.True(t, errors.As(err, &cfg))
	}
	{ // Unknown activation is caught before any allocation
		ip := smallParams()
		ip.Activation = "relu"
		_, err := NewTransport(ip, false)
		assert.Error(t, err)
		var cfg *ConfigurationError
		assert.True(t, errors.As(err, &cfg))
	}
	{ // Partial boundary coverage is rejected by the encoder
		ip := smallParams()
		ip.BCs = ip.BCs[:3]
		_, err := NewTransport(ip, false)
		assert.Error(t, err)
		var cfg *ConfigurationError
		assert.True(t, errors.As(err, &cfg))
		assert.Contains(t, err.Error(), "has no boundary condition")
	}
	{ // A valid configuration builds a ready solver
		c, err := NewTransport(smallParams(), false)
		assert.NoError(t, err)
		assert.Equal(t, types.Initializing, c.State)
		assert.NotEmpty(t, c.RunID)
		assert.Equal(t, c.Net.NumParameters(), len(c.params))
	}
}

func TestTransportTrains(t *testing.T) {
	var (
		ip  = smallParams()
		ctx = context.Background()
	)
	ip.MaxIterations = 60
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	rep, err := c.Train(ctx, nil)
	assert.NoError(t, err)
	assert.NotNil(t, rep)
	assert.Equal(t, c.RunID, rep.RunID)
	assert.Equal(t, rep.Iterations, len(rep.LossHistory))
	assert.True(t, rep.Iterations > 0)
	assert.Equal(t, types.Terminated, c.State)
	assert.True(t, c.State.Terminal())

	first := rep.LossHistory[0]
	last := rep.LossHistory[len(rep.LossHistory)-1]
	assert.False(t, math.IsNaN(last))
	assert.Less(t, last, first, "loss should decrease over the run")
	assert.True(t, rep.BestLoss <= first)

	// A finished solver refuses another run
	_, err = c.Train(ctx, nil)
	assert.Error(t, err)
}

func TestTransportReproducibility(t *testing.T) {
	var (
		ctx = context.Background()
	)
	run := func(seed uint64) (h, g, p []float64) {
		ip := smallParams()
		ip.MaxIterations = 25
		ip.Seed = seed
		c, err := NewTransport(ip, false)
		assert.NoError(t, err)
		rep, err := c.Train(ctx, nil)
		assert.NoError(t, err)
		g = make([]float64, len(rep.States))
		for i, ts := range rep.States {
			g[i] = ts.GradNorm
		}
		return rep.LossHistory, g, append([]float64{}, c.params...)
	}
	h1, g1, p1 := run(7)
	h2, g2, p2 := run(7)
	assert.Equal(t, h1, h2, "same seed must give a bit identical loss stream")
	assert.Equal(t, g1, g2, "same seed must give a bit identical gradient norm stream")
	assert.Equal(t, p1, p2, "same seed must give bit identical parameters")

	h3, _, _ := run(8)
	assert.NotEqual(t, h1, h3, "a different seed must change the trajectory")
}

func TestTransportParallelInvariance(t *testing.T) {
	var (
		ctx = context.Background()
	)
	run := func(np int) []float64 {
		ip := smallParams()
		ip.MaxIterations = 10
		ip.ParallelDegree = np
		c, err := NewTransport(ip, false)
		assert.NoError(t, err)
		assert.Equal(t, np, c.ParallelDegree)
		rep, err := c.Train(ctx, nil)
		assert.NoError(t, err)
		return rep.LossHistory
	}
	h1 := run(1)
	h4 := run(4)
	assert.Equal(t, len(h1), len(h4))
	// The first loss differs only by summation order across shards
	assert.InEpsilon(t, h1[0], h4[0], 1.e-10)
	for i := range h1 {
		assert.InEpsilon(t, h1[i], h4[i], 1.e-6, "iteration %d", i)
	}
}

func TestTransportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := NewTransport(smallParams(), false)
	assert.NoError(t, err)
	rep, err := c.Train(ctx, nil)
	assert.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, rep.Status)
	assert.Equal(t, 0, rep.Iterations)
	assert.Equal(t, types.Terminated, rep.FinalState)
}

func TestTransportInstability(t *testing.T) {
	{ // Non finite parameters trip the instability breaker
		ip := smallParams()
		ip.MaxNonFinite = 2
		c, err := NewTransport(ip, false)
		assert.NoError(t, err)
		c.params[0] = math.NaN()
		assert.NoError(t, c.Net.SetParameters(c.params))
		rep, err := c.Train(context.Background(), nil)
		assert.Error(t, err)
		var inst *InstabilityError
		assert.True(t, errors.As(err, &inst))
		assert.Equal(t, 2, inst.Streak)
		assert.Equal(t, types.StatusDiverged, rep.Status)
		assert.Equal(t, types.Diverged, rep.FinalState)
	}
	{ // A runaway learning rate trips the divergence floor test
		ip := smallParams()
		ip.LearningRate = 1.e10
		c, err := NewTransport(ip, false)
		assert.NoError(t, err)
		rep, err := c.Train(context.Background(), nil)
		assert.NoError(t, err)
		assert.Equal(t, types.StatusDiverged, rep.Status)
		assert.Equal(t, types.Diverged, rep.FinalState)
		assert.True(t, rep.Iterations < ip.MaxIterations)
	}
}

func TestTransportResume(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
	)
	// Uninterrupted reference run
	ipA := smallParams()
	ipA.MaxIterations = 40
	ipA.ResampleEvery = 10
	a, err := NewTransport(ipA, false)
	assert.NoError(t, err)
	repA, err := a.Train(ctx, nil)
	assert.NoError(t, err)
	assert.Equal(t, 40, repA.Iterations)

	// Same run, but checkpointing halfway
	ipB := smallParams()
	ipB.MaxIterations = 40
	ipB.ResampleEvery = 10
	ipB.CheckpointEvery = 20
	ipB.CheckpointDir = dir
	b, err := NewTransport(ipB, false)
	assert.NoError(t, err)
	_, err = b.Train(ctx, nil)
	assert.NoError(t, err)

	// Resume from the halfway bundle and run to the end
	r, err := ResumeTransport(filepath.Join(dir, "unit-000020.ckpt"), false)
	assert.NoError(t, err)
	assert.Equal(t, b.RunID, r.RunID)
	assert.Equal(t, 20, r.Iteration())
	assert.Equal(t, types.Training, r.State)
	repR, err := r.Train(ctx, nil)
	assert.NoError(t, err)
	assert.Equal(t, 40, repR.Iterations)

	// The resumed trajectory is bit identical to the uninterrupted one
	assert.Equal(t, repA.LossHistory[20:], repR.LossHistory)
	assert.Equal(t, a.params, r.params)
}

func TestTransportObservations(t *testing.T) {
	ip := smallParams()
	ip.MaxIterations = 10
	ip.Observations = []InputParameters.Observation{
		{X: 0.3, Y: 0.5, T: 0.1, C: 0.9},
		{X: 0.5, Y: 0.5, T: 0.5, C: 0.4},
	}
	ip.WeightData = 2
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	rep, err := c.Train(context.Background(), nil)
	assert.NoError(t, err)
	assert.True(t, rep.Parts.Data > 0, "observation misfit should contribute")
}

func TestTrainingStates(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
	)
	ip := smallParams()
	ip.MaxIterations = 30
	ip.CheckpointEvery = 10
	ip.CheckpointDir = dir
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	rep, err := c.Train(ctx, nil)
	assert.NoError(t, err)

	assert.Equal(t, rep.Iterations, len(rep.States))
	for i, ts := range rep.States {
		assert.Equal(t, i, ts.Iteration)
		assert.Equal(t, rep.LossHistory[i], ts.Total)
		assert.False(t, math.IsNaN(ts.GradNorm), "iteration %d took no step", i)
		assert.True(t, ts.GradNorm >= 0)
		assert.False(t, ts.Timestamp.IsZero())
	}
	// The snapshot reference trails the writes, iteration 9 completes the
	// tenth step and the write lands after its record
	assert.Equal(t, "", rep.States[9].Checkpoint)
	wantFirst := filepath.Join(dir, "unit-000010.ckpt")
	assert.Equal(t, wantFirst, rep.States[10].Checkpoint)

	assert.Equal(t, filepath.Join(dir, "unit-000030.ckpt"), rep.LastCheckpoint)
	assert.Equal(t, filepath.Join(dir, "unit-best.ckpt"), rep.BestCheckpoint)
	_, err = os.Stat(rep.BestCheckpoint)
	assert.NoError(t, err)

	// The best snapshot is a valid resume point
	r, err := ResumeTransport(rep.BestCheckpoint, false)
	assert.NoError(t, err)
	assert.True(t, r.Iteration() > 0)
}

func near(a, b float64, tolI ...float64) (l bool) {
	var (
		tol float64
	)
	if len(tolI) == 0 {
		tol = 1.e-08
	} else {
		tol = tolI[0]
	}
	bound := math.Max(tol, tol*math.Abs(a))
	if math.Abs(a-b) <= bound {
		l = true
	}
	return
}
