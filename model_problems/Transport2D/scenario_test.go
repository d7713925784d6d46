package Transport2D

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/types"
)

// A constant concentration is an exact solution of the transport
// equation with zero velocity and source, so a trained surrogate should
// reproduce it closely and the mass integral should not drift.
func TestConstantFieldScenario(t *testing.T) {
	ip := InputParameters.Defaults()
	ip.Title = "constant"
	ip.Diffusivity = 0.01
	ip.InitType = "gaussian"
	// Sigma far above the domain size makes the initial bump flat, the
	// field is 0.3 to within 1e-4 everywhere
	ip.InitParams = map[string]float64{"Amplitude": 0.3, "X0": 0.5, "Y0": 0.5, "Sigma": 100}
	for i := range ip.BCs {
		ip.BCs[i].Value = 0.3
	}
	ip.HiddenLayers = []int{8}
	ip.MaxIterations = 3000
	ip.LearningRate = 0.003
	ip.NumInterior = 128
	ip.NumBoundary = 48
	ip.NumInitial = 32
	ip.LogEvery = 100000
	ip.ParallelDegree = 1
	ip.AuditMassSide = 24

	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	rep, err := c.Train(context.Background(), nil)
	assert.NoError(t, err)
	assert.NotNil(t, rep)
	assert.NotEqual(t, types.StatusDiverged, rep.Status)
	assert.Less(t, rep.BestLoss, rep.LossHistory[0])

	{ // The trained field is the constant everywhere in the window
		p := c.Predictor()
		_, _, C, perr := p.PredictGrid(21, 21, 0.5)
		assert.NoError(t, perr)
		var sum, worst float64
		for _, v := range C {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			e := math.Abs(v - 0.3)
			sum += e
			if e > worst {
				worst = e
			}
		}
		assert.Less(t, sum/float64(len(C)), 0.01, "mean error from the constant solution")
		assert.Less(t, worst, 0.06, "worst error from the constant solution")
	}

	{ // Zero source and matching boundaries conserve the dissolved mass
		assert.NotNil(t, rep.Mass)
		assert.Equal(t, 2, len(rep.Mass.Mass))
		assert.Less(t, rep.Mass.Drift(), 0.02)
		assert.True(t, near(rep.Mass.Mass[0], 0.3*c.Dom.Area(), 0.05),
			"mass %v should integrate the constant over the domain", rep.Mass.Mass[0])
	}
}

// A step of concentration released at the left edge into a clean domain
// forms an advected diffusive front. The trained profile along the
// centerline must stay high behind the front, fall monotonically
// through it, and stay clean far ahead of it.
func TestAdvectionFrontScenario(t *testing.T) {
	ip := InputParameters.Defaults()
	ip.Title = "front"
	ip.FinalTime = 0.4
	ip.Diffusivity = 0.01
	ip.Velocity = [2]float64{0.1, 0}
	ip.BCs = []InputParameters.BoundarySpec{
		{Name: "inflow", Edge: "left", Type: "dirichlet", Value: 1},
		{Name: "outflow", Edge: "right", Type: "dirichlet", Value: 0},
		{Name: "bed", Edge: "bottom", Type: "neumann", Flux: 0},
		{Name: "surface", Edge: "top", Type: "neumann", Flux: 0},
	}
	ip.HiddenLayers = []int{12, 12}
	ip.MaxIterations = 5000
	ip.LearningRate = 0.003
	ip.NumInterior = 768
	ip.NumBoundary = 128
	ip.NumInitial = 64
	ip.LogEvery = 100000
	ip.ParallelDegree = 0

	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	rep, err := c.Train(context.Background(), nil)
	assert.NoError(t, err)
	assert.NotEqual(t, types.StatusDiverged, rep.Status)

	var (
		p        = c.Predictor()
		stations = []float64{0.05, 0.25, 0.5, 0.75, 0.95}
		C        = make([]float64, len(stations))
	)
	for i, x := range stations {
		pt, perr := sampler.NewPoint(x, 0.5, ip.FinalTime)
		assert.NoError(t, perr)
		v, perr := p.Predict([]sampler.Point{pt})
		assert.NoError(t, perr)
		C[i] = v[0]
	}
	assert.Greater(t, C[0], 0.5, "behind the front the field stays near the inflow value")
	assert.Less(t, C[len(C)-1], 0.15, "ahead of the front the field stays clean")
	for i := 1; i < len(C); i++ {
		assert.LessOrEqual(t, C[i], C[i-1]+0.03,
			"profile rises from x=%v to x=%v", stations[i-1], stations[i])
	}
}
