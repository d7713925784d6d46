package Transport2D

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
)

func TestPDEResidual(t *testing.T) {
	// A jet filled with the analytic plume derivatives must zero the
	// residual, the plume solves the source free equation exactly
	var (
		p   = physics.Plume{Mass: 1, X0: 0.1, Y0: -0.2, D: 0.05, Vx: 0.4, Vy: -0.1}
		pts = [][3]float64{
			{0.3, 0.1, 0.5},
			{-0.2, 0.4, 1.0},
			{0.7, -0.5, 0.25},
			{0.0, 0.0, 2.0},
		}
		n = len(pts)
	)
	rng := rand.New(rand.NewPCG(1, 2))
	net, err := mlp.NewNetwork([]int{4}, types.Tanh, rng)
	assert.NoError(t, err)
	var (
		jet = net.NewJet(n)
		set = sampler.InteriorSet{
			X:  utils.NewMatrix(n, 3),
			D:  utils.NewVector(n),
			Vx: utils.NewVector(n),
			Vy: utils.NewVector(n),
			S:  utils.NewVector(n),
		}
		R = utils.NewVector(n)
	)
	for i, pt := range pts {
		c0, cx, cy, ct, cxx, cyy := p.Jet(pt[0], pt[1], pt[2])
		jet.C.DataP[i], jet.Cx.DataP[i], jet.Cy.DataP[i] = c0, cx, cy
		jet.Ct.DataP[i], jet.Cxx.DataP[i], jet.Cyy.DataP[i] = ct, cxx, cyy
		set.D.DataP[i], set.Vx.DataP[i], set.Vy.DataP[i] = p.D, p.Vx, p.Vy
		copy(set.X.DataP[3*i:3*i+3], pt[:])
	}
	PDEResidual(jet, set, R)
	for i := 0; i < n; i++ {
		assert.True(t, near(R.DataP[i], 0, 1.e-10))
	}

	{ // A perturbed value channel shows up through the diffusion term
		jet.Cxx.DataP[0] += 1
		PDEResidual(jet, set, R)
		assert.True(t, near(R.DataP[0], -p.D, 1.e-10))
	}
}

func TestLossGradient(t *testing.T) {
	// The assembled gradient against central differences of the total
	// loss, term weights and batch denominators folded in
	var (
		ip = smallParams()
		h  = 1.e-5
	)
	ip.HiddenLayers = []int{6}
	ip.NumInterior = 16
	ip.NumBoundary = 8
	ip.NumInitial = 8
	ip.Observations = []InputParameters.Observation{
		{X: 0.4, Y: 0.5, T: 0.3, C: 0.2},
		{X: 0.6, Y: 0.5, T: 0.7, C: 0.1},
	}
	ip.WeightData = 1.5
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	assert.NoError(t, c.refreshSets())

	var (
		w     = c.Agg.Weights(0)
		parts = c.computeLossAndGradient(w)
		grad  = append([]float64{}, c.grad...)
		nP    = len(c.params)
	)
	assert.True(t, parts.Finite())
	assert.True(t, parts.Data > 0)

	lossAt := func() float64 {
		assert.NoError(t, c.Net.SetParameters(c.params))
		return c.computeLossAndGradient(w).Total(w)
	}
	for _, i := range []int{0, 1, nP / 3, nP / 2, 2 * nP / 3, nP - 2, nP - 1} {
		p0 := c.params[i]
		c.params[i] = p0 + h
		lp := lossAt()
		c.params[i] = p0 - h
		lm := lossAt()
		c.params[i] = p0
		assert.NoError(t, c.Net.SetParameters(c.params))

		fd := (lp - lm) / (2 * h)
		assert.True(t, math.Abs(grad[i]-fd) <= 1.e-6+1.e-4*math.Abs(grad[i]),
			"parameter %d: analytic %v, finite difference %v", i, grad[i], fd)
	}
}
