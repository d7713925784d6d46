package mlp

import (
	"math/rand/v2"
	"testing"

	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
	"github.com/stretchr/testify/assert"
)

// fdPoint evaluates the network at a single point, for finite differencing.
func fdPoint(nn *Network, x, y, tt float64) float64 {
	X := utils.NewMatrix(1, 3, []float64{x, y, tt})
	return nn.Forward(X).DataP[0]
}

func TestJet(t *testing.T) {
	pts := [][3]float64{
		{0.15, 0.35, 0.10},
		{0.80, 0.20, 0.90},
		{0.50, 0.50, 0.50},
		{0.05, 0.95, 0.30},
		{0.66, 0.10, 0.75},
	}
	for _, act := range []types.ActivationType{types.Tanh, types.Sigmoid, types.Sin, types.Softplus, types.Swish} {
		nn, err := NewNetwork([]int{12, 12}, act, rand.New(rand.NewPCG(101, 7)))
		assert.NoError(t, err)
		// Non-trivial scaling exercises the chain rule through normalization
		nn.SetInputScaling([3]float64{2, 2, 2}, [3]float64{-1, -1, -1})

		X := utils.NewMatrix(len(pts), 3)
		for i, p := range pts {
			X.DataP[i*3+0] = p[0]
			X.DataP[i*3+1] = p[1]
			X.DataP[i*3+2] = p[2]
		}
		jet := nn.JetForward(X)

		{ // Value channel equals the plain forward pass
			C := nn.Forward(X)
			assert.True(t, nearVec(C.DataP, jet.C.DataP, 1.e-14))
		}
		{ // First derivative channels against central differences
			h := 1.e-5
			for i, p := range pts {
				x, y, tt := p[0], p[1], p[2]
				fdX := (fdPoint(nn, x+h, y, tt) - fdPoint(nn, x-h, y, tt)) / (2 * h)
				fdY := (fdPoint(nn, x, y+h, tt) - fdPoint(nn, x, y-h, tt)) / (2 * h)
				fdT := (fdPoint(nn, x, y, tt+h) - fdPoint(nn, x, y, tt-h)) / (2 * h)
				assert.True(t, near(jet.Cx.DataP[i], fdX, 1.e-6), "act %s dx", act)
				assert.True(t, near(jet.Cy.DataP[i], fdY, 1.e-6), "act %s dy", act)
				assert.True(t, near(jet.Ct.DataP[i], fdT, 1.e-6), "act %s dt", act)
			}
		}
		{ // Second derivative channels against central differences
			h := 1.e-4
			for i, p := range pts {
				x, y, tt := p[0], p[1], p[2]
				c := fdPoint(nn, x, y, tt)
				fdXX := (fdPoint(nn, x+h, y, tt) - 2*c + fdPoint(nn, x-h, y, tt)) / (h * h)
				fdYY := (fdPoint(nn, x, y+h, tt) - 2*c + fdPoint(nn, x, y-h, tt)) / (h * h)
				assert.True(t, near(jet.Cxx.DataP[i], fdXX, 1.e-4), "act %s dxx", act)
				assert.True(t, near(jet.Cyy.DataP[i], fdYY, 1.e-4), "act %s dyy", act)
			}
		}
		{ // Buffer reuse reproduces the same channels
			saved := append([]float64{}, jet.Cxx.DataP...)
			jet2 := nn.JetForward(X, jet)
			assert.Equal(t, jet, jet2) // same buffers handed back
			assert.Equal(t, saved, jet2.Cxx.DataP)
		}
	}
}

func TestBackprop(t *testing.T) {
	var (
		nn, _ = NewNetwork([]int{6, 5}, types.Tanh, rand.New(rand.NewPCG(13, 31)))
		B     = 7
		rng   = rand.New(rand.NewPCG(99, 1))
	)
	nn.SetInputScaling([3]float64{2, 2, 1}, [3]float64{-1, -1, 0})
	X := utils.NewMatrix(B, 3)
	for i := range X.DataP {
		X.DataP[i] = rng.Float64()
	}

	// Transport-shaped scalar objective: L = mean over points of R^2 with
	// R = Ct + vx Cx + vy Cy - D (Cxx + Cyy) - 0.3 C. Its channel adjoints
	// follow from the chain rule; the parameter gradient must match finite
	// differences of L through the whole jet pipeline.
	const (
		vx, vy = 0.4, -0.2
		D      = 0.07
	)
	lossOf := func(nn *Network) float64 {
		jet := nn.JetForward(X)
		var sum float64
		for i := 0; i < B; i++ {
			r := jet.Ct.DataP[i] + vx*jet.Cx.DataP[i] + vy*jet.Cy.DataP[i] -
				D*(jet.Cxx.DataP[i]+jet.Cyy.DataP[i]) - 0.3*jet.C.DataP[i]
			sum += r * r
		}
		return sum / float64(B)
	}

	jet := nn.JetForward(X)
	var adj Adjoint
	for ch := 0; ch < NumChannels; ch++ {
		adj[ch] = utils.NewMatrix(B, 1)
	}
	for i := 0; i < B; i++ {
		r := jet.Ct.DataP[i] + vx*jet.Cx.DataP[i] + vy*jet.Cy.DataP[i] -
			D*(jet.Cxx.DataP[i]+jet.Cyy.DataP[i]) - 0.3*jet.C.DataP[i]
		scale := 2. * r / float64(B)
		adj[ChVal].DataP[i] = -0.3 * scale
		adj[ChX].DataP[i] = vx * scale
		adj[ChY].DataP[i] = vy * scale
		adj[ChT].DataP[i] = scale
		adj[ChXX].DataP[i] = -D * scale
		adj[ChYY].DataP[i] = -D * scale
	}
	grad := nn.NewGradient()
	grad.Zero()
	nn.Backprop(jet, adj, grad)
	flat := make([]float64, nn.NumParameters())
	grad.Flatten(flat)

	{ // Full finite difference sweep over every parameter
		var (
			p0 = nn.Parameters()
			h  = 1.e-6
		)
		for k := range p0 {
			p := append([]float64{}, p0...)
			p[k] = p0[k] + h
			assert.NoError(t, nn.SetParameters(p))
			lp := lossOf(nn)
			p[k] = p0[k] - h
			assert.NoError(t, nn.SetParameters(p))
			lm := lossOf(nn)
			fd := (lp - lm) / (2 * h)
			assert.True(t, near(flat[k], fd, 5.e-5), "param %d: have %v, fd %v", k, flat[k], fd)
		}
		assert.NoError(t, nn.SetParameters(p0))
	}

	{ // Value-only adjoint leaves derivative channels out of the gradient
		// and matches finite differences of the value objective
		valLoss := func(nn *Network) float64 {
			C := nn.Forward(X)
			var sum float64
			for i := 0; i < B; i++ {
				sum += C.DataP[i] * C.DataP[i]
			}
			return sum / float64(B)
		}
		jet = nn.JetForward(X, jet)
		var vAdj Adjoint
		vAdj[ChVal] = utils.NewMatrix(B, 1)
		for i := 0; i < B; i++ {
			vAdj[ChVal].DataP[i] = 2. * jet.C.DataP[i] / float64(B)
		}
		grad.Zero()
		nn.Backprop(jet, vAdj, grad)
		grad.Flatten(flat)

		var (
			p0 = nn.Parameters()
			h  = 1.e-6
		)
		for k := 0; k < len(p0); k += 5 {
			p := append([]float64{}, p0...)
			p[k] = p0[k] + h
			assert.NoError(t, nn.SetParameters(p))
			lp := valLoss(nn)
			p[k] = p0[k] - h
			assert.NoError(t, nn.SetParameters(p))
			lm := valLoss(nn)
			fd := (lp - lm) / (2 * h)
			assert.True(t, near(flat[k], fd, 5.e-5), "param %d: have %v, fd %v", k, flat[k], fd)
		}
		assert.NoError(t, nn.SetParameters(p0))
	}

	{ // Gradients from two shards sum to the full-batch gradient
		half := B / 2
		X1 := utils.NewMatrix(half, 3, append([]float64{}, X.DataP[:half*3]...))
		X2 := utils.NewMatrix(B-half, 3, append([]float64{}, X.DataP[half*3:]...))
		full := nn.NewGradient()
		full.Zero()
		for part, Xp := range []utils.Matrix{X1, X2} {
			jp := nn.JetForward(Xp)
			np, _ := Xp.Dims()
			var pAdj Adjoint
			pAdj[ChVal] = utils.NewMatrix(np, 1)
			for i := 0; i < np; i++ {
				pAdj[ChVal].DataP[i] = 1.
			}
			g := nn.NewGradient()
			g.Zero()
			nn.Backprop(jp, pAdj, g)
			full.Add(g)
			_ = part
		}
		whole := nn.NewGradient()
		whole.Zero()
		jw := nn.JetForward(X)
		var wAdj Adjoint
		wAdj[ChVal] = utils.NewMatrix(B, 1)
		for i := 0; i < B; i++ {
			wAdj[ChVal].DataP[i] = 1.
		}
		nn.Backprop(jw, wAdj, whole)
		fullFlat := make([]float64, nn.NumParameters())
		wholeFlat := make([]float64, nn.NumParameters())
		full.Flatten(fullFlat)
		whole.Flatten(wholeFlat)
		assert.True(t, nearVec(wholeFlat, fullFlat, 1.e-12))
	}
}

func nearVec(a, b []float64, tol float64) (l bool) {
	for i, val := range a {
		if !near(b[i], val, tol) {
			return false
		}
	}
	return true
}
