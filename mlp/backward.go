package mlp

import (
	"github.com/hydronet/gopinn/utils"
)

// Adjoint carries the partial of a scalar loss with respect to each output
// channel, one NumPoints x 1 matrix per channel. A zero-value entry marks a
// channel the loss does not touch.
type Adjoint [NumChannels]utils.Matrix

// Gradient accumulates parameter gradients in the same shapes as the
// network weights. Flatten emits the layout Parameters uses.
type Gradient struct {
	W []utils.Matrix
	B []utils.Vector

	wScratch []utils.Matrix
}

func (nn *Network) NewGradient() (g *Gradient) {
	var (
		nL = nn.NumLayers()
	)
	g = &Gradient{
		W:        make([]utils.Matrix, nL),
		B:        make([]utils.Vector, nL),
		wScratch: make([]utils.Matrix, nL),
	}
	for l := 0; l < nL; l++ {
		var (
			nIn, nOut = nn.Dims[l], nn.Dims[l+1]
		)
		g.W[l] = utils.NewMatrix(nOut, nIn)
		g.B[l] = utils.NewVector(nOut)
		g.wScratch[l] = utils.NewMatrix(nOut, nIn)
	}
	return
}

func (g *Gradient) Zero() {
	for l := range g.W {
		g.W[l].Zero()
		for i := range g.B[l].DataP {
			g.B[l].DataP[i] = 0
		}
	}
}

// Add accumulates h into g, used to merge per-shard gradients.
func (g *Gradient) Add(h *Gradient) {
	for l := range g.W {
		g.W[l].Add(h.W[l])
		g.B[l].Add(h.B[l])
	}
}

// Flatten writes the gradient into dst in Parameters order.
func (g *Gradient) Flatten(dst []float64) {
	var offset int
	for l := range g.W {
		offset += copy(dst[offset:], g.W[l].DataP)
		offset += copy(dst[offset:], g.B[l].DataP)
	}
}

// NumParameters is the flattened length.
func (g *Gradient) NumParameters() (n int) {
	for l := range g.W {
		n += len(g.W[l].DataP) + g.B[l].Len()
	}
	return
}

// Backprop runs the reverse sweep through the recorded jet and accumulates
// parameter gradients into grad. The caller zeroes grad when it wants a
// fresh gradient rather than a running sum.
//
// The sweep treats every derivative channel as part of the computational
// graph: weights receive contributions from all active channels, which is
// what makes losses built on Cx, Cxx etc. differentiate exactly.
func (nn *Network) Backprop(jet *Jet, adj Adjoint, grad *Gradient) {
	var (
		nL   = nn.NumLayers()
		mask [NumChannels]bool
	)
	jet.ensureAdjointState(nn)
	// Seed the output layer adjoints. The output layer is linear, so the
	// activation adjoints equal the pre-activation adjoints.
	for ch := 0; ch < NumChannels; ch++ {
		if adj[ch].IsEmpty() {
			continue
		}
		mask[ch] = true
		copy(jet.g[nL-1][ch].DataP, adj[ch].DataP)
	}
	for l := nL - 1; l >= 0; l-- {
		if l < nL-1 {
			mask = widenMask(mask)
			jet.activationAdjoint(l, mask)
		}
		// dW_l += sum over channels of transpose(G_z) x a_l, db_l from the
		// value channel alone since bias enters no derivative channel
		for ch := 0; ch < NumChannels; ch++ {
			if !mask[ch] {
				continue
			}
			jet.g[l][ch].TransposeMul(jet.a[l][ch], grad.wScratch[l])
			grad.W[l].Add(grad.wScratch[l])
		}
		if mask[ChVal] {
			var (
				B     = jet.NumPoints
				width = nn.Dims[l+1]
				gz    = jet.g[l][ChVal].DataP
				db    = grad.B[l].DataP
			)
			for i := 0; i < B; i++ {
				for j := 0; j < width; j++ {
					db[j] += gz[i*width+j]
				}
			}
		}
		if l > 0 {
			for ch := 0; ch < NumChannels; ch++ {
				if !mask[ch] {
					continue
				}
				jet.g[l][ch].Mul(nn.W[l], jet.g[l-1][ch])
			}
		}
	}
}

// widenMask propagates channel activity through one activation adjoint
// step: the value channel collects from everything, first-order channels
// collect from their second-order partners.
func widenMask(m [NumChannels]bool) (w [NumChannels]bool) {
	w = m
	for ch := 0; ch < NumChannels; ch++ {
		w[ChVal] = w[ChVal] || m[ch]
	}
	w[ChX] = m[ChX] || m[ChXX]
	w[ChY] = m[ChY] || m[ChYY]
	return
}

// ensureAdjointState lazily allocates the reverse-sweep buffers so jets used
// only for inference never pay for them.
func (jet *Jet) ensureAdjointState(nn *Network) {
	if jet.g != nil {
		return
	}
	var (
		nL = nn.NumLayers()
		B  = jet.NumPoints
	)
	jet.g = make([][NumChannels]utils.Matrix, nL)
	for l := 0; l < nL; l++ {
		for ch := 0; ch < NumChannels; ch++ {
			jet.g[l][ch] = utils.NewMatrix(B, nn.Dims[l+1])
		}
	}
}

// activationAdjoint converts activation adjoints to pre-activation adjoints
// in place at hidden layer l. Write order matters: the value channel is
// finished before the first-order channels overwrite their inputs, and the
// second-order channels are consumed before being overwritten.
func (jet *Jet) activationAdjoint(l int, mask [NumChannels]bool) {
	var (
		g  = jet.g[l]
		z  = jet.z[l]
		d1 = jet.d1[l].DataP
		d2 = jet.d2[l].DataP
		d3 = jet.d3[l].DataP
	)
	for i := range d1 {
		var (
			zx, zy, zt = z[ChX].DataP[i], z[ChY].DataP[i], z[ChT].DataP[i]
			zxx, zyy   = z[ChXX].DataP[i], z[ChYY].DataP[i]
			gv         = g[ChVal].DataP[i]
			gx, gy, gt = g[ChX].DataP[i], g[ChY].DataP[i], g[ChT].DataP[i]
			gxx, gyy   = g[ChXX].DataP[i], g[ChYY].DataP[i]
		)
		if mask[ChVal] {
			acc := gv * d1[i]
			if mask[ChX] {
				acc += gx * d2[i] * zx
			}
			if mask[ChY] {
				acc += gy * d2[i] * zy
			}
			if mask[ChT] {
				acc += gt * d2[i] * zt
			}
			if mask[ChXX] {
				acc += gxx * (d3[i]*zx*zx + d2[i]*zxx)
			}
			if mask[ChYY] {
				acc += gyy * (d3[i]*zy*zy + d2[i]*zyy)
			}
			g[ChVal].DataP[i] = acc
		}
		if mask[ChX] {
			acc := gx * d1[i]
			if mask[ChXX] {
				acc += gxx * 2. * d2[i] * zx
			}
			g[ChX].DataP[i] = acc
		}
		if mask[ChY] {
			acc := gy * d1[i]
			if mask[ChYY] {
				acc += gyy * 2. * d2[i] * zy
			}
			g[ChY].DataP[i] = acc
		}
		if mask[ChT] {
			g[ChT].DataP[i] = gt * d1[i]
		}
		if mask[ChXX] {
			g[ChXX].DataP[i] = gxx * d1[i]
		}
		if mask[ChYY] {
			g[ChYY].DataP[i] = gyy * d1[i]
		}
	}
}
