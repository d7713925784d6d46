package mlp

import (
	"github.com/hydronet/gopinn/utils"
)

// Jet is a batched network evaluation carrying exact derivative channels.
// The partials are propagated through every layer alongside the values, so
// no finite differencing is involved anywhere. The recorded per-layer state
// feeds Backprop.
type Jet struct {
	NumPoints int

	// Output channels, each NumPoints x 1, in raw coordinates
	C, Cx, Cy, Ct, Cxx, Cyy utils.Matrix

	// a[l][ch] is the layer l activation of channel ch, a[0] the seeded
	// input. z[l][ch] is the pre-activation of hidden layer l+1. The dN
	// tables hold activation derivatives of order N at each hidden unit.
	// g holds the reverse-sweep adjoints, allocated on first Backprop.
	a          [][NumChannels]utils.Matrix
	z          [][NumChannels]utils.Matrix
	d1, d2, d3 []utils.Matrix
	g          [][NumChannels]utils.Matrix
}

// NewJet allocates the full recorded state for batches of B points. Reusing
// a jet across iterations avoids reallocating the channel buffers.
func (nn *Network) NewJet(B int) (jet *Jet) {
	var (
		nL = nn.NumLayers()
	)
	jet = &Jet{
		NumPoints: B,
		a:         make([][NumChannels]utils.Matrix, nL+1),
		z:         make([][NumChannels]utils.Matrix, nL-1),
		d1:        make([]utils.Matrix, nL-1),
		d2:        make([]utils.Matrix, nL-1),
		d3:        make([]utils.Matrix, nL-1),
	}
	for ch := 0; ch < NumChannels; ch++ {
		jet.a[0][ch] = utils.NewMatrix(B, InputDim)
	}
	for l := 0; l < nL; l++ {
		width := nn.Dims[l+1]
		for ch := 0; ch < NumChannels; ch++ {
			jet.a[l+1][ch] = utils.NewMatrix(B, width)
		}
		if l != nL-1 {
			for ch := 0; ch < NumChannels; ch++ {
				jet.z[l][ch] = utils.NewMatrix(B, width)
			}
			jet.d1[l] = utils.NewMatrix(B, width)
			jet.d2[l] = utils.NewMatrix(B, width)
			jet.d3[l] = utils.NewMatrix(B, width)
		}
	}
	jet.C = jet.a[nL][ChVal]
	jet.Cx = jet.a[nL][ChX]
	jet.Cy = jet.a[nL][ChY]
	jet.Ct = jet.a[nL][ChT]
	jet.Cxx = jet.a[nL][ChXX]
	jet.Cyy = jet.a[nL][ChYY]
	return
}

// JetForward evaluates the network and its derivative channels for a batch
// of raw points, one row per point, columns (x,y,t). Passing a previously
// returned jet of matching batch size reuses its buffers.
func (nn *Network) JetForward(X utils.Matrix, jetO ...*Jet) (jet *Jet) {
	var (
		nL    = nn.NumLayers()
		nr, _ = X.Dims()
	)
	if len(jetO) != 0 && jetO[0] != nil && jetO[0].NumPoints == nr && len(jetO[0].a) == nL+1 {
		jet = jetO[0]
	} else {
		jet = nn.NewJet(nr)
	}
	nn.seedInput(X, jet)
	for l := 0; l < nL; l++ {
		nn.forwardLayer(l, jet)
	}
	return
}

// seedInput normalizes the coordinates into the value channel and seeds the
// first-derivative channels with the normalization slopes. The input map is
// affine, so its own second derivatives are zero.
func (nn *Network) seedInput(X utils.Matrix, jet *Jet) {
	var (
		B = jet.NumPoints
	)
	for ch := 0; ch < NumChannels; ch++ {
		jet.a[0][ch].Zero()
	}
	for i := 0; i < B; i++ {
		for j := 0; j < InputDim; j++ {
			jet.a[0][ChVal].DataP[i*InputDim+j] = nn.Scale[j]*X.DataP[i*InputDim+j] + nn.Shift[j]
		}
		jet.a[0][ChX].DataP[i*InputDim+0] = nn.Scale[0]
		jet.a[0][ChY].DataP[i*InputDim+1] = nn.Scale[1]
		jet.a[0][ChT].DataP[i*InputDim+2] = nn.Scale[2]
	}
}

func (nn *Network) forwardLayer(l int, jet *Jet) {
	var (
		nL     = nn.NumLayers()
		prev   = jet.a[l]
		output = l == nL-1
	)
	if output {
		// Linear output layer: channels pass straight through
		for ch := 0; ch < NumChannels; ch++ {
			prev[ch].MulTranspose(nn.W[l], jet.a[l+1][ch])
		}
		addBias(jet.a[l+1][ChVal], nn.B[l])
		return
	}
	var (
		z = jet.z[l]
		a = jet.a[l+1]
	)
	for ch := 0; ch < NumChannels; ch++ {
		prev[ch].MulTranspose(nn.W[l], z[ch])
	}
	addBias(z[ChVal], nn.B[l])
	evalActivation(nn.Act, z[ChVal].DataP,
		a[ChVal].DataP, jet.d1[l].DataP, jet.d2[l].DataP, jet.d3[l].DataP)
	var (
		d1 = jet.d1[l].DataP
		d2 = jet.d2[l].DataP
	)
	for i := range d1 {
		zx, zy, zt := z[ChX].DataP[i], z[ChY].DataP[i], z[ChT].DataP[i]
		a[ChX].DataP[i] = d1[i] * zx
		a[ChY].DataP[i] = d1[i] * zy
		a[ChT].DataP[i] = d1[i] * zt
		a[ChXX].DataP[i] = d2[i]*zx*zx + d1[i]*z[ChXX].DataP[i]
		a[ChYY].DataP[i] = d2[i]*zy*zy + d1[i]*z[ChYY].DataP[i]
	}
}
