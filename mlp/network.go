package mlp

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
)

// Channel indices of the derivative jet carried through the network. The
// value channel is the network output; the others are its exact partials
// with respect to the raw (unnormalized) inputs.
const (
	ChVal = iota
	ChX
	ChY
	ChT
	ChXX
	ChYY
	NumChannels
)

// InputDim is fixed: the approximator maps (x,y,t) to concentration.
const InputDim = 3

// Network is a dense feed-forward approximator C(x,y,t). Hidden layers share
// one smooth activation; the output layer is linear. Inputs are affinely
// normalized before the first layer, and every derivative channel is scaled
// back through the chain rule so callers always see derivatives in raw
// coordinates.
type Network struct {
	Dims  []int // layer widths, input through output
	Act   types.ActivationType
	W     []utils.Matrix // W[l] is Dims[l+1] x Dims[l]
	B     []utils.Vector
	Scale [3]float64 // xhat_i = Scale[i]*x_i + Shift[i]
	Shift [3]float64
}

// NewNetwork builds a network with Glorot-uniform weights and zero biases
// drawn from rng, so a fixed seed reproduces the parameter vector exactly.
func NewNetwork(hidden []int, act types.ActivationType, rng *rand.Rand) (nn *Network, err error) {
	if len(hidden) == 0 {
		err = fmt.Errorf("hidden layer list must be non-empty")
		return
	}
	for _, h := range hidden {
		if h < 1 {
			err = fmt.Errorf("hidden layer width must be positive, have %d", h)
			return
		}
	}
	switch act {
	case types.Tanh, types.Sigmoid, types.Sin, types.Softplus, types.Swish:
	default:
		err = fmt.Errorf("unsupported activation [%s]", act)
		return
	}
	nn = &Network{
		Dims:  append(append([]int{InputDim}, hidden...), 1),
		Act:   act,
		Scale: [3]float64{1, 1, 1},
	}
	nL := len(nn.Dims) - 1
	nn.W = make([]utils.Matrix, nL)
	nn.B = make([]utils.Vector, nL)
	for l := 0; l < nL; l++ {
		var (
			nIn, nOut = nn.Dims[l], nn.Dims[l+1]
			limit     = math.Sqrt(6. / float64(nIn+nOut))
		)
		nn.W[l] = utils.NewMatrix(nOut, nIn)
		for i := range nn.W[l].DataP {
			nn.W[l].DataP[i] = limit * (2.*rng.Float64() - 1.)
		}
		nn.B[l] = utils.NewVector(nOut)
	}
	return
}

// SetInputScaling installs the affine map applied to (x,y,t) before the
// first layer. Mapping the domain into [-1,1] per coordinate keeps the
// activations out of their flat tails.
func (nn *Network) SetInputScaling(scale, shift [3]float64) {
	nn.Scale = scale
	nn.Shift = shift
}

func (nn *Network) NumLayers() int { return len(nn.W) }

// normalize produces the layer-0 activation from raw coordinates.
func (nn *Network) normalize(X utils.Matrix) (A utils.Matrix) {
	var (
		nr, _ = X.Dims()
	)
	A = utils.NewMatrix(nr, InputDim)
	for i := 0; i < nr; i++ {
		for j := 0; j < InputDim; j++ {
			A.DataP[i*InputDim+j] = nn.Scale[j]*X.DataP[i*InputDim+j] + nn.Shift[j]
		}
	}
	return
}

// addBias adds b to every row of Z.
func addBias(Z utils.Matrix, b utils.Vector) {
	var (
		nr, nc = Z.Dims()
	)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			Z.DataP[i*nc+j] += b.DataP[j]
		}
	}
}

// Forward evaluates the network for a batch of raw points, one row per
// point, columns (x,y,t). The result is B x 1.
func (nn *Network) Forward(X utils.Matrix) (C utils.Matrix) {
	var (
		nL = nn.NumLayers()
		A  = nn.normalize(X)
	)
	for l := 0; l < nL; l++ {
		Z := A.MulTranspose(nn.W[l])
		addBias(Z, nn.B[l])
		if l != nL-1 {
			evalActivation(nn.Act, Z.DataP, Z.DataP, nil, nil, nil)
		}
		A = Z
	}
	C = A
	return
}

// NumParameters is the length of the flattened parameter vector.
func (nn *Network) NumParameters() (n int) {
	for l := range nn.W {
		n += len(nn.W[l].DataP) + nn.B[l].Len()
	}
	return
}

// Parameters flattens weights then biases, layer by layer, into a fresh
// vector. The layout is the contract for SetParameters, gradients and
// checkpoints.
func (nn *Network) Parameters() (p []float64) {
	p = make([]float64, 0, nn.NumParameters())
	for l := range nn.W {
		p = append(p, nn.W[l].DataP...)
		p = append(p, nn.B[l].DataP...)
	}
	return
}

func (nn *Network) SetParameters(p []float64) (err error) {
	if len(p) != nn.NumParameters() {
		err = fmt.Errorf("parameter vector length mismatch: have %d, need %d",
			len(p), nn.NumParameters())
		return
	}
	var offset int
	for l := range nn.W {
		offset += copy(nn.W[l].DataP, p[offset:offset+len(nn.W[l].DataP)])
		offset += copy(nn.B[l].DataP, p[offset:offset+nn.B[l].Len()])
	}
	return
}

// Summary prints the architecture as a fixed-width table.
func (nn *Network) Summary() (o string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Architecture: %v, Activation: %s\n", nn.Dims, nn.Act.String()))
	sb.WriteString(fmt.Sprintf("%8s %10s %10s %12s\n", "Layer", "In", "Out", "Params"))
	for l := range nn.W {
		var (
			nIn, nOut = nn.Dims[l], nn.Dims[l+1]
		)
		sb.WriteString(fmt.Sprintf("%8d %10d %10d %12d\n", l, nIn, nOut, nIn*nOut+nOut))
	}
	sb.WriteString(fmt.Sprintf("Total parameters: %d\n", nn.NumParameters()))
	o = sb.String()
	return
}

// Descriptor is the serializable architecture record stored in checkpoints.
type Descriptor struct {
	Dims       []int      `json:"dims"`
	Activation string     `json:"activation"`
	Scale      [3]float64 `json:"scale"`
	Shift      [3]float64 `json:"shift"`
}

func (nn *Network) Describe() Descriptor {
	return Descriptor{
		Dims:       append([]int{}, nn.Dims...),
		Activation: nn.Act.String(),
		Scale:      nn.Scale,
		Shift:      nn.Shift,
	}
}

// FromDescriptor rebuilds a network shell from its stored architecture. The
// weights are zero until SetParameters restores them.
func FromDescriptor(d Descriptor) (nn *Network, err error) {
	if len(d.Dims) < 3 || d.Dims[0] != InputDim || d.Dims[len(d.Dims)-1] != 1 {
		err = fmt.Errorf("invalid stored architecture dims %v", d.Dims)
		return
	}
	act, err := types.ParseActivation(d.Activation)
	if err != nil {
		return
	}
	hidden := d.Dims[1 : len(d.Dims)-1]
	// PCG source value is irrelevant here, the weights get overwritten
	nn, err = NewNetwork(hidden, act, rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		return
	}
	nn.Scale = d.Scale
	nn.Shift = d.Shift
	return
}
