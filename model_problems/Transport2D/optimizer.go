package Transport2D

import (
	"fmt"
	"math"

	"github.com/hydronet/gopinn/types"
)

// Optimizer advances the flat parameter vector against a gradient. The
// moment vectors are exported through Snapshot for exact checkpointing
type Optimizer interface {
	Step(p, g []float64, lr float64)
	Snapshot() OptimizerState
	Restore(st OptimizerState) error
}

// OptimizerState is the serializable internal state of an optimizer.
// The moment slices travel in the checkpoint binary section
type OptimizerState struct {
	Kind    string
	Steps   int
	Moments [][]float64
}

// Adam with the standard bias corrected first and second moments
type Adam struct {
	Beta1, Beta2, Epsilon float64
	M, V                  []float64
	Steps                 int
}

func NewAdam(n int, beta1, beta2, epsilon float64) *Adam {
	return &Adam{
		Beta1:   beta1,
		Beta2:   beta2,
		Epsilon: epsilon,
		M:       make([]float64, n),
		V:       make([]float64, n),
	}
}

func (a *Adam) Step(p, g []float64, lr float64) {
	a.Steps++
	var (
		b1, b2 = a.Beta1, a.Beta2
		c1     = 1 - math.Pow(b1, float64(a.Steps))
		c2     = 1 - math.Pow(b2, float64(a.Steps))
	)
	for i := range p {
		a.M[i] = b1*a.M[i] + (1-b1)*g[i]
		a.V[i] = b2*a.V[i] + (1-b2)*g[i]*g[i]
		mHat := a.M[i] / c1
		vHat := a.V[i] / c2
		p[i] -= lr * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

func (a *Adam) Snapshot() OptimizerState {
	return OptimizerState{
		Kind:    types.Adam.String(),
		Steps:   a.Steps,
		Moments: [][]float64{append([]float64{}, a.M...), append([]float64{}, a.V...)},
	}
}

func (a *Adam) Restore(st OptimizerState) error {
	if st.Kind != types.Adam.String() {
		return fmt.Errorf("optimizer state is %s, not %s", st.Kind, types.Adam)
	}
	if len(st.Moments) != 2 || len(st.Moments[0]) != len(a.M) || len(st.Moments[1]) != len(a.V) {
		return fmt.Errorf("adam moment vectors do not match parameter count %d", len(a.M))
	}
	copy(a.M, st.Moments[0])
	copy(a.V, st.Moments[1])
	a.Steps = st.Steps
	return nil
}

// SGD with classical momentum. Momentum zero reduces to plain descent
type SGD struct {
	Momentum float64
	Velocity []float64
	Steps    int
}

func NewSGD(n int, momentum float64) *SGD {
	return &SGD{
		Momentum: momentum,
		Velocity: make([]float64, n),
	}
}

func (s *SGD) Step(p, g []float64, lr float64) {
	s.Steps++
	for i := range p {
		s.Velocity[i] = s.Momentum*s.Velocity[i] - lr*g[i]
		p[i] += s.Velocity[i]
	}
}

func (s *SGD) Snapshot() OptimizerState {
	return OptimizerState{
		Kind:    types.SGD.String(),
		Steps:   s.Steps,
		Moments: [][]float64{append([]float64{}, s.Velocity...)},
	}
}

func (s *SGD) Restore(st OptimizerState) error {
	if st.Kind != types.SGD.String() {
		return fmt.Errorf("optimizer state is %s, not %s", st.Kind, types.SGD)
	}
	if len(st.Moments) != 1 || len(st.Moments[0]) != len(s.Velocity) {
		return fmt.Errorf("sgd velocity does not match parameter count %d", len(s.Velocity))
	}
	copy(s.Velocity, st.Moments[0])
	s.Steps = st.Steps
	return nil
}

// NewOptimizer builds the configured optimizer for n parameters
func NewOptimizer(ot types.OptimizerType, n int, beta1, beta2, epsilon, momentum float64) (Optimizer, error) {
	switch ot {
	case types.Adam:
		return NewAdam(n, beta1, beta2, epsilon), nil
	case types.SGD:
		return NewSGD(n, momentum), nil
	default:
		return nil, fmt.Errorf("unsupported optimizer type %s", ot)
	}
}

// ClipGradient rescales g in place when its global L2 norm exceeds
// limit. A limit of zero disables clipping. Returns the pre clip norm
func ClipGradient(g []float64, limit float64) (norm float64) {
	for _, v := range g {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if limit <= 0 || norm <= limit || norm == 0 {
		return
	}
	scale := limit / norm
	for i := range g {
		g[i] *= scale
	}
	return
}
