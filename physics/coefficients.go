package physics

import (
	"fmt"
)

// Coefficients carries the physical coefficient fields of the transport
// equation
//
//	dC/dt + v . grad(C) - D laplacian(C) = s
//
// Constant values cover the homogeneous case. When a Func variant is set it
// overrides the constant pointwise, and may report ok=false where the field
// is undefined (holes in heterogeneous media); points landing there are
// excluded from the collocation sets.
type Coefficients struct {
	Diffusion     float64
	DiffusionFunc func(x, y float64) (D float64, ok bool)

	Velocity     [2]float64
	VelocityFunc func(x, y, t float64) (vx, vy float64, ok bool)

	Source     float64
	SourceFunc func(x, y, t float64) (s float64, ok bool)
}

func (c *Coefficients) DiffusionAt(x, y float64) (D float64, ok bool) {
	if c.DiffusionFunc != nil {
		return c.DiffusionFunc(x, y)
	}
	return c.Diffusion, true
}

func (c *Coefficients) VelocityAt(x, y, t float64) (vx, vy float64, ok bool) {
	if c.VelocityFunc != nil {
		return c.VelocityFunc(x, y, t)
	}
	return c.Velocity[0], c.Velocity[1], true
}

func (c *Coefficients) SourceAt(x, y, t float64) (s float64, ok bool) {
	if c.SourceFunc != nil {
		return c.SourceFunc(x, y, t)
	}
	return c.Source, true
}

// Validate rejects configurations that cannot produce a well-posed problem.
// Pointwise positivity of a DiffusionFunc is enforced later at each sampled
// point, since a function field can only be checked where it is evaluated.
func (c *Coefficients) Validate() (err error) {
	if c.DiffusionFunc == nil && c.Diffusion <= 0 {
		err = fmt.Errorf("diffusion coefficient must be strictly positive, have %v", c.Diffusion)
		return
	}
	return
}
