package physics

import (
	"math"
	"testing"

	"github.com/hydronet/gopinn/types"
	"github.com/stretchr/testify/assert"
)

func TestPhysics(t *testing.T) {
	{ // The plume satisfies the transport equation identically
		p := Plume{Mass: 1, X0: 0.2, Y0: -0.1, D: 0.05, Vx: 0.3, Vy: -0.2}
		pts := [][3]float64{
			{0.3, 0.0, 0.5},
			{0.0, 0.2, 1.0},
			{-0.4, 0.5, 2.0},
			{1.0, 1.0, 0.25},
		}
		for _, pt := range pts {
			c, cx, cy, ct, cxx, cyy := p.Jet(pt[0], pt[1], pt[2])
			res := ct + p.Vx*cx + p.Vy*cy - p.D*(cxx+cyy)
			assert.True(t, near(res/math.Max(c, 1.e-300), 0, 1.e-9))
		}
	}
	{ // Jet channels agree with central differences of At
		p := Plume{Mass: 2, X0: 0, Y0: 0, D: 0.1, Vx: 0.1, Vy: 0.05}
		var (
			x, y, tt = 0.3, -0.2, 0.8
			h        = 1.e-5
		)
		c, cx, cy, ct, cxx, cyy := p.Jet(x, y, tt)
		assert.True(t, near(c, p.At(x, y, tt), 1.e-12))
		assert.True(t, near(cx, (p.At(x+h, y, tt)-p.At(x-h, y, tt))/(2*h), 1.e-6))
		assert.True(t, near(cy, (p.At(x, y+h, tt)-p.At(x, y-h, tt))/(2*h), 1.e-6))
		assert.True(t, near(ct, (p.At(x, y, tt+h)-p.At(x, y, tt-h))/(2*h), 1.e-6))
		assert.True(t, near(cxx, (p.At(x+h, y, tt)-2*c+p.At(x-h, y, tt))/(h*h), 1.e-4))
		assert.True(t, near(cyy, (p.At(x, y+h, tt)-2*c+p.At(x, y-h, tt))/(h*h), 1.e-4))
	}
	{ // Coefficient fields: constants, overrides, undefined points
		cf := &Coefficients{Diffusion: 0.01, Velocity: [2]float64{0.1, 0}, Source: 0}
		assert.NoError(t, cf.Validate())
		D, ok := cf.DiffusionAt(0.5, 0.5)
		assert.True(t, ok)
		assert.Equal(t, 0.01, D)
		vx, vy, ok := cf.VelocityAt(0, 0, 0)
		assert.True(t, ok)
		assert.Equal(t, 0.1, vx)
		assert.Equal(t, 0., vy)

		cf.DiffusionFunc = func(x, y float64) (float64, bool) {
			if x > 0.5 {
				return 0, false // undefined beyond the barrier
			}
			return 0.02, true
		}
		_, ok = cf.DiffusionAt(0.75, 0.5)
		assert.False(t, ok)
		D, ok = cf.DiffusionAt(0.25, 0.5)
		assert.True(t, ok)
		assert.Equal(t, 0.02, D)

		bad := &Coefficients{Diffusion: -1}
		assert.Error(t, bad.Validate())
		zero := &Coefficients{}
		assert.Error(t, zero.Validate())
	}
	{ // Domain edge parameterization and corners
		d := Domain{XMin: 0, XMax: 2, YMin: -1, YMax: 1}
		assert.NoError(t, d.Validate())
		assert.Equal(t, 2., d.Width())
		assert.Equal(t, 2., d.Height())
		assert.Equal(t, 4., d.Area())

		x, y := d.EdgePoint(types.Left, 0.5)
		assert.Equal(t, 0., x)
		assert.Equal(t, 0., y)
		x, y = d.EdgePoint(types.Top, 1)
		assert.Equal(t, 2., x)
		assert.Equal(t, 1., y)
		assert.Equal(t, 2., d.EdgeLength(types.Bottom))
		assert.Equal(t, 2., d.EdgeLength(types.Left))

		assert.True(t, d.Corner(0, -1, 1.e-12))
		assert.False(t, d.Corner(1, -1, 1.e-12))
		assert.True(t, d.Contains(1, 0))
		assert.False(t, d.Contains(3, 0))

		bad := Domain{XMin: 1, XMax: 0, YMin: 0, YMax: 1}
		assert.Error(t, bad.Validate())

		ts := TimeSpan{T0: 0, T1: 2}
		assert.NoError(t, ts.Validate())
		assert.Equal(t, 2., ts.Duration())
		assert.Error(t, TimeSpan{T0: 1, T1: 1}.Validate())
	}
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
