package physics

import "math"

// Plume is the closed-form solution for an instantaneous point release of
// mass Mass at (X0,Y0) at time zero, advected by a uniform velocity and
// spread by constant diffusion in an unbounded domain:
//
//	C(x,y,t) = Mass/(4 pi D t) * exp(-((x-X0-Vx t)^2+(y-Y0-Vy t)^2)/(4 D t))
//
// It satisfies the source-free transport equation exactly, which makes it
// the reference for residual and convergence checks.
type Plume struct {
	Mass   float64
	X0, Y0 float64
	D      float64
	Vx, Vy float64
}

func (p Plume) At(x, y, t float64) (c float64) {
	var (
		xi  = x - p.X0 - p.Vx*t
		eta = y - p.Y0 - p.Vy*t
		a   = 1. / (4. * p.D * t)
	)
	c = p.Mass * a / math.Pi * math.Exp(-a*(xi*xi+eta*eta))
	return
}

// Jet evaluates the solution and its first and second partials in one pass.
func (p Plume) Jet(x, y, t float64) (c, cx, cy, ct, cxx, cyy float64) {
	var (
		xi  = x - p.X0 - p.Vx*t
		eta = y - p.Y0 - p.Vy*t
		a   = 1. / (4. * p.D * t)
		rho = xi*xi + eta*eta
	)
	c = p.Mass * a / math.Pi * math.Exp(-a*rho)
	cx = c * (-2. * a * xi)
	cy = c * (-2. * a * eta)
	cxx = c * (4.*a*a*xi*xi - 2.*a)
	cyy = c * (4.*a*a*eta*eta - 2.*a)
	ct = c * (-1./t + a*rho/t + 2.*a*(xi*p.Vx+eta*p.Vy))
	return
}

// GaussianBlob builds an initial condition with a bell of the given
// amplitude and width centered at (x0,y0).
func GaussianBlob(amplitude, x0, y0, sigma float64) func(x, y float64) float64 {
	return func(x, y float64) float64 {
		var (
			dx = x - x0
			dy = y - y0
		)
		return amplitude * math.Exp(-(dx*dx+dy*dy)/(2.*sigma*sigma))
	}
}
