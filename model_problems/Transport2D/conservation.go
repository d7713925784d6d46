package Transport2D

import (
	"fmt"
	"math"
	"strings"

	"github.com/hydronet/gopinn/geometry2D"
	"github.com/hydronet/gopinn/utils"
)

// MassAudit holds the total dissolved mass integral at a set of times,
// evaluated on one shared triangulation of the domain. With no-flux walls
// and no source the truth is constant in time, so drift in the integral
// measures how far the surrogate is from conserving mass
type MassAudit struct {
	Quad  *geometry2D.Quadrature
	Times []float64
	Mass  []float64
}

// AuditMass integrates the predicted concentration over the domain at each
// requested time, on an nSide x nSide lattice triangulated once
func (c *Transport) AuditMass(nSide int, times []float64) (ma *MassAudit, err error) {
	if nSide < 2 {
		err = fmt.Errorf("audit lattice must be at least 2x2, have %d", nSide)
		return
	}
	if len(times) == 0 {
		err = fmt.Errorf("audit needs at least one time")
		return
	}
	for _, t := range times {
		if t < c.Span.T0 || t > c.Span.T1 {
			err = fmt.Errorf("audit time %v lies outside the trained window [%v,%v]",
				t, c.Span.T0, c.Span.T1)
			return
		}
	}
	var (
		n  = nSide * nSide
		x  = make([]float64, n)
		y  = make([]float64, n)
		xs = utils.NewVectorLinspace(nSide, c.Dom.XMin, c.Dom.XMax)
		ys = utils.NewVectorLinspace(nSide, c.Dom.YMin, c.Dom.YMax)
	)
	for j := 0; j < nSide; j++ {
		for i := 0; i < nSide; i++ {
			p := j*nSide + i
			x[p] = xs.DataP[i]
			y[p] = ys.DataP[j]
		}
	}
	quad, err := geometry2D.NewQuadrature(x, y)
	if err != nil {
		return
	}
	ma = &MassAudit{
		Quad:  quad,
		Times: append([]float64{}, times...),
		Mass:  make([]float64, len(times)),
	}
	X := utils.NewMatrix(n, 3)
	for p := 0; p < n; p++ {
		X.DataP[3*p], X.DataP[3*p+1] = x[p], y[p]
	}
	for it, t := range times {
		for p := 0; p < n; p++ {
			X.DataP[3*p+2] = t
		}
		C := c.Net.Forward(X)
		if ma.Mass[it], err = quad.Integrate(C.DataP); err != nil {
			return nil, err
		}
	}
	return
}

// Drift is the largest relative deviation of the mass integral from its
// value at the first audited time
func (ma *MassAudit) Drift() (drift float64) {
	if len(ma.Mass) < 2 {
		return
	}
	var (
		m0    = ma.Mass[0]
		floor = math.Max(math.Abs(m0), 1e-12)
	)
	for _, m := range ma.Mass[1:] {
		if d := math.Abs(m-m0) / floor; d > drift {
			drift = d
		}
	}
	return
}

func (ma *MassAudit) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mass audit over %d points, area %.6g\n",
		ma.Quad.W.Len(), ma.Quad.TotalArea()))
	sb.WriteString("        time        mass\n")
	for i, t := range ma.Times {
		sb.WriteString(fmt.Sprintf("%12.5f%12.4e\n", t, ma.Mass[i]))
	}
	sb.WriteString(fmt.Sprintf("max relative drift %.4e\n", ma.Drift()))
	return sb.String()
}
