package physics

import (
	"fmt"

	"github.com/hydronet/gopinn/types"
)

// Domain is the rectangular spatial extent of the problem.
type Domain struct {
	XMin, XMax float64
	YMin, YMax float64
}

func (d Domain) Validate() (err error) {
	if d.XMax <= d.XMin || d.YMax <= d.YMin {
		err = fmt.Errorf("domain bounds must be ordered: x [%v,%v], y [%v,%v]",
			d.XMin, d.XMax, d.YMin, d.YMax)
	}
	return
}

func (d Domain) Width() float64  { return d.XMax - d.XMin }
func (d Domain) Height() float64 { return d.YMax - d.YMin }
func (d Domain) Area() float64   { return d.Width() * d.Height() }

func (d Domain) Contains(x, y float64) bool {
	return x >= d.XMin && x <= d.XMax && y >= d.YMin && y <= d.YMax
}

// EdgePoint maps a parameter s in [0,1] along the given edge to domain
// coordinates, traversing each edge in the direction of increasing x or y.
func (d Domain) EdgePoint(e types.EdgeTag, s float64) (x, y float64) {
	switch e {
	case types.Left:
		x, y = d.XMin, d.YMin+s*d.Height()
	case types.Right:
		x, y = d.XMax, d.YMin+s*d.Height()
	case types.Bottom:
		x, y = d.XMin+s*d.Width(), d.YMin
	case types.Top:
		x, y = d.XMin+s*d.Width(), d.YMax
	}
	return
}

// EdgeLength returns the length of the given edge.
func (d Domain) EdgeLength(e types.EdgeTag) float64 {
	switch e {
	case types.Left, types.Right:
		return d.Height()
	}
	return d.Width()
}

// Corner reports whether (x,y) sits on more than one edge within tol.
func (d Domain) Corner(x, y, tol float64) bool {
	onX := x-d.XMin <= tol || d.XMax-x <= tol
	onY := y-d.YMin <= tol || d.YMax-y <= tol
	return onX && onY
}

// TimeSpan is the simulated time interval. T0 carries the initial condition.
type TimeSpan struct {
	T0, T1 float64
}

func (ts TimeSpan) Validate() (err error) {
	if ts.T1 <= ts.T0 {
		err = fmt.Errorf("time span must be ordered: [%v,%v]", ts.T0, ts.T1)
	}
	return
}

func (ts TimeSpan) Duration() float64 { return ts.T1 - ts.T0 }
