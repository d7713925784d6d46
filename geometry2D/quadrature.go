package geometry2D

import (
	"fmt"
	"math"

	"github.com/hydronet/gopinn/utils"
	"github.com/pradeep-pyro/triangle"
)

// TriMesh is a Delaunay triangulation of a planar point cloud.
type TriMesh struct {
	Points [][2]float64
	Tris   [][3]int32
}

// NewTriMesh triangulates the cloud given by parallel coordinate slices.
func NewTriMesh(x, y []float64) (tm *TriMesh, err error) {
	if len(x) != len(y) {
		err = fmt.Errorf("coordinate slices differ in length: %d vs %d", len(x), len(y))
		return
	}
	if len(x) < 3 {
		err = fmt.Errorf("triangulation needs at least 3 points, have %d", len(x))
		return
	}
	pts := make([][2]float64, len(x))
	for i := range x {
		pts[i] = [2]float64{x[i], y[i]}
	}
	tris := triangle.Delaunay(pts)
	if len(tris) == 0 {
		err = fmt.Errorf("degenerate point cloud: triangulation is empty")
		return
	}
	tm = &TriMesh{
		Points: pts,
		Tris:   tris,
	}
	return
}

// TriArea returns the unsigned area of triangle k.
func (tm *TriMesh) TriArea(k int) (area float64) {
	var (
		a = tm.Points[tm.Tris[k][0]]
		b = tm.Points[tm.Tris[k][1]]
		c = tm.Points[tm.Tris[k][2]]
	)
	area = 0.5 * math.Abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1]))
	return
}

// Quadrature integrates point samples over the triangulated region using
// lumped vertex weights: each triangle spreads a third of its area onto its
// corners. The rule is exact for piecewise-linear fields on the mesh.
type Quadrature struct {
	Mesh *TriMesh
	W    utils.Vector // per-point weight
}

// NewQuadrature triangulates the cloud and assembles the weights through
// the sparse vertex-triangle incidence matrix.
func NewQuadrature(x, y []float64) (q *Quadrature, err error) {
	tm, err := NewTriMesh(x, y)
	if err != nil {
		return
	}
	var (
		nP   = len(tm.Points)
		nT   = len(tm.Tris)
		inc  = utils.NewDOK(nP, nT)
		ones = utils.NewVectorConstant(nT, 1)
	)
	for k := 0; k < nT; k++ {
		third := tm.TriArea(k) / 3.
		for v := 0; v < 3; v++ {
			inc.Accumulate(int(tm.Tris[k][v]), k, third)
		}
	}
	q = &Quadrature{
		Mesh: tm,
		W:    inc.ToCSR().MulVec(ones),
	}
	return
}

// Integrate computes the weighted sum of samples f given at the cloud
// points, approximating the integral of the underlying field.
func (q *Quadrature) Integrate(f []float64) (integral float64, err error) {
	if len(f) != q.W.Len() {
		err = fmt.Errorf("sample count mismatch: have %d values for %d points", len(f), q.W.Len())
		return
	}
	for i, w := range q.W.DataP {
		integral += w * f[i]
	}
	return
}

// TotalArea is the area covered by the triangulation.
func (q *Quadrature) TotalArea() (area float64) {
	area = q.W.Sum()
	return
}
