package geometry2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// gridCloud lays an n x n point grid over [0,1]^2.
func gridCloud(n int) (x, y []float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x = append(x, float64(j)/float64(n-1))
			y = append(y, float64(i)/float64(n-1))
		}
	}
	return
}

func TestQuadrature(t *testing.T) {
	{ // Input validation
		_, err := NewTriMesh([]float64{0, 1}, []float64{0})
		assert.Error(t, err)
		_, err = NewTriMesh([]float64{0, 1}, []float64{0, 0})
		assert.Error(t, err)
	}
	{ // Unit square grid: weights tile the area exactly
		x, y := gridCloud(6)
		q, err := NewQuadrature(x, y)
		assert.NoError(t, err)
		assert.InDelta(t, 1.0, q.TotalArea(), 1.e-12)
		for _, w := range q.W.DataP {
			assert.True(t, w > 0)
		}
	}
	{ // Lumped rule is exact for linear fields
		x, y := gridCloud(7)
		q, _ := NewQuadrature(x, y)
		fx := make([]float64, len(x))
		for i := range fx {
			fx[i] = x[i]
		}
		intX, err := q.Integrate(fx)
		assert.NoError(t, err)
		assert.InDelta(t, 0.5, intX, 1.e-12)

		fxy := make([]float64, len(x))
		for i := range fxy {
			fxy[i] = 2.*x[i] + 3.*y[i] + 1.
		}
		intXY, _ := q.Integrate(fxy)
		assert.InDelta(t, 2.*0.5+3.*0.5+1., intXY, 1.e-12)

		_, err = q.Integrate(fx[:3])
		assert.Error(t, err)
	}
	{ // Smooth field converges to the analytic integral as the grid refines
		integralOn := func(n int) float64 {
			x, y := gridCloud(n)
			q, err := NewQuadrature(x, y)
			assert.NoError(t, err)
			f := make([]float64, len(x))
			for i := range f {
				f[i] = math.Sin(math.Pi*x[i]) * math.Sin(math.Pi*y[i])
			}
			v, _ := q.Integrate(f)
			return v
		}
		exact := 4. / (math.Pi * math.Pi)
		coarse := math.Abs(integralOn(8) - exact)
		fine := math.Abs(integralOn(32) - exact)
		assert.True(t, fine < coarse)
		assert.InDelta(t, exact, integralOn(32), 5.e-3)
	}
}
