package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vector wraps a gonum column vector with a flat alias of its backing store.
type Vector struct {
	V     *mat.VecDense
	DataP []float64
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v",
				n, len(dataO[0]))
			panic(err)
		}
		v = mat.NewVecDense(n, dataO[0])
	} else {
		v = mat.NewVecDense(n, make([]float64, n))
	}
	R = Vector{
		V:     v,
		DataP: v.RawVector().Data,
	}
	return
}

// NewVectorConstant fills a length n vector with val.
func NewVectorConstant(n int, val float64) (R Vector) {
	R = NewVector(n)
	for i := range R.DataP {
		R.DataP[i] = val
	}
	return
}

// NewVectorLinspace spans [lo,hi] with n evenly spaced samples, endpoints
// included.
func NewVectorLinspace(n int, lo, hi float64) (R Vector) {
	R = NewVector(n)
	floats.Span(R.DataP, lo, hi)
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }

func (v Vector) Copy() (R Vector) { // Does not change receiver
	R = NewVector(v.Len())
	copy(R.DataP, v.DataP)
	return
}

func (v Vector) Set(i int, val float64) Vector { // Changes receiver
	v.DataP[i] = val
	return v
}

func (v Vector) Add(a Vector) Vector { // Changes receiver
	for i, val := range a.DataP {
		v.DataP[i] += val
	}
	return v
}

func (v Vector) Subtract(a Vector) Vector { // Changes receiver
	for i, val := range a.DataP {
		v.DataP[i] -= val
	}
	return v
}

func (v Vector) Scale(a float64) Vector { // Changes receiver
	for i := range v.DataP {
		v.DataP[i] *= a
	}
	return v
}

func (v Vector) AddScalar(a float64) Vector { // Changes receiver
	for i := range v.DataP {
		v.DataP[i] += a
	}
	return v
}

func (v Vector) Apply(f func(float64) float64) Vector { // Changes receiver
	for i, val := range v.DataP {
		v.DataP[i] = f(val)
	}
	return v
}

func (v Vector) POW(p int) Vector { // Changes receiver
	for i, val := range v.DataP {
		v.DataP[i] = POW(val, p)
	}
	return v
}

func (v Vector) Dot(a Vector) (d float64) {
	d = floats.Dot(v.DataP, a.DataP)
	return
}

func (v Vector) Min() (min float64) {
	min = floats.Min(v.DataP)
	return
}

func (v Vector) Max() (max float64) {
	max = floats.Max(v.DataP)
	return
}

func (v Vector) Sum() (sum float64) {
	sum = floats.Sum(v.DataP)
	return
}

// ToMatrix returns the vector as an n x 1 matrix sharing no storage.
func (v Vector) ToMatrix() (R Matrix) {
	R = NewMatrix(v.Len(), 1)
	copy(R.DataP, v.DataP)
	return
}

func (v Vector) String(msgI ...string) (o string) {
	if len(msgI) != 0 {
		o = msgI[0] + " = \n"
	}
	o += fmt.Sprintf("%v\n", mat.Formatted(v.V, mat.Squeeze()))
	return
}
