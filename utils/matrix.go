package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Matrix wraps a gonum dense matrix with a flat alias of its backing store.
// DataP aliases the row-major data slice, so element kernels can run over
// DataP directly while BLAS-backed operations go through M.
type Matrix struct {
	M     *mat.Dense
	DataP []float64
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v",
				nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:     m,
		DataP: m.RawMatrix().Data,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) IsEmpty() bool { return m.M == nil }

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	copy(R.DataP, m.DataP)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.DataP[j*nr+i] = m.DataP[i*nc+j]
		}
	}
	return
}

// Mul computes m x A. If RO is provided it is used as the result store,
// which avoids allocation inside iteration loops.
func (m Matrix) Mul(A Matrix, RO ...Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.Dims()
		_, ncA = A.Dims()
	)
	if len(RO) != 0 {
		R = RO[0]
		if nr, nc := R.Dims(); nr != nrM || nc != ncA {
			err := fmt.Errorf("provided result store has wrong dims: have %v,%v, need %v,%v",
				nr, nc, nrM, ncA)
			panic(err)
		}
	} else {
		R = NewMatrix(nrM, ncA)
	}
	R.M.Mul(m.M, A.M)
	return
}

// TransposeMul computes transpose(m) x A without forming the transpose.
func (m Matrix) TransposeMul(A Matrix, RO ...Matrix) (R Matrix) { // Does not change receiver
	var (
		_, ncM = m.Dims()
		_, ncA = A.Dims()
	)
	if len(RO) != 0 {
		R = RO[0]
	} else {
		R = NewMatrix(ncM, ncA)
	}
	R.M.Mul(m.M.T(), A.M)
	return
}

// MulTranspose computes m x transpose(A) without forming the transpose.
func (m Matrix) MulTranspose(A Matrix, RO ...Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.Dims()
		nrA, _ = A.Dims()
	)
	if len(RO) != 0 {
		R = RO[0]
	} else {
		R = NewMatrix(nrM, nrA)
	}
	R.M.Mul(m.M, A.M.T())
	return
}

func (m Matrix) Slice(I, K, J, L int) (R Matrix) { // Does not change receiver
	var (
		nrR    = K - I
		ncR    = L - J
		_, ncM = m.Dims()
	)
	R = NewMatrix(nrR, ncR)
	for i := I; i < K; i++ {
		for j := J; j < L; j++ {
			R.DataP[(i-I)*ncR+(j-J)] = m.DataP[i*ncM+j]
		}
	}
	return
}

func (m Matrix) SliceRows(I Index) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(len(I), nc)
	for i, row := range I {
		if row > nr-1 || row < 0 {
			err := fmt.Errorf("row index out of bounds: index = %d, max = %d", row, nr-1)
			panic(err)
		}
		copy(R.DataP[i*nc:(i+1)*nc], m.DataP[row*nc:(row+1)*nc])
	}
	return
}

func (m Matrix) SliceCols(I Index) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, len(I))
	for j, col := range I {
		if col > nc-1 || col < 0 {
			err := fmt.Errorf("column index out of bounds: index = %d, max = %d", col, nc-1)
			panic(err)
		}
		for i := 0; i < nr; i++ {
			R.DataP[i*len(I)+j] = m.DataP[i*nc+col]
		}
	}
	return
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) SetRow(i int, data []float64) Matrix { // Changes receiver
	var (
		_, nc = m.Dims()
	)
	if len(data) != nc {
		err := fmt.Errorf("mismatch in row assignment: len(data) = %v, nc = %v", len(data), nc)
		panic(err)
	}
	copy(m.DataP[i*nc:(i+1)*nc], data)
	return m
}

func (m Matrix) SetCol(j int, data []float64) Matrix { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	if len(data) != nr {
		err := fmt.Errorf("mismatch in column assignment: len(data) = %v, nr = %v", len(data), nr)
		panic(err)
	}
	for i := 0; i < nr; i++ {
		m.DataP[i*nc+j] = data[i]
	}
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] += val
	}
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] -= val
	}
	return m
}

// AddScaled accumulates a*A into the receiver.
func (m Matrix) AddScaled(A Matrix, a float64) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] += a * val
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	for i := range m.DataP {
		m.DataP[i] *= a
	}
	return m
}

func (m Matrix) AddScalar(a float64) Matrix { // Changes receiver
	for i := range m.DataP {
		m.DataP[i] += a
	}
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix { // Changes receiver
	for i, val := range m.DataP {
		m.DataP[i] = f(val)
	}
	return m
}

func (m Matrix) Apply2(f func(float64, float64) float64, A Matrix) Matrix { // Changes receiver
	for i, val := range m.DataP {
		m.DataP[i] = f(val, A.DataP[i])
	}
	return m
}

func (m Matrix) Apply3(f func(float64, float64, float64) float64, A, B Matrix) Matrix { // Changes receiver
	for i, val := range m.DataP {
		m.DataP[i] = f(val, A.DataP[i], B.DataP[i])
	}
	return m
}

func (m Matrix) ElMul(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] *= val
	}
	return m
}

func (m Matrix) ElDiv(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] /= val
	}
	return m
}

func (m Matrix) POW(p int) Matrix { // Changes receiver
	for i, val := range m.DataP {
		m.DataP[i] = POW(val, p)
	}
	return m
}

func (m Matrix) Zero() Matrix { // Changes receiver
	for i := range m.DataP {
		m.DataP[i] = 0
	}
	return m
}

func (m Matrix) Min() (min float64) {
	min = m.DataP[0]
	for _, val := range m.DataP {
		if val < min {
			min = val
		}
	}
	return
}

func (m Matrix) Max() (max float64) {
	max = m.DataP[0]
	for _, val := range m.DataP {
		if val > max {
			max = val
		}
	}
	return
}

func (m Matrix) Sum() (sum float64) {
	for _, val := range m.DataP {
		sum += val
	}
	return
}

// SumCols reduces each column to its sum, returning a 1 x nc row.
func (m Matrix) SumCols() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(1, nc)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.DataP[j] += m.DataP[i*nc+j]
		}
	}
	return
}

func (m Matrix) Col(j int) (V Vector) {
	var (
		nr, nc = m.Dims()
	)
	V = NewVector(nr)
	for i := 0; i < nr; i++ {
		V.DataP[i] = m.DataP[i*nc+j]
	}
	return
}

func (m Matrix) Row(i int) (V Vector) {
	var (
		_, nc = m.Dims()
	)
	V = NewVector(nc)
	copy(V.DataP, m.DataP[i*nc:(i+1)*nc])
	return
}

func (m Matrix) String(msgI ...string) (o string) {
	if len(msgI) != 0 {
		o = msgI[0] + " = \n"
	}
	o += fmt.Sprintf("%v\n", mat.Formatted(m.M, mat.Squeeze()))
	return
}
