package utils

import (
	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK wraps a dictionary-of-keys sparse matrix for incremental assembly.
// Assemble into DOK, convert to CSR for multiplication.
type DOK struct {
	M *sparse.DOK
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		M: sparse.NewDOK(nr, nc),
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)              { return m.M.Dims() }
func (m DOK) At(i, j int) float64           { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix                 { return m.M.T() }
func (m DOK) RawMatrix() *blas.SparseMatrix { return m.ToCSR().RawMatrix() }

func (m DOK) Set(i, j int, val float64) DOK { // Changes receiver
	m.M.Set(i, j, val)
	return m
}

// Accumulate adds val at (i,j) on top of whatever is there.
func (m DOK) Accumulate(i, j int, val float64) DOK { // Changes receiver
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

func (m DOK) NNZ() int { return m.M.NNZ() }

func (m DOK) ToCSR() CSR {
	return CSR{
		M: m.M.ToCSR(),
	}
}

// CSR wraps a compressed sparse row matrix for fast multiplication.
type CSR struct {
	M *sparse.CSR
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

func (m CSR) NNZ() int { return m.M.NNZ() }

// Mul computes m x A into a new dense matrix.
func (m CSR) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nr, _ = m.Dims()
		_, nc = A.Dims()
	)
	R = NewMatrix(nr, nc)
	R.M.Mul(m.M, A.M)
	return
}

// MulVec computes m x v into a new vector.
func (m CSR) MulVec(v Vector) (R Vector) { // Does not change receiver
	var (
		nr, _ = m.Dims()
	)
	R = NewVector(nr)
	R.V.MulVec(m.M, v.V)
	return
}
