package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

// Accumulate adds val into entry (i,j), the usual finite element
// assembly operation.
func (m DOK) Accumulate(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:        m.M.ToCSR(),
		readOnly: m.readOnly,
		name:     m.name,
	}
}

type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

func (m CSR) SetReadOnly(name ...string) CSR {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return m
}

func (m CSR) DoNonZero(fn func(i, j int, v float64)) {
	m.M.DoNonZero(fn)
}

// MulVec computes R = m * v using the raw CSR storage directly.
func (m CSR) MulVec(v []float64) (R []float64) {
	var (
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if len(v) != nc {
		panic(fmt.Errorf("dimension mismatch in sparse MulVec: nc = %d, len(v) = %d", nc, len(v)))
	}
	R = make([]float64, nr)
	for i := 0; i < nr; i++ {
		var sum float64
		for ptr := raw.Indptr[i]; ptr < raw.Indptr[i+1]; ptr++ {
			sum += raw.Data[ptr] * v[raw.Ind[ptr]]
		}
		R[i] = sum
	}
	return
}

// MulCVec applies the real matrix to a complex vector, real and
// imaginary parts independently.
func (m CSR) MulCVec(v []complex128) (R []complex128) {
	var (
		nr, nc = m.Dims()
		raw    = m.RawMatrix()
	)
	if len(v) != nc {
		panic(fmt.Errorf("dimension mismatch in sparse MulCVec: nc = %d, len(v) = %d", nc, len(v)))
	}
	R = make([]complex128, nr)
	for i := 0; i < nr; i++ {
		var sum complex128
		for ptr := raw.Indptr[i]; ptr < raw.Indptr[i+1]; ptr++ {
			sum += complex(raw.Data[ptr], 0) * v[raw.Ind[ptr]]
		}
		R[i] = sum
	}
	return
}

// Scale returns a new CSR holding a*m.
func (m CSR) Scale(a float64) CSR {
	var (
		nr, nc = m.Dims()
		out    = NewDOK(nr, nc)
	)
	m.DoNonZero(func(i, j int, v float64) {
		out.Set(i, j, a*v)
	})
	return out.ToCSR()
}

// Dense expands the sparse matrix into a dense Matrix.
func (m CSR) Dense() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	m.DoNonZero(func(i, j int, v float64) {
		R.Set(i, j, v)
	})
	return
}

// SumCSR adds any number of equally sized sparse matrices.
func SumCSR(Ms ...CSR) CSR {
	if len(Ms) == 0 {
		panic("SumCSR requires at least one operand")
	}
	var (
		nr, nc = Ms[0].Dims()
		out    = NewDOK(nr, nc)
	)
	for _, M := range Ms {
		r, c := M.Dims()
		if r != nr || c != nc {
			panic(fmt.Errorf("dimension mismatch in SumCSR: %dx%d vs %dx%d", nr, nc, r, c))
		}
		M.DoNonZero(func(i, j int, v float64) {
			out.Accumulate(i, j, v)
		})
	}
	return out.ToCSR()
}
