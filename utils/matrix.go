package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }

func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) AddAt(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, m.M.RawMatrix().Data)
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Scale(a, m.M)
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Add(m.M, A.M)
	return m
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return
}

func (m Matrix) MulVec(v []float64) (R []float64) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	if len(v) != nc {
		panic(fmt.Errorf("dimension mismatch in MulVec: nc = %d, len(v) = %d", nc, len(v)))
	}
	R = make([]float64, nr)
	vv := mat.NewVecDense(nc, v)
	rv := mat.NewVecDense(nr, R)
	rv.MulVec(m.M, vv)
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

// LU wraps a gonum LU factorization for repeated right hand side solves.
type LU struct {
	lu *mat.LU
	N  int
}

func NewLU(A Matrix) (R *LU, err error) {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("LU requires a square matrix, have %d x %d", nr, nc)
		return
	}
	R = &LU{
		lu: &mat.LU{},
		N:  nr,
	}
	R.lu.Factorize(A.M)
	return
}

func (d *LU) Solve(b []float64) (x []float64, err error) {
	if len(b) != d.N {
		err = fmt.Errorf("dimension mismatch in LU solve: N = %d, len(b) = %d", d.N, len(b))
		return
	}
	var (
		bv = mat.NewVecDense(d.N, b)
		xv = mat.NewVecDense(d.N, make([]float64, d.N))
	)
	if err = d.lu.SolveVecTo(xv, false, bv); err != nil {
		return
	}
	x = xv.RawVector().Data
	return
}
