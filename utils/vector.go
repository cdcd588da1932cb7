package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	if len(dataO) != 0 {
		R = Vector{mat.NewVecDense(n, dataO[0])}
	} else {
		R = Vector{mat.NewVecDense(n, make([]float64, n))}
	}
	return
}

func NewVectorConstant(n int, val float64) (R Vector) {
	var (
		x = make([]float64, n)
	)
	for i := range x {
		x[i] = val
	}
	R = Vector{mat.NewVecDense(n, x)}
	return
}

func (v Vector) Len() int            { return v.V.Len() }
func (v Vector) AtVec(i int) float64 { return v.V.AtVec(i) }
func (v Vector) Data() []float64     { return v.V.RawVector().Data }

func (v Vector) Sum() (s float64) {
	for _, val := range v.Data() {
		s += val
	}
	return
}

func (v Vector) Min() (m float64) {
	m = math.Inf(1)
	for _, val := range v.Data() {
		if val < m {
			m = val
		}
	}
	return
}

func (v Vector) Max() (m float64) {
	m = math.Inf(-1)
	for _, val := range v.Data() {
		if val > m {
			m = val
		}
	}
	return
}

func (v Vector) Scale(a float64) Vector {
	v.V.ScaleVec(a, v.V)
	return v
}
