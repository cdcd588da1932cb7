package utils

import (
	"math"
	"math/cmplx"
)

// Complex vectors carry the magnetization state. The FEM operators stay
// real valued, so complex arithmetic only ever enters through the
// gradient phase term and these helpers stay deliberately small.

func NewCVector(n int) []complex128 {
	return make([]complex128, n)
}

func NewCVectorConstant(n int, val complex128) (R []complex128) {
	R = make([]complex128, n)
	for i := range R {
		R[i] = val
	}
	return
}

func CVecCopy(v []complex128) (R []complex128) {
	R = make([]complex128, len(v))
	copy(R, v)
	return
}

func CVecSum(v []complex128) (s complex128) {
	for _, val := range v {
		s += val
	}
	return
}

// CVecMaxAbs returns the largest complex magnitude, used for weighted
// error norms in the integrator.
func CVecMaxAbs(v []complex128) (m float64) {
	for _, val := range v {
		if a := cmplx.Abs(val); a > m {
			m = a
		}
	}
	return
}

// CVecWRMS is the weighted root mean square norm of d with weights
// atol + rtol*|y|, the standard accept/reject measure for adaptive
// ODE steps.
func CVecWRMS(d, y []complex128, atol, rtol float64) (nrm float64) {
	var sum float64
	for i := range d {
		w := atol + rtol*cmplx.Abs(y[i])
		e := cmplx.Abs(d[i]) / w
		sum += e * e
	}
	nrm = math.Sqrt(sum / float64(len(d)))
	return
}

func CVecSplit(v []complex128) (re, im []float64) {
	re = make([]float64, len(v))
	im = make([]float64, len(v))
	for i, val := range v {
		re[i] = real(val)
		im[i] = imag(val)
	}
	return
}

func CVecMerge(re, im []float64) (R []complex128) {
	R = make([]complex128, len(re))
	for i := range re {
		R[i] = complex(re[i], im[i])
	}
	return
}
