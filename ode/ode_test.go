package ode

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"

	"gonum.org/v1/gonum/mat"
)

func TestCrankNicolsonScalarDecay(t *testing.T) {
	// dy/dt = -a y has the exact solution exp(-a t).
	var (
		a   = 0.7
		cn  = &CrankNicolson{}
		jac = mat.NewDense(1, 1, []float64{-a})
		cfg = &Config{
			AbsTol:   1.e-10,
			RelTol:   1.e-8,
			Jacobian: Jacobian{Const: &SystemMatrix{Re: jac}},
		}
	)
	f := func(tt float64, y, dy []complex128) {
		dy[0] = complex(-a, 0) * y[0]
	}
	tr, st, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1}, cfg)
	assert.NoError(t, err)
	assert.Equal(t, [3]float64{0, 1, 2}, tr.Times)
	assert.InDelta(t, math.Exp(-a), real(tr.States[1][0]), 1.e-6)
	assert.InDelta(t, math.Exp(-2*a), real(tr.Final()[0]), 1.e-6)
	assert.InDelta(t, 0., imag(tr.Final()[0]), 1.e-9)
	assert.Greater(t, st.Steps, 0)
	assert.Greater(t, st.Factorizations, 0)
}

func TestCrankNicolsonComplexRotation(t *testing.T) {
	// dy/dt = -i w y rotates the state on the unit circle.
	var (
		w   = 2.0
		cn  = &CrankNicolson{}
		cfg = &Config{
			AbsTol:   1.e-10,
			RelTol:   1.e-8,
			Jacobian: Jacobian{Const: &SystemMatrix{Im: mat.NewDense(1, 1, []float64{-w})}},
		}
	)
	f := func(tt float64, y, dy []complex128) {
		dy[0] = complex(0, -w) * y[0]
	}
	tr, _, err := cn.Integrate(f, [3]float64{0, 0.5, 1}, []complex128{1}, cfg)
	assert.NoError(t, err)
	got := tr.Final()[0]
	want := cmplx.Exp(complex(0, -w))
	assert.InDelta(t, real(want), real(got), 1.e-6)
	assert.InDelta(t, imag(want), imag(got), 1.e-6)
	// Magnitude is preserved by the rotation.
	assert.InDelta(t, 1., cmplx.Abs(got), 1.e-6)
}

func TestCrankNicolsonMassMatrix(t *testing.T) {
	// M dy/dt = -a M y with a nontrivial symmetric positive M keeps the
	// scalar decay solution componentwise.
	var (
		a  = 0.5
		M  = mat.NewDense(2, 2, []float64{2, 1, 1, 2})
		S  = mat.NewDense(2, 2, []float64{-2 * a, -a, -a, -2 * a})
		cn = &CrankNicolson{}
	)
	cfg := &Config{
		Mass:     M,
		AbsTol:   1.e-10,
		RelTol:   1.e-8,
		Jacobian: Jacobian{Const: &SystemMatrix{Re: S}},
	}
	f := func(tt float64, y, dy []complex128) {
		dy[0] = complex(-2*a, 0)*y[0] + complex(-a, 0)*y[1]
		dy[1] = complex(-a, 0)*y[0] + complex(-2*a, 0)*y[1]
	}
	tr, _, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1, 1}, cfg)
	assert.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, math.Exp(-2*a), real(tr.Final()[i]), 1.e-6)
	}
}

func TestCrankNicolsonTimeDependent(t *testing.T) {
	// dy/dt = -t y integrates to exp(-t^2/2).
	var (
		cn  = &CrankNicolson{}
		cfg = &Config{
			AbsTol: 1.e-10,
			RelTol: 1.e-8,
			Jacobian: Jacobian{Func: func(tt float64) SystemMatrix {
				return SystemMatrix{Re: mat.NewDense(1, 1, []float64{-tt})}
			}},
		}
	)
	f := func(tt float64, y, dy []complex128) {
		dy[0] = complex(-tt, 0) * y[0]
	}
	tr, _, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1}, cfg)
	assert.NoError(t, err)
	assert.InDelta(t, math.Exp(-2), real(tr.Final()[0]), 1.e-5)
}

func TestConfigValidation(t *testing.T) {
	var (
		cn  = &CrankNicolson{}
		f   = func(tt float64, y, dy []complex128) { dy[0] = 0 }
		jac = Jacobian{Const: &SystemMatrix{Re: mat.NewDense(1, 1, []float64{0})}}
	)
	// Missing Jacobian
	{
		_, _, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1},
			&Config{AbsTol: 1.e-8, RelTol: 1.e-6})
		assert.Error(t, err)
	}
	// Singular mass declaration
	{
		_, _, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1},
			&Config{MassSingular: true, AbsTol: 1.e-8, RelTol: 1.e-6, Jacobian: jac})
		assert.Error(t, err)
	}
	// Nonpositive tolerances
	{
		_, _, err := cn.Integrate(f, [3]float64{0, 1, 2}, []complex128{1},
			&Config{AbsTol: 0, RelTol: 1.e-6, Jacobian: jac})
		assert.Error(t, err)
	}
	// Output times must increase
	{
		_, _, err := cn.Integrate(f, [3]float64{0, 2, 1}, []complex128{1},
			&Config{AbsTol: 1.e-8, RelTol: 1.e-6, Jacobian: jac})
		assert.Error(t, err)
	}
	{
		info := cn.Info()
		assert.Equal(t, "crank-nicolson", info.Name)
		assert.Equal(t, 2, info.Order)
	}
}
