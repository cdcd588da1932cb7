// Package ode defines the narrow contract between the Bloch-Torrey
// solver and a stiff ODE integrator for linear systems of mass matrix
// form
//
//	M dy/dt = f(t, y),   y complex valued,
//
// together with a bundled implicit integrator. Implementations must
// support complex states and a nonsingular mass matrix; they are
// invoked with exactly three output times so that adaptive internals
// never need to retain a full trajectory.
package ode

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RHS evaluates dy = f(t, y) into dy. dy and y never alias.
type RHS func(t float64, y, dy []complex128)

// SystemMatrix is a complex system matrix S split into its real and
// imaginary parts, both real valued. A nil part means zero.
type SystemMatrix struct {
	Re mat.Matrix
	Im mat.Matrix
}

// Jacobian supplies the system matrix of the linear ODE, either as a
// constant or as a function of time. Exactly one field is set.
type Jacobian struct {
	Const *SystemMatrix
	Func  func(t float64) SystemMatrix
}

func (j Jacobian) at(t float64) SystemMatrix {
	if j.Const != nil {
		return *j.Const
	}
	return j.Func(t)
}

func (j Jacobian) constant() bool { return j.Const != nil }

// Config carries the integrator inputs shared by every interval of a
// solve.
type Config struct {
	// Mass is the constant mass matrix M. nil means identity.
	Mass mat.Matrix
	// MassSingular must be false: the solver only composes
	// nonsingular mass matrices.
	MassSingular bool
	AbsTol       float64
	RelTol       float64
	Jacobian     Jacobian
	// Vectorized declares that the RHS may be evaluated for several
	// states concurrently. Advisory; the bundled integrator works on a
	// single state column.
	Vectorized bool
}

func (c *Config) validate() error {
	if c.MassSingular {
		return fmt.Errorf("singular mass matrices are not supported")
	}
	if c.AbsTol <= 0 || c.RelTol <= 0 {
		return fmt.Errorf("tolerances must be positive, have abstol = %g, reltol = %g", c.AbsTol, c.RelTol)
	}
	if c.Jacobian.Const == nil && c.Jacobian.Func == nil {
		return fmt.Errorf("a Jacobian is required")
	}
	return nil
}

// Trajectory holds the states at the three requested output times.
type Trajectory struct {
	Times  [3]float64
	States [3][]complex128
}

// Final is the state at the last output time.
func (tr Trajectory) Final() []complex128 { return tr.States[2] }

type Statistics struct {
	Steps          int
	Rejected       int
	Evaluations    int
	Factorizations int
}

type IntegratorInfo struct {
	Name  string
	Order int
}

// Integrator advances a complex linear mass matrix ODE through three
// strictly increasing output times.
type Integrator interface {
	Info() IntegratorInfo
	Integrate(f RHS, times [3]float64, y0 []complex128, cfg *Config) (Trajectory, Statistics, error)
}
