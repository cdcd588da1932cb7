// Package btpde solves the Bloch-Torrey partial differential equation
// over a finite element discretized multi-compartment domain: it
// composes per compartment operators into coupled global systems,
// advances the complex magnetization through the gradient waveform
// breakpoints, and sweeps (amplitude, sequence, direction)
// combinations in parallel.
package btpde

import (
	"fmt"
	"math"

	"github.com/spinsim/btpde/femesh"
	"github.com/spinsim/btpde/utils"
)

// NoRelaxation is the T2 value meaning no transverse relaxation at
// all, handled as an explicit zero relaxation term.
var NoRelaxation = math.Inf(1)

// CompartmentParams are the PDE coefficients of one compartment.
type CompartmentParams struct {
	Diffusivity femesh.DiffusionTensor
	// T2 is the transverse relaxation time in us. NoRelaxation (+Inf)
	// disables relaxation; zero is a configuration error.
	T2 float64
	// InitialDensity is the constant spin density the magnetization
	// starts from.
	InitialDensity float64
}

// GlobalOperators is the immutable block diagonal composition of the
// per compartment finite element operators, plus the interface
// coupling. The concatenation order of the compartments fixes the
// global index mapping for every operator and for the initial
// magnetization alike.
type GlobalOperators struct {
	N       int
	Offsets []int // per compartment start index, with the total last

	Mass      utils.CSR
	Stiffness utils.CSR
	Relax     utils.CSR
	Moments   [3]utils.CSR // coordinate weighted mass: Jx, Jy, Jz
	Coupling  utils.CSR    // permeability flux Q

	// Evolution is the precomputed real part K + Q + R of the
	// Bloch-Torrey generator, shared by every sweep task.
	Evolution utils.CSR

	// CompartmentMass keeps the per compartment mass blocks for signal
	// extraction.
	CompartmentMass []utils.CSR

	InitialMagnetization []complex128
}

// Assemble builds the global operators for a mesh and its per
// compartment coefficients. Matrices are marked read only: the sweep
// shares them freely across tasks.
func Assemble(mesh *femesh.Mesh, params []CompartmentParams) (ops *GlobalOperators, err error) {
	if len(mesh.Compartments) == 0 {
		err = fmt.Errorf("mesh has no compartments")
		return
	}
	if len(params) != len(mesh.Compartments) {
		err = fmt.Errorf("have %d compartments but %d parameter sets",
			len(mesh.Compartments), len(params))
		return
	}
	var (
		offs = mesh.Offsets()
		n    = offs[len(offs)-1]
	)
	ops = &GlobalOperators{
		N:                    n,
		Offsets:              offs,
		CompartmentMass:      make([]utils.CSR, len(mesh.Compartments)),
		InitialMagnetization: utils.NewCVector(n),
	}
	var (
		massDok  = utils.NewDOK(n, n)
		stiffDok = utils.NewDOK(n, n)
		relaxDok = utils.NewDOK(n, n)
		momDok   = [3]utils.DOK{utils.NewDOK(n, n), utils.NewDOK(n, n), utils.NewDOK(n, n)}
	)
	for c, cmpt := range mesh.Compartments {
		p := params[c]
		if p.T2 <= 0 {
			return nil, fmt.Errorf("compartment %d: relaxation time must be positive or +Inf, have %g", c, p.T2)
		}
		var (
			off = offs[c]
			Mc  = femesh.MassMatrix(cmpt)
			Kc  = femesh.StiffnessMatrix(cmpt, p.Diffusivity)
		)
		ops.CompartmentMass[c] = Mc.SetReadOnly(fmt.Sprintf("mass[%d]", c))
		scatter(massDok, Mc, off)
		scatter(stiffDok, Kc, off)
		if !math.IsInf(p.T2, 1) {
			scatterScaled(relaxDok, Mc, 1/p.T2, off)
		}
		for axis := 0; axis < 3; axis++ {
			scatter(momDok[axis], femesh.WeightedMassMatrix(cmpt, axis), off)
		}
		for i := 0; i < cmpt.Npoints(); i++ {
			ops.InitialMagnetization[off+i] = complex(p.InitialDensity, 0)
		}
	}
	ops.Mass = massDok.ToCSR().SetReadOnly("mass")
	ops.Stiffness = stiffDok.ToCSR().SetReadOnly("stiffness")
	ops.Relax = relaxDok.ToCSR().SetReadOnly("relaxation")
	for axis := 0; axis < 3; axis++ {
		ops.Moments[axis] = momDok[axis].ToCSR().SetReadOnly(fmt.Sprintf("moment[%d]", axis))
	}
	Q, err := femesh.CoupleFlux(mesh, true)
	if err != nil {
		return nil, err
	}
	ops.Coupling = Q.SetReadOnly("coupling")
	ops.Evolution = utils.SumCSR(ops.Stiffness, ops.Coupling, ops.Relax).SetReadOnly("evolution")
	return
}

// DirectionMoment composes the gradient direction operator
// g_x Jx + g_y Jy + g_z Jz for a unit direction.
func (ops *GlobalOperators) DirectionMoment(g [3]float64) utils.CSR {
	var (
		dok = utils.NewDOK(ops.N, ops.N)
	)
	for axis := 0; axis < 3; axis++ {
		if g[axis] == 0 {
			continue
		}
		ga := g[axis]
		ops.Moments[axis].DoNonZero(func(i, j int, v float64) {
			dok.Accumulate(i, j, ga*v)
		})
	}
	return dok.ToCSR()
}

// CompartmentRange returns the global index range [lo, hi) of one
// compartment.
func (ops *GlobalOperators) CompartmentRange(c int) (lo, hi int) {
	return ops.Offsets[c], ops.Offsets[c+1]
}

// InitialSignal is the unattenuated reference signal: the mass
// weighted sum of the initial magnetization, compartment densities
// times compartment volumes.
func (ops *GlobalOperators) InitialSignal() (s complex128) {
	for c := range ops.CompartmentMass {
		lo, hi := ops.CompartmentRange(c)
		s += utils.CVecSum(ops.CompartmentMass[c].MulCVec(ops.InitialMagnetization[lo:hi]))
	}
	return
}

func scatter(dst utils.DOK, src utils.CSR, off int) {
	src.DoNonZero(func(i, j int, v float64) {
		dst.Accumulate(off+i, off+j, v)
	})
}

func scatterScaled(dst utils.DOK, src utils.CSR, scale float64, off int) {
	src.DoNonZero(func(i, j int, v float64) {
		dst.Accumulate(off+i, off+j, scale*v)
	})
}
