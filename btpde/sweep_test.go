package btpde

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spinsim/btpde/femesh"
	"github.com/spinsim/btpde/sequence"
)

func freeDiffusionSetup(t *testing.T) (*GlobalOperators, sequence.Sequence) {
	var (
		c    = femesh.UnitCubeMesh(3, 1)
		mesh = &femesh.Mesh{Compartments: []*femesh.Compartment{c}}
	)
	ops, err := Assemble(mesh, []CompartmentParams{
		{Diffusivity: femesh.IsotropicTensor(0.002), T2: NoRelaxation, InitialDensity: 1},
	})
	assert.NoError(t, err)
	seq, err := sequence.NewPGSE(5000, 5000)
	assert.NoError(t, err)
	return ops, seq
}

func TestSweepSignalAttenuation(t *testing.T) {
	ops, seq := freeDiffusionSetup(t)
	var (
		b = 10.
		e = &Experiment{
			Amplitudes:     AmplitudesFromBvalues([]float64{b}, []sequence.Sequence{seq}),
			Sequences:      []sequence.Sequence{seq},
			Directions:     [][3]float64{{1, 0, 0}},
			AbsTol:         1.e-8,
			RelTol:         1.e-6,
			ParallelDegree: 1,
		}
	)
	rb, err := Run(ops, e)
	assert.NoError(t, err)
	assert.Equal(t, 0, rb.Failed())

	var (
		r     = rb.At(0, 0, 0)
		s0    = cmplx.Abs(ops.InitialSignal())
		atten = cmplx.Abs(r.Signal) / s0
		free  = math.Exp(-b * 0.002)
	)
	assert.NoError(t, r.Err)
	assert.Greater(t, r.Stats.Steps, 0)
	// The impermeable box restricts the walk: the signal sits between
	// the free diffusion envelope and the unattenuated reference, both
	// close to one at this weighting.
	assert.Greater(t, atten, free-1.e-3)
	assert.Less(t, atten, 1+1.e-6)
	assert.InDelta(t, free, atten, 0.05)
	// One compartment, so the split signal is the total.
	assert.Equal(t, 1, len(r.CompartmentSignal))
	assert.InDelta(t, cmplx.Abs(r.CompartmentSignal[0]), cmplx.Abs(r.Signal), 1.e-12)
}

func TestSweepMonotoneAttenuation(t *testing.T) {
	ops, seq := freeDiffusionSetup(t)
	var (
		bs = []float64{0, 5, 10}
		e  = &Experiment{
			Amplitudes:     AmplitudesFromBvalues(bs, []sequence.Sequence{seq}),
			Sequences:      []sequence.Sequence{seq},
			Directions:     [][3]float64{{0, 1, 0}},
			AbsTol:         1.e-8,
			RelTol:         1.e-6,
			ParallelDegree: 1,
		}
	)
	rb, err := Run(ops, e)
	assert.NoError(t, err)
	s0 := cmplx.Abs(ops.InitialSignal())
	// b = 0 keeps the magnetization constant: the generator kills
	// uniform states.
	assert.InDelta(t, s0, cmplx.Abs(rb.At(0, 0, 0).Signal), 1.e-6*s0)
	for i := 1; i < len(bs); i++ {
		assert.Less(t,
			cmplx.Abs(rb.At(i, 0, 0).Signal),
			cmplx.Abs(rb.At(i-1, 0, 0).Signal)+1.e-12)
	}
}

func TestSweepParallelDeterminism(t *testing.T) {
	ops, seq := freeDiffusionSetup(t)
	base := Experiment{
		Amplitudes: AmplitudesFromBvalues([]float64{2, 8}, []sequence.Sequence{seq}),
		Sequences:  []sequence.Sequence{seq},
		Directions: [][3]float64{{1, 0, 0}, {1, 1, 1}},
		AbsTol:     1.e-8,
		RelTol:     1.e-6,
	}
	var (
		seqExp = base
		parExp = base
	)
	seqExp.ParallelDegree = 1
	parExp.ParallelDegree = 4
	rbs, err := Run(ops, &seqExp)
	assert.NoError(t, err)
	rbp, err := Run(ops, &parExp)
	assert.NoError(t, err)
	for i := range rbs.Results {
		assert.Equal(t, rbs.Results[i].Signal, rbp.Results[i].Signal)
		assert.Equal(t, rbs.Results[i].Stats, rbp.Results[i].Stats)
	}
}

func TestSweepDirectionSymmetry(t *testing.T) {
	ops, seq := freeDiffusionSetup(t)
	e := &Experiment{
		Amplitudes:     AmplitudesFromBvalues([]float64{8}, []sequence.Sequence{seq}),
		Sequences:      []sequence.Sequence{seq},
		Directions:     [][3]float64{{1, 2, 0}, {-1, -2, 0}},
		AbsTol:         1.e-8,
		RelTol:         1.e-6,
		ParallelDegree: 1,
	}
	rb, err := Run(ops, e)
	assert.NoError(t, err)
	// Reversing the gradient conjugates the signal.
	var (
		sp = rb.At(0, 0, 0).Signal
		sm = rb.At(0, 0, 1).Signal
	)
	assert.InDelta(t, real(sp), real(sm), 1.e-8)
	assert.InDelta(t, imag(sp), -imag(sm), 1.e-8)
}

func TestSweepRelaxationEnvelope(t *testing.T) {
	// Without a gradient the uniform magnetization just relaxes:
	// S(TE) = S0 exp(-TE/T2).
	var (
		c    = femesh.UnitCubeMesh(2, 1)
		mesh = &femesh.Mesh{Compartments: []*femesh.Compartment{c}}
		T2   = 1.e5
	)
	ops, err := Assemble(mesh, []CompartmentParams{
		{Diffusivity: femesh.IsotropicTensor(0.002), T2: T2, InitialDensity: 1},
	})
	assert.NoError(t, err)
	seq, err := sequence.NewPGSE(5000, 5000)
	assert.NoError(t, err)
	e := &Experiment{
		Amplitudes:     [][]float64{{0}},
		Sequences:      []sequence.Sequence{seq},
		Directions:     [][3]float64{{1, 0, 0}},
		AbsTol:         1.e-10,
		RelTol:         1.e-8,
		ParallelDegree: 1,
	}
	rb, err := Run(ops, e)
	assert.NoError(t, err)
	var (
		want = math.Exp(-seq.EchoTime() / T2)
		got  = cmplx.Abs(rb.At(0, 0, 0).Signal) / cmplx.Abs(ops.InitialSignal())
	)
	assert.InDelta(t, want, got, 1.e-6)
}

func TestSweepValidation(t *testing.T) {
	ops, seq := freeDiffusionSetup(t)
	good := Experiment{
		Amplitudes:     [][]float64{{0.01}},
		Sequences:      []sequence.Sequence{seq},
		Directions:     [][3]float64{{1, 0, 0}},
		AbsTol:         1.e-8,
		RelTol:         1.e-6,
		ParallelDegree: 1,
	}
	{
		e := good
		e.Directions = nil
		_, err := Run(ops, &e)
		assert.Error(t, err)
	}
	{
		e := good
		e.Directions = [][3]float64{{0, 0, 0}}
		_, err := Run(ops, &e)
		assert.Error(t, err)
	}
	{
		e := good
		e.Amplitudes = [][]float64{{0.01, 0.02}}
		_, err := Run(ops, &e)
		assert.Error(t, err)
	}
	{
		e := good
		e.AbsTol = 0
		_, err := Run(ops, &e)
		assert.Error(t, err)
	}
}

func TestAmplitudeGrids(t *testing.T) {
	p, _ := sequence.NewPGSE(2500, 5000)
	o, _ := sequence.NewSinOGSE(5000, 8000, 4)
	seqs := []sequence.Sequence{p, o}
	{
		amps := UniformAmplitudes([]float64{0.01, 0.02}, 2)
		assert.Equal(t, [][]float64{{0.01, 0.01}, {0.02, 0.02}}, amps)
	}
	{
		amps := AmplitudesFromBvalues([]float64{100}, seqs)
		assert.Equal(t, 1, len(amps))
		assert.Equal(t, 2, len(amps[0]))
		// b = q^2 IntegralF2 holds per sequence.
		for j, s := range seqs {
			assert.InDelta(t, 100., amps[0][j]*amps[0][j]*s.IntegralF2(), 1.e-9)
		}
	}
}
