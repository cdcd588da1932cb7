// Package sequence models diffusion encoding gradient waveforms as a
// closed set of piecewise analytic time profiles. Every profile is
// normalized to unit amplitude; the gradient strength q scales it at
// the solver level. Times are in microseconds throughout.
package sequence

import (
	"fmt"
)

// Form labels attached to the interval partition. Constant forms map
// directly to a profile value, the oscillating forms require evaluating
// Call inside the interval.
const (
	FormZero  = "0"
	FormPlus  = "+1"
	FormMinus = "-1"
	FormCos   = "cos"
	FormMCos  = "-cos"
	FormSin   = "sin"
	FormMSin  = "-sin"
	// FormCustom marks a user supplied analytic segment.
	FormCustom = "custom"
)

// lambdaTaylorCutoff separates the exact exponential-sum closed forms
// of J from their series expansion. Below the cutoff the closed forms
// lose all significant digits to cancellation.
const lambdaTaylorCutoff = 1e-7

// Sequence is a diffusion encoding waveform. Implementations are
// immutable after construction.
type Sequence interface {
	// Call evaluates the unit amplitude profile f at time t.
	Call(t float64) float64
	// Integral evaluates F(t), the running integral of Call from 0,
	// exactly.
	Integral(t float64) float64
	// IntegralF2 is the closed form of the integral of F(t)^2 over the
	// whole echo time. The b-value is q^2 times this quantity.
	IntegralF2() float64
	// DiffusionTime is the effective diffusion time of the waveform.
	DiffusionTime() float64
	// DiffusionTimeSTA is the effective diffusion time in the short
	// time approximation regime.
	DiffusionTimeSTA() float64
	// J evaluates the normalized exponential correlation transform
	//   J(lambda) = (1/intF2) * Int_{s<t} f(t) f(s) exp(-lambda (t-s))
	// used by eigenfunction based solvers. lambda must be >= 0.
	J(lambda float64) float64
	// Intervals returns the waveform breakpoints together with a
	// diagnostic label and a profile form label per interval. The three
	// slices are parallel: len(times) == len(labels)+1. Zero length
	// intervals are elided.
	Intervals() (times []float64, labels []string, forms []string)
	// EchoTime is the total duration of the encoded experiment.
	EchoTime() float64

	fmt.Stringer
}

// FormConstant reports whether a form label denotes a constant profile
// and, if so, its value.
func FormConstant(form string) (val float64, ok bool) {
	switch form {
	case FormZero:
		return 0, true
	case FormPlus:
		return 1, true
	case FormMinus:
		return -1, true
	}
	return 0, false
}

// timing carries the shared pulse timing and echo time bookkeeping.
// T1 is the zero profile lead-in before the first pulse.
type timing struct {
	SmallDelta float64 // pulse duration
	BigDelta   float64 // pulse separation, start to start
	T1         float64
	TE         float64
}

// EchoTimeOption selects how the echo time relates to the natural
// waveform support.
type EchoTimeOption struct {
	TE        float64
	Symmetric bool
}

// WithEchoTime fixes the echo time with the waveform flush at the
// start (no lead-in).
func WithEchoTime(te float64) EchoTimeOption {
	return EchoTimeOption{TE: te}
}

// WithSymmetricEchoTime fixes the echo time and centers the waveform
// inside it, splitting the zero profile padding equally between the
// lead-in and the tail.
func WithSymmetricEchoTime(te float64) EchoTimeOption {
	return EchoTimeOption{TE: te, Symmetric: true}
}

// resolveEchoTime applies the echo time policy for a waveform whose
// natural support is [0, natural]. An explicit echo time shorter than
// the natural support is rejected in both the plain and the symmetric
// paths.
func (tm *timing) resolveEchoTime(natural float64, opts []EchoTimeOption) error {
	switch len(opts) {
	case 0:
		tm.T1 = 0
		tm.TE = natural
		return nil
	case 1:
	default:
		return fmt.Errorf("at most one echo time option is allowed, have %d", len(opts))
	}
	opt := opts[0]
	if opt.TE <= 0 {
		return fmt.Errorf("echo time must be positive, have %g", opt.TE)
	}
	if opt.TE < natural {
		return fmt.Errorf("echo time %g is shorter than the waveform support %g", opt.TE, natural)
	}
	tm.TE = opt.TE
	if opt.Symmetric {
		tm.T1 = (opt.TE - natural) / 2
	} else {
		tm.T1 = 0
	}
	return nil
}

func (tm timing) EchoTime() float64 { return tm.TE }

// taylorJ is the shared small lambda branch of J. It follows from the
// double integral expansion in powers of lambda, where the first
// moment is intF2 and the second moment collapses to the square of the
// integral of F.
func taylorJ(lambda, intF1, intF2 float64) float64 {
	return lambda - lambda*lambda*intF1*intF1/(2*intF2)
}

// padIntervals surrounds the natural interval partition with zero
// profile lead-in and tail intervals as the echo time policy requires,
// eliding the degenerate ones.
func padIntervals(tm timing, times []float64, labels, forms []string) ([]float64, []string, []string) {
	var (
		outT []float64
		outL []string
		outF []string
	)
	if tm.T1 > 0 {
		outT = append(outT, 0)
		outL = append(outL, "before pulses")
		outF = append(outF, FormZero)
	}
	outT = append(outT, times...)
	outL = append(outL, labels...)
	outF = append(outF, forms...)
	if tm.TE > outT[len(outT)-1] {
		outT = append(outT, tm.TE)
		outL = append(outL, "after pulses")
		outF = append(outF, FormZero)
	}
	return outT, outL, outF
}

// appendInterval adds [prev, next] unless it is degenerate.
func appendInterval(times *[]float64, labels, forms *[]string, next float64, label, form string) {
	prev := (*times)[len(*times)-1]
	if next <= prev {
		return
	}
	*times = append(*times, next)
	*labels = append(*labels, label)
	*forms = append(*forms, form)
}

func validatePulsePair(smallDelta, bigDelta float64) error {
	if smallDelta < 0 || bigDelta < 0 {
		return fmt.Errorf("pulse duration and separation must be nonnegative, have delta = %g, Delta = %g", smallDelta, bigDelta)
	}
	if smallDelta > bigDelta {
		return fmt.Errorf("pulse duration %g exceeds pulse separation %g", smallDelta, bigDelta)
	}
	return nil
}
