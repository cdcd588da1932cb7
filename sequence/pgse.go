package sequence

import (
	"fmt"
	"math"
)

// PGSE is the classic pulsed gradient spin echo pair: a rectangular
// pulse of duration delta, a diffusion interval, and an opposite
// rectangular pulse starting BigDelta after the first.
type PGSE struct {
	timing
}

func NewPGSE(smallDelta, bigDelta float64, opts ...EchoTimeOption) (s *PGSE, err error) {
	if err = validatePulsePair(smallDelta, bigDelta); err != nil {
		return
	}
	s = &PGSE{timing{SmallDelta: smallDelta, BigDelta: bigDelta}}
	err = s.resolveEchoTime(bigDelta+smallDelta, opts)
	if err != nil {
		s = nil
	}
	return
}

func (s *PGSE) String() string {
	return fmt.Sprintf("PGSE(delta=%g, Delta=%g, TE=%g)", s.SmallDelta, s.BigDelta, s.TE)
}

func (s *PGSE) Call(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		u = t - s.T1
	)
	switch {
	case u >= 0 && u <= d:
		return 1
	case u >= D && u <= D+d:
		return -1
	}
	return 0
}

func (s *PGSE) Integral(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		u = t - s.T1
	)
	switch {
	case u < 0:
		return 0
	case u <= d:
		return u
	case u < D:
		return d
	case u <= D+d:
		return d - (u - D)
	}
	return 0
}

func (s *PGSE) IntegralF2() float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
	)
	return d * d * (D - d/3)
}

// integralF1 is the integral of F over the echo time, the trapezoid
// traced by the running gradient integral.
func (s *PGSE) integralF1() float64 {
	return s.SmallDelta * s.BigDelta
}

func (s *PGSE) DiffusionTime() float64 {
	return s.BigDelta - s.SmallDelta/3
}

func (s *PGSE) DiffusionTimeSTA() float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
	)
	u := 4.0 / 35 * (math.Pow(D+d, 3.5) + math.Pow(D-d, 3.5) - 2*math.Pow(d, 3.5) - 2*math.Pow(D, 3.5)) / s.IntegralF2()
	return u * u
}

func (s *PGSE) J(lambda float64) float64 {
	if lambda < lambdaTaylorCutoff {
		return taylorJ(lambda, s.integralF1(), s.IntegralF2())
	}
	return pgseCorrelation(lambda, s.SmallDelta, s.BigDelta) / s.IntegralF2()
}

// pgseCorrelation is the exact ordered double integral
// Int_{s<t} f(t) f(s) exp(-lambda (t-s)) for a single rectangular
// pulse pair.
func pgseCorrelation(lambda, d, D float64) float64 {
	l2 := lambda * lambda
	return (2*lambda*d - 2 +
		2*math.Exp(-lambda*d) +
		2*math.Exp(-lambda*D) -
		math.Exp(-lambda*(D-d)) -
		math.Exp(-lambda*(D+d))) / l2
}

func (s *PGSE) Intervals() (times []float64, labels []string, forms []string) {
	var (
		d  = s.SmallDelta
		D  = s.BigDelta
		t1 = s.T1
	)
	times = []float64{t1}
	appendInterval(&times, &labels, &forms, t1+d, "pulse one", FormPlus)
	appendInterval(&times, &labels, &forms, t1+D, "between pulses", FormZero)
	appendInterval(&times, &labels, &forms, t1+D+d, "pulse two", FormMinus)
	return padIntervals(s.timing, times, labels, forms)
}
