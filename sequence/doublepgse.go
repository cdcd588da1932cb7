package sequence

import (
	"fmt"
	"math"
)

// DoublePGSE concatenates two identical PGSE encoding blocks separated
// by an optional zero gradient pause.
type DoublePGSE struct {
	timing
	Pause float64
}

func NewDoublePGSE(smallDelta, bigDelta, pause float64, opts ...EchoTimeOption) (s *DoublePGSE, err error) {
	if err = validatePulsePair(smallDelta, bigDelta); err != nil {
		return
	}
	if pause < 0 {
		err = fmt.Errorf("pause must be nonnegative, have %g", pause)
		return
	}
	s = &DoublePGSE{
		timing: timing{SmallDelta: smallDelta, BigDelta: bigDelta},
		Pause:  pause,
	}
	err = s.resolveEchoTime(2*(bigDelta+smallDelta)+pause, opts)
	if err != nil {
		s = nil
	}
	return
}

func (s *DoublePGSE) String() string {
	return fmt.Sprintf("DoublePGSE(delta=%g, Delta=%g, pause=%g, TE=%g)",
		s.SmallDelta, s.BigDelta, s.Pause, s.TE)
}

// blockShift is the start to start offset between the two encoding
// blocks.
func (s *DoublePGSE) blockShift() float64 {
	return s.BigDelta + s.SmallDelta + s.Pause
}

func (s *DoublePGSE) Call(t float64) float64 {
	var (
		d  = s.SmallDelta
		D  = s.BigDelta
		u  = t - s.T1
		u2 = u - s.blockShift()
	)
	switch {
	case u >= 0 && u <= d:
		return 1
	case u >= D && u <= D+d:
		return -1
	case u2 >= 0 && u2 <= d:
		return 1
	case u2 >= D && u2 <= D+d:
		return -1
	}
	return 0
}

func (s *DoublePGSE) Integral(t float64) float64 {
	block := func(u float64) float64 {
		var (
			d = s.SmallDelta
			D = s.BigDelta
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
	u := t - s.T1
	return block(u) + block(u-s.blockShift())
}

func (s *DoublePGSE) IntegralF2() float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
	)
	return 2 * d * d * (D - d/3)
}

func (s *DoublePGSE) integralF1() float64 {
	return 2 * s.SmallDelta * s.BigDelta
}

// DiffusionTime is the b-value normalized effective time of the full
// double encoding, twice the single block value.
func (s *DoublePGSE) DiffusionTime() float64 {
	return 2 * (s.BigDelta - s.SmallDelta/3)
}

// DiffusionTimeSTA keeps the single block short time limit: in the
// short time regime the two blocks decorrelate and each contributes
// the PGSE value.
func (s *DoublePGSE) DiffusionTimeSTA() float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
	)
	u := 4.0 / 35 * (math.Pow(D+d, 3.5) + math.Pow(D-d, 3.5) - 2*math.Pow(d, 3.5) - 2*math.Pow(D, 3.5)) / (d * d * (D - d/3))
	return u * u
}

func (s *DoublePGSE) J(lambda float64) float64 {
	if lambda < lambdaTaylorCutoff {
		return taylorJ(lambda, s.integralF1(), s.IntegralF2())
	}
	var (
		d  = s.SmallDelta
		D  = s.BigDelta
		Ts = s.blockShift()
	)
	// Cross correlation between the two blocks in a cancellation free
	// sinh form.
	sd := math.Sinh(lambda * d / 2)
	sD := math.Sinh(lambda * D / 2)
	cross := -16 * math.Exp(-lambda*Ts) * sd * sd * sD * sD / (lambda * lambda)
	return (2*pgseCorrelation(lambda, d, D) + cross) / s.IntegralF2()
}

func (s *DoublePGSE) Intervals() (times []float64, labels []string, forms []string) {
	var (
		d  = s.SmallDelta
		D  = s.BigDelta
		t1 = s.T1
		Ts = s.blockShift()
	)
	times = []float64{t1}
	appendInterval(&times, &labels, &forms, t1+d, "pulse one", FormPlus)
	appendInterval(&times, &labels, &forms, t1+D, "between pulses", FormZero)
	appendInterval(&times, &labels, &forms, t1+D+d, "pulse two", FormMinus)
	appendInterval(&times, &labels, &forms, t1+Ts, "pause", FormZero)
	appendInterval(&times, &labels, &forms, t1+Ts+d, "pulse three", FormPlus)
	appendInterval(&times, &labels, &forms, t1+Ts+D, "between pulses", FormZero)
	appendInterval(&times, &labels, &forms, t1+Ts+D+d, "pulse four", FormMinus)
	return padIntervals(s.timing, times, labels, forms)
}
