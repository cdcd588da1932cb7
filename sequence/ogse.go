package sequence

import (
	"fmt"
	"math"
)

// CosOGSE is an oscillating gradient spin echo pair with a cosine
// modulated profile carrying Nperiod full periods per pulse.
type CosOGSE struct {
	timing
	Nperiod int
}

func NewCosOGSE(smallDelta, bigDelta float64, nperiod int, opts ...EchoTimeOption) (s *CosOGSE, err error) {
	if err = validateOGSE(smallDelta, bigDelta, nperiod); err != nil {
		return
	}
	s = &CosOGSE{
		timing:  timing{SmallDelta: smallDelta, BigDelta: bigDelta},
		Nperiod: nperiod,
	}
	err = s.resolveEchoTime(bigDelta+smallDelta, opts)
	if err != nil {
		s = nil
	}
	return
}

func validateOGSE(smallDelta, bigDelta float64, nperiod int) error {
	if err := validatePulsePair(smallDelta, bigDelta); err != nil {
		return err
	}
	if smallDelta == 0 {
		return fmt.Errorf("oscillating pulse duration must be positive")
	}
	if nperiod < 1 {
		return fmt.Errorf("period count must be at least 1, have %d", nperiod)
	}
	return nil
}

// omega is the angular frequency fitting Nperiod full periods in one
// pulse.
func (s *CosOGSE) omega() float64 {
	return 2 * math.Pi * float64(s.Nperiod) / s.SmallDelta
}

func (s *CosOGSE) String() string {
	return fmt.Sprintf("CosOGSE(delta=%g, Delta=%g, n=%d, TE=%g)",
		s.SmallDelta, s.BigDelta, s.Nperiod, s.TE)
}

func (s *CosOGSE) Call(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		w = s.omega()
		u = t - s.T1
	)
	switch {
	case u >= 0 && u <= d:
		return math.Cos(w * u)
	case u >= D && u <= D+d:
		return -math.Cos(w * (u - D))
	}
	return 0
}

func (s *CosOGSE) Integral(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		w = s.omega()
		u = t - s.T1
	)
	switch {
	case u >= 0 && u <= d:
		return math.Sin(w*u) / w
	case u >= D && u <= D+d:
		return -math.Sin(w*(u-D)) / w
	}
	return 0
}

func (s *CosOGSE) IntegralF2() float64 {
	w := s.omega()
	return s.SmallDelta / (w * w)
}

func (s *CosOGSE) DiffusionTime() float64 {
	// Quarter period of the modulation.
	return s.SmallDelta / (4 * float64(s.Nperiod))
}

func (s *CosOGSE) DiffusionTimeSTA() float64 {
	return 9 * s.SmallDelta / (64 * float64(s.Nperiod))
}

func (s *CosOGSE) J(lambda float64) float64 {
	if lambda < lambdaTaylorCutoff {
		// The running integral of a full period cosine train has zero
		// mean, the quadratic Taylor term vanishes.
		return taylorJ(lambda, 0, s.IntegralF2())
	}
	var (
		d   = s.SmallDelta
		D   = s.BigDelta
		w   = s.omega()
		l2  = lambda * lambda
		den = l2 + w*w
	)
	pulse := (lambda*d/2 + l2*math.Expm1(-lambda*d)/den) / den
	sh := math.Sinh(lambda * d / 2)
	cross := -4 * l2 * sh * sh * math.Exp(-lambda*D) / (den * den)
	return (2*pulse + cross) / s.IntegralF2()
}

func (s *CosOGSE) Intervals() (times []float64, labels []string, forms []string) {
	return ogseIntervals(s.timing, FormCos, FormMCos)
}

// SinOGSE is the sine modulated oscillating pair. Unlike the cosine
// variant its running integral never changes sign within a pulse,
// which triples the diffusion weighting per unit amplitude.
type SinOGSE struct {
	timing
	Nperiod int
}

func NewSinOGSE(smallDelta, bigDelta float64, nperiod int, opts ...EchoTimeOption) (s *SinOGSE, err error) {
	if err = validateOGSE(smallDelta, bigDelta, nperiod); err != nil {
		return
	}
	s = &SinOGSE{
		timing:  timing{SmallDelta: smallDelta, BigDelta: bigDelta},
		Nperiod: nperiod,
	}
	err = s.resolveEchoTime(bigDelta+smallDelta, opts)
	if err != nil {
		s = nil
	}
	return
}

func (s *SinOGSE) omega() float64 {
	return 2 * math.Pi * float64(s.Nperiod) / s.SmallDelta
}

func (s *SinOGSE) String() string {
	return fmt.Sprintf("SinOGSE(delta=%g, Delta=%g, n=%d, TE=%g)",
		s.SmallDelta, s.BigDelta, s.Nperiod, s.TE)
}

func (s *SinOGSE) Call(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		w = s.omega()
		u = t - s.T1
	)
	switch {
	case u >= 0 && u <= d:
		return math.Sin(w * u)
	case u >= D && u <= D+d:
		return -math.Sin(w * (u - D))
	}
	return 0
}

func (s *SinOGSE) Integral(t float64) float64 {
	var (
		d = s.SmallDelta
		D = s.BigDelta
		w = s.omega()
		u = t - s.T1
	)
	switch {
	case u >= 0 && u <= d:
		return (1 - math.Cos(w*u)) / w
	case u >= D && u <= D+d:
		return (math.Cos(w*(u-D)) - 1) / w
	}
	return 0
}

func (s *SinOGSE) IntegralF2() float64 {
	w := s.omega()
	return 3 * s.SmallDelta / (w * w)
}

func (s *SinOGSE) DiffusionTime() float64 {
	return 3 * s.SmallDelta / (8 * float64(s.Nperiod))
}

func (s *SinOGSE) DiffusionTimeSTA() float64 {
	// Cosine short time value scaled by the ratio of the effective
	// diffusion times of the two modulations.
	return 27 * s.SmallDelta / (128 * float64(s.Nperiod))
}

func (s *SinOGSE) J(lambda float64) float64 {
	if lambda < lambdaTaylorCutoff {
		// The two pulses trace opposite signed running integrals, the
		// quadratic Taylor term cancels exactly.
		return taylorJ(lambda, 0, s.IntegralF2())
	}
	var (
		d   = s.SmallDelta
		D   = s.BigDelta
		w   = s.omega()
		l2  = lambda * lambda
		den = l2 + w*w
	)
	pulse := (lambda*d/2 - w*w*math.Expm1(-lambda*d)/den) / den
	sh := math.Sinh(lambda * d / 2)
	cross := 4 * w * w * sh * sh * math.Exp(-lambda*D) / (den * den)
	return (2*pulse + cross) / s.IntegralF2()
}

func (s *SinOGSE) Intervals() (times []float64, labels []string, forms []string) {
	return ogseIntervals(s.timing, FormSin, FormMSin)
}

func ogseIntervals(tm timing, leadForm, tailForm string) (times []float64, labels []string, forms []string) {
	var (
		d  = tm.SmallDelta
		D  = tm.BigDelta
		t1 = tm.T1
	)
	times = []float64{t1}
	appendInterval(&times, &labels, &forms, t1+d, "pulse one", leadForm)
	appendInterval(&times, &labels, &forms, t1+D, "between pulses", FormZero)
	appendInterval(&times, &labels, &forms, t1+D+d, "pulse two", tailForm)
	return padIntervals(tm, times, labels, forms)
}
