package sequence

import (
	"fmt"
	"math"
	"sort"
)

// Custom wraps a user supplied analytic profile. The caller provides
// the profile, its exact running integral, the natural support and the
// internal breakpoints where the analytic form changes. The moment
// quantities fall back to composite Simpson quadrature when closed
// forms are not supplied.
type Custom struct {
	timing
	profile   func(t float64) float64
	primitive func(t float64) float64
	breaks    []float64
	support   float64
	intF2     float64
	intF1     float64
}

// CustomSpec collects the inputs for a Custom sequence.
type CustomSpec struct {
	// Profile is the unit amplitude gradient profile on [0, Support].
	Profile func(t float64) float64
	// Primitive is the exact integral of Profile from 0.
	Primitive func(t float64) float64
	// Support is the natural duration of the profile.
	Support float64
	// Breakpoints lists the interior times where the analytic form of
	// Profile changes. May be empty.
	Breakpoints []float64
	// IntegralF2 optionally supplies the closed form integral of the
	// squared primitive. Zero means compute it by quadrature.
	IntegralF2 float64
}

const customQuadPoints = 512

func NewCustom(spec CustomSpec, opts ...EchoTimeOption) (s *Custom, err error) {
	if spec.Profile == nil || spec.Primitive == nil {
		err = fmt.Errorf("custom sequence requires both a profile and its primitive")
		return
	}
	if spec.Support <= 0 {
		err = fmt.Errorf("custom sequence support must be positive, have %g", spec.Support)
		return
	}
	for _, b := range spec.Breakpoints {
		if b <= 0 || b >= spec.Support {
			err = fmt.Errorf("breakpoint %g outside the open support (0, %g)", b, spec.Support)
			return
		}
	}
	s = &Custom{
		profile:   spec.Profile,
		primitive: spec.Primitive,
		support:   spec.Support,
		breaks:    append([]float64(nil), spec.Breakpoints...),
	}
	sort.Float64s(s.breaks)
	if err = s.resolveEchoTime(spec.Support, opts); err != nil {
		s = nil
		return
	}
	s.intF2 = spec.IntegralF2
	if s.intF2 == 0 {
		s.intF2 = simpson(func(t float64) float64 {
			v := spec.Primitive(t)
			return v * v
		}, 0, spec.Support, customQuadPoints)
	}
	s.intF1 = simpson(spec.Primitive, 0, spec.Support, customQuadPoints)
	return
}

func (s *Custom) String() string {
	return fmt.Sprintf("Custom(support=%g, TE=%g)", s.support, s.TE)
}

func (s *Custom) Call(t float64) float64 {
	u := t - s.T1
	if u < 0 || u > s.support {
		return 0
	}
	return s.profile(u)
}

func (s *Custom) Integral(t float64) float64 {
	u := t - s.T1
	switch {
	case u < 0:
		return 0
	case u > s.support:
		return s.primitive(s.support)
	}
	return s.primitive(u)
}

func (s *Custom) IntegralF2() float64 { return s.intF2 }

func (s *Custom) DiffusionTime() float64 {
	var fmax float64
	n := customQuadPoints
	for i := 0; i <= n; i++ {
		v := math.Abs(s.primitive(s.support * float64(i) / float64(n)))
		if v > fmax {
			fmax = v
		}
	}
	if fmax == 0 {
		return 0
	}
	return s.intF2 / (fmax * fmax)
}

func (s *Custom) DiffusionTimeSTA() float64 {
	// No general closed form exists for an arbitrary profile, reuse the
	// b-value normalized time.
	return s.DiffusionTime()
}

// J evaluates the correlation transform through the identity
//
//	G(lambda) = lambda*intF2 - lambda^2/2 * Int Int F(t) F(s) e^{-lambda|t-s|}
//
// which trades the discontinuous profile for its continuous primitive
// before quadrature.
func (s *Custom) J(lambda float64) float64 {
	if lambda < lambdaTaylorCutoff {
		return taylorJ(lambda, s.intF1, s.intF2)
	}
	var (
		n = customQuadPoints
		h = s.support / float64(n)
	)
	inner := func(t float64) float64 {
		return simpson(func(u float64) float64 {
			return s.primitive(u) * math.Exp(-lambda*math.Abs(t-u))
		}, 0, s.support, n)
	}
	var double float64
	// Composite Simpson over the outer variable.
	for i := 0; i <= n; i++ {
		t := float64(i) * h
		w := simpsonWeight(i, n)
		double += w * s.primitive(t) * inner(t)
	}
	double *= h / 3
	return (lambda*s.intF2 - lambda*lambda/2*double) / s.intF2
}

func (s *Custom) Intervals() (times []float64, labels []string, forms []string) {
	times = []float64{s.T1}
	for i, b := range s.breaks {
		appendInterval(&times, &labels, &forms, s.T1+b, fmt.Sprintf("segment %d", i+1), FormCustom)
	}
	appendInterval(&times, &labels, &forms, s.T1+s.support, fmt.Sprintf("segment %d", len(s.breaks)+1), FormCustom)
	return padIntervals(s.timing, times, labels, forms)
}

func simpson(f func(float64) float64, a, b float64, n int) (s float64) {
	if n%2 != 0 {
		n++
	}
	h := (b - a) / float64(n)
	for i := 0; i <= n; i++ {
		s += simpsonWeight(i, n) * f(a+float64(i)*h)
	}
	s *= h / 3
	return
}

func simpsonWeight(i, n int) float64 {
	switch {
	case i == 0 || i == n:
		return 1
	case i%2 == 1:
		return 4
	}
	return 2
}
