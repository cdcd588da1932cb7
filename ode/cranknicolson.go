package ode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/spinsim/btpde/utils"
)

// CrankNicolson is an adaptive implicit trapezoidal integrator for
// complex linear mass matrix systems. Each step solves
//
//	(M - h/2 S(t+h)) y1 = M y0 + h/2 f(t, y0)
//
// through a real 2N x 2N block embedding of the complex operator, and
// the step size is controlled by step doubling. With a constant system
// matrix the factorization is reused across steps of equal size.
type CrankNicolson struct {
	// InitialStepFraction divides the integration window into the
	// first trial step. Zero means 1/8.
	InitialStepFraction float64
	// MaxSteps bounds the accepted steps per window. Zero means 100000.
	MaxSteps int
}

func (cn *CrankNicolson) Info() IntegratorInfo {
	return IntegratorInfo{Name: "crank-nicolson", Order: 2}
}

type nonZeroDoer interface {
	DoNonZero(fn func(i, j int, v float64))
}

type cvecMuler interface {
	MulCVec(v []complex128) []complex128
}

func (cn *CrankNicolson) Integrate(f RHS, times [3]float64, y0 []complex128, cfg *Config) (tr Trajectory, stat Statistics, err error) {
	if err = cfg.validate(); err != nil {
		return
	}
	if !(times[0] < times[1] && times[1] < times[2]) {
		err = fmt.Errorf("output times must be strictly increasing, have %v", times)
		return
	}
	tr.Times = times
	tr.States[0] = utils.CVecCopy(y0)
	w := &cnWorker{
		cn:   cn,
		f:    f,
		cfg:  cfg,
		n:    len(y0),
		lus:  make(map[float64]*utils.LU),
		stat: &stat,
	}
	y := utils.CVecCopy(y0)
	for leg := 0; leg < 2; leg++ {
		if y, err = w.advance(times[leg], times[leg+1], y); err != nil {
			return
		}
		tr.States[leg+1] = utils.CVecCopy(y)
	}
	return
}

type cnWorker struct {
	cn   *CrankNicolson
	f    RHS
	cfg  *Config
	n    int
	lus  map[float64]*utils.LU
	stat *Statistics
}

func (w *cnWorker) advance(t0, t1 float64, y []complex128) ([]complex128, error) {
	var (
		window   = t1 - t0
		frac     = w.cn.InitialStepFraction
		maxSteps = w.cn.MaxSteps
	)
	if frac <= 0 {
		frac = 1.0 / 8
	}
	if maxSteps <= 0 {
		maxSteps = 100000
	}
	var (
		t    = t0
		h    = window * frac
		hmin = window * 1e-12
	)
	for t < t1 {
		if t1-t <= hmin {
			break
		}
		if w.stat.Steps+w.stat.Rejected > maxSteps {
			return nil, fmt.Errorf("step limit %d exceeded at t = %g", maxSteps, t)
		}
		if t+h > t1 {
			h = t1 - t
		}
		full, err := w.step(y, t, h)
		if err != nil {
			return nil, err
		}
		mid, err := w.step(y, t, h/2)
		if err != nil {
			return nil, err
		}
		half, err := w.step(mid, t+h/2, h/2)
		if err != nil {
			return nil, err
		}
		diff := make([]complex128, w.n)
		for i := range diff {
			diff[i] = full[i] - half[i]
		}
		errNorm := utils.CVecWRMS(diff, half, w.cfg.AbsTol, w.cfg.RelTol)
		if errNorm <= 1 {
			y = half
			t += h
			w.stat.Steps++
			h *= clamp(0.9*math.Pow(math.Max(errNorm, 1e-10), -1.0/3), 0.2, 5)
		} else {
			w.stat.Rejected++
			h *= clamp(0.9*math.Pow(errNorm, -1.0/3), 0.1, 0.5)
		}
		if h < hmin {
			return nil, fmt.Errorf("step size underflow at t = %g: required step %g below %g", t, h, hmin)
		}
	}
	return y, nil
}

// step performs one trapezoidal step of size h from t.
func (w *cnWorker) step(y []complex128, t, h float64) ([]complex128, error) {
	var (
		n   = w.n
		fy  = make([]complex128, n)
		rhs = make([]complex128, n)
	)
	w.f(t, y, fy)
	w.stat.Evaluations++
	my := w.massMul(y)
	for i := 0; i < n; i++ {
		rhs[i] = my[i] + complex(h/2, 0)*fy[i]
	}
	lu, err := w.factor(t+h, h)
	if err != nil {
		return nil, err
	}
	re, im := utils.CVecSplit(rhs)
	b := make([]float64, 2*n)
	copy(b[:n], re)
	copy(b[n:], im)
	x, err := lu.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("implicit solve failed at t = %g, h = %g: %w", t, h, err)
	}
	return utils.CVecMerge(x[:n], x[n:]), nil
}

// factor builds and factorizes the block matrix for step size h with
// the system matrix evaluated at te. Constant systems cache by step
// size.
func (w *cnWorker) factor(te, h float64) (*utils.LU, error) {
	if w.cfg.Jacobian.constant() {
		if lu, ok := w.lus[h]; ok {
			return lu, nil
		}
	}
	var (
		n = w.n
		S = w.cfg.Jacobian.at(te)
		B = utils.NewMatrix(2*n, 2*n)
	)
	if w.cfg.Mass != nil {
		addBlock(B, w.cfg.Mass, 1, 0, 0)
		addBlock(B, w.cfg.Mass, 1, n, n)
	} else {
		for i := 0; i < n; i++ {
			B.AddAt(i, i, 1)
			B.AddAt(n+i, n+i, 1)
		}
	}
	th := h / 2
	if S.Re != nil {
		addBlock(B, S.Re, -th, 0, 0)
		addBlock(B, S.Re, -th, n, n)
	}
	if S.Im != nil {
		addBlock(B, S.Im, th, 0, n)
		addBlock(B, S.Im, -th, n, 0)
	}
	lu, err := utils.NewLU(B)
	if err != nil {
		return nil, err
	}
	w.stat.Factorizations++
	if w.cfg.Jacobian.constant() {
		w.lus[h] = lu
	}
	return lu, nil
}

func (w *cnWorker) massMul(y []complex128) []complex128 {
	if w.cfg.Mass == nil {
		return utils.CVecCopy(y)
	}
	if m, ok := w.cfg.Mass.(cvecMuler); ok {
		return m.MulCVec(y)
	}
	var (
		nr, nc = w.cfg.Mass.Dims()
		out    = make([]complex128, nr)
	)
	for i := 0; i < nr; i++ {
		var sum complex128
		for j := 0; j < nc; j++ {
			if v := w.cfg.Mass.At(i, j); v != 0 {
				sum += complex(v, 0) * y[j]
			}
		}
		out[i] = sum
	}
	return out
}

// addBlock accumulates scale*A into dst at the given offset, walking
// only nonzeros when A supports it.
func addBlock(dst utils.Matrix, A mat.Matrix, scale float64, rowOff, colOff int) {
	if nz, ok := A.(nonZeroDoer); ok {
		nz.DoNonZero(func(i, j int, v float64) {
			dst.AddAt(rowOff+i, colOff+j, scale*v)
		})
		return
	}
	nr, nc := A.Dims()
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := A.At(i, j); v != 0 {
				dst.AddAt(rowOff+i, colOff+j, scale*v)
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
