package btpde

import (
	"fmt"

	"github.com/spinsim/btpde/ode"
	"github.com/spinsim/btpde/sequence"
	"github.com/spinsim/btpde/utils"
)

// driver advances the magnetization of one (amplitude, sequence,
// direction) combination across the waveform defined time intervals.
// The generator of the Bloch-Torrey system is
//
//	M dm/dt = -(K + Q + R) m - i q f(t) J(g) m
//
// with the real part shared by all tasks and the imaginary part scaled
// by the instantaneous profile value.
type driver struct {
	ops        *GlobalOperators
	seq        sequence.Sequence
	q          float64
	direction  [3]float64
	integrator ode.Integrator
	abstol     float64
	reltol     float64
}

// Solve runs all intervals in increasing time order, each one starting
// from the terminal state of the previous, and returns the final
// magnetization only.
func (d *driver) Solve() (mag []complex128, stat ode.Statistics, err error) {
	var (
		ops                  = d.ops
		jdir                 = ops.DirectionMoment(d.direction)
		negEvolution         = ops.Evolution.Scale(-1)
		times, labels, forms = d.seq.Intervals()
	)
	if len(times) < 2 {
		err = fmt.Errorf("sequence %v yields no intervals", d.seq)
		return
	}
	// makeRHS binds the interval's profile so that boundary times,
	// where Call belongs to the neighboring interval, stay consistent
	// with the interval's own form.
	makeRHS := func(profile func(t float64) float64) ode.RHS {
		return func(t float64, y, dy []complex128) {
			var (
				ay = ops.Evolution.MulCVec(y)
				jy = jdir.MulCVec(y)
				c  = d.q * profile(t)
			)
			for i := range dy {
				dy[i] = -ay[i] - complex(0, c)*jy[i]
			}
		}
	}
	mag = utils.CVecCopy(ops.InitialMagnetization)
	for iv := 0; iv < len(labels); iv++ {
		var (
			t0  = times[iv]
			t1  = times[iv+1]
			mid = (t0 + t1) / 2
			cfg = ode.Config{
				Mass:   ops.Mass,
				AbsTol: d.abstol,
				RelTol: d.reltol,
			}
		)
		var rhs ode.RHS
		if val, constant := sequence.FormConstant(forms[iv]); constant {
			S := ode.SystemMatrix{Re: negEvolution}
			if c := d.q * val; c != 0 {
				S.Im = jdir.Scale(-c)
			}
			cfg.Jacobian = ode.Jacobian{Const: &S}
			rhs = makeRHS(func(float64) float64 { return val })
		} else {
			cfg.Jacobian = ode.Jacobian{Func: func(t float64) ode.SystemMatrix {
				return ode.SystemMatrix{
					Re: negEvolution,
					Im: jdir.Scale(-d.q * d.seq.Call(t)),
				}
			}}
			rhs = makeRHS(d.seq.Call)
		}
		// Three output times per interval keep the integrator from
		// retaining its accepted internal steps.
		tr, st, ierr := d.integrator.Integrate(rhs, [3]float64{t0, mid, t1}, mag, &cfg)
		stat.Steps += st.Steps
		stat.Rejected += st.Rejected
		stat.Evaluations += st.Evaluations
		stat.Factorizations += st.Factorizations
		if ierr != nil {
			err = fmt.Errorf("interval %q [%g, %g]: %w", labels[iv], t0, t1, ierr)
			mag = nil
			return
		}
		mag = tr.Final()
	}
	return
}
