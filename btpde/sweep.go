package btpde

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/spinsim/btpde/ode"
	"github.com/spinsim/btpde/sequence"
	"github.com/spinsim/btpde/utils"
)

// Experiment is the full sweep description: every combination of
// amplitude, sequence and direction becomes one independent task.
type Experiment struct {
	// Amplitudes are gradient strengths q in rad/(um us), indexed
	// [amplitude][sequence]: prescribing b-values makes q depend on
	// the sequence. The b-value of a combination is q^2 times the
	// sequence IntegralF2.
	Amplitudes [][]float64
	Sequences  []sequence.Sequence
	// Directions are gradient directions, normalized before use.
	Directions [][3]float64

	AbsTol float64
	RelTol float64

	// Integrator is the pluggable stiff solver. nil selects the
	// bundled Crank-Nicolson integrator.
	Integrator ode.Integrator

	// ParallelDegree bounds the worker count; 1 forces strict
	// sequential iteration, 0 uses all CPUs.
	ParallelDegree int

	// Verbose prints one progress line per finished task.
	Verbose bool
}

func (e *Experiment) validate() error {
	if len(e.Amplitudes) == 0 || len(e.Sequences) == 0 || len(e.Directions) == 0 {
		return fmt.Errorf("experiment needs at least one amplitude, sequence and direction, have %d, %d, %d",
			len(e.Amplitudes), len(e.Sequences), len(e.Directions))
	}
	if e.AbsTol <= 0 || e.RelTol <= 0 {
		return fmt.Errorf("tolerances must be positive, have abstol = %g, reltol = %g", e.AbsTol, e.RelTol)
	}
	for ia, row := range e.Amplitudes {
		if len(row) != len(e.Sequences) {
			return fmt.Errorf("amplitude row %d has %d entries for %d sequences", ia, len(row), len(e.Sequences))
		}
	}
	for i, g := range e.Directions {
		if g[0] == 0 && g[1] == 0 && g[2] == 0 {
			return fmt.Errorf("direction %d is the zero vector", i)
		}
	}
	return nil
}

// TaskResult is one slot of the sweep, keyed by its index tuple.
// A failed integration leaves Magnetization nil and records Err; the
// remaining slots stay valid.
type TaskResult struct {
	Amplitude, Sequence, Direction int

	Magnetization     []complex128
	CompartmentSignal []complex128
	Signal            complex128

	Stats   ode.Statistics
	Elapsed time.Duration
	Err     error
}

// ResultBundle collects every task slot plus the total wall time,
// assembly included when measured by the caller.
type ResultBundle struct {
	Namplitude, Nsequence, Ndirection int

	Results []TaskResult
	Elapsed time.Duration
}

// At returns the slot of one (amplitude, sequence, direction) tuple.
func (rb *ResultBundle) At(ia, is, id int) *TaskResult {
	return &rb.Results[(ia*rb.Nsequence+is)*rb.Ndirection+id]
}

// Failed counts the tasks that recorded an integration error.
func (rb *ResultBundle) Failed() (n int) {
	for i := range rb.Results {
		if rb.Results[i].Err != nil {
			n++
		}
	}
	return
}

// Run sweeps the Cartesian product of the experiment axes over the
// shared, read only global operators. Tasks are independent; the
// worker count never changes the per slot results.
func Run(ops *GlobalOperators, e *Experiment) (rb *ResultBundle, err error) {
	if err = e.validate(); err != nil {
		return
	}
	var (
		start = time.Now()
		na    = len(e.Amplitudes)
		ns    = len(e.Sequences)
		nd    = len(e.Directions)
		ig    = e.Integrator
		np    = e.ParallelDegree
	)
	if ig == nil {
		ig = &ode.CrankNicolson{}
	}
	if np <= 0 {
		np = runtime.NumCPU()
	}
	rb = &ResultBundle{
		Namplitude: na,
		Nsequence:  ns,
		Ndirection: nd,
		Results:    make([]TaskResult, na*ns*nd),
	}
	type task struct {
		slot       int
		ia, is, id int
	}
	tasks := make([]task, 0, na*ns*nd)
	for ia := 0; ia < na; ia++ {
		for is := 0; is < ns; is++ {
			for id := 0; id < nd; id++ {
				tasks = append(tasks, task{slot: (ia*ns+is)*nd + id, ia: ia, is: is, id: id})
			}
		}
	}
	work := func(tk task) {
		var (
			t0  = time.Now()
			res = &rb.Results[tk.slot]
		)
		res.Amplitude, res.Sequence, res.Direction = tk.ia, tk.is, tk.id
		d := &driver{
			ops:        ops,
			seq:        e.Sequences[tk.is],
			q:          e.Amplitudes[tk.ia][tk.is],
			direction:  normalize(e.Directions[tk.id]),
			integrator: ig,
			abstol:     e.AbsTol,
			reltol:     e.RelTol,
		}
		mag, stat, serr := d.Solve()
		res.Stats = stat
		if serr != nil {
			res.Err = fmt.Errorf("amplitude %d, sequence %d, direction %d: %w", tk.ia, tk.is, tk.id, serr)
		} else {
			res.Magnetization = mag
			res.CompartmentSignal = compartmentSignals(ops, mag)
			res.Signal = utils.CVecSum(res.CompartmentSignal)
		}
		res.Elapsed = time.Since(t0)
		if e.Verbose {
			if res.Err != nil {
				fmt.Printf("task (%d,%d,%d) FAILED after %v: %v\n", tk.ia, tk.is, tk.id, res.Elapsed, res.Err)
			} else {
				fmt.Printf("task (%d,%d,%d) signal = %v, %d steps, %v\n",
					tk.ia, tk.is, tk.id, res.Signal, stat.Steps, res.Elapsed)
			}
		}
	}
	if np == 1 {
		for _, tk := range tasks {
			work(tk)
		}
	} else {
		var (
			wg = sync.WaitGroup{}
			ch = make(chan task)
		)
		for w := 0; w < np; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for tk := range ch {
					work(tk)
				}
			}()
		}
		for _, tk := range tasks {
			ch <- tk
		}
		close(ch)
		wg.Wait()
	}
	rb.Elapsed = time.Since(start)
	return
}

// compartmentSignals splits the magnetization by compartment ranges
// and integrates each piece against its mass block.
func compartmentSignals(ops *GlobalOperators, mag []complex128) (s []complex128) {
	s = make([]complex128, len(ops.CompartmentMass))
	for c := range ops.CompartmentMass {
		lo, hi := ops.CompartmentRange(c)
		s[c] = utils.CVecSum(ops.CompartmentMass[c].MulCVec(mag[lo:hi]))
	}
	return
}

func normalize(g [3]float64) [3]float64 {
	n := math.Sqrt(g[0]*g[0] + g[1]*g[1] + g[2]*g[2])
	return [3]float64{g[0] / n, g[1] / n, g[2] / n}
}
