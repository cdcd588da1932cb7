package btpde

import (
	"math"

	"github.com/spinsim/btpde/sequence"
)

// UniformAmplitudes builds an amplitude grid that applies the same q-value to
// every sequence, for experiments specified directly in q rather than b.
func UniformAmplitudes(qs []float64, nseq int) (amps [][]float64) {
	amps = make([][]float64, len(qs))
	for i, q := range qs {
		row := make([]float64, nseq)
		for j := range row {
			row[j] = q
		}
		amps[i] = row
	}
	return
}

// AmplitudesFromBvalues converts b-values to per-sequence q-values using
// b = q^2 * IntegralF2, so each sequence achieves the same diffusion weighting.
func AmplitudesFromBvalues(bs []float64, seqs []sequence.Sequence) (amps [][]float64) {
	amps = make([][]float64, len(bs))
	for i, b := range bs {
		row := make([]float64, len(seqs))
		for j, s := range seqs {
			row[j] = math.Sqrt(b / s.IntegralF2())
		}
		amps[i] = row
	}
	return
}
