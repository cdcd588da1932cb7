package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparse(t *testing.T) {
	// Accumulate sums repeated entries, the assembly primitive.
	{
		dok := NewDOK(3, 3)
		dok.Accumulate(0, 0, 1)
		dok.Accumulate(0, 0, 2)
		dok.Set(1, 2, 5)
		M := dok.ToCSR()
		assert.Equal(t, 3., M.At(0, 0))
		assert.Equal(t, 5., M.At(1, 2))
		assert.Equal(t, 0., M.At(2, 2))
	}
	// MulVec against the dense expansion
	{
		dok := NewDOK(2, 3)
		dok.Set(0, 0, 1)
		dok.Set(0, 2, 2)
		dok.Set(1, 1, 3)
		var (
			M = dok.ToCSR()
			v = []float64{1, 2, 3}
		)
		assert.Equal(t, []float64{7, 6}, M.MulVec(v))
		assert.Equal(t, M.Dense().MulVec(v), M.MulVec(v))
		assert.Panics(t, func() { M.MulVec([]float64{1, 2}) })
	}
	// MulCVec applies the real matrix to both parts independently.
	{
		dok := NewDOK(2, 2)
		dok.Set(0, 0, 2)
		dok.Set(1, 0, 1)
		dok.Set(1, 1, -1)
		M := dok.ToCSR()
		R := M.MulCVec([]complex128{complex(1, 2), complex(3, -1)})
		assert.Equal(t, complex(2, 4), R[0])
		assert.Equal(t, complex(-2, 3), R[1])
	}
	// Scale leaves the receiver untouched.
	{
		dok := NewDOK(2, 2)
		dok.Set(0, 1, 4)
		var (
			M = dok.ToCSR()
			S = M.Scale(0.5)
		)
		assert.Equal(t, 2., S.At(0, 1))
		assert.Equal(t, 4., M.At(0, 1))
	}
	// SumCSR
	{
		a := NewDOK(2, 2)
		a.Set(0, 0, 1)
		b := NewDOK(2, 2)
		b.Set(0, 0, 2)
		b.Set(1, 1, 3)
		S := SumCSR(a.ToCSR(), b.ToCSR())
		assert.Equal(t, 3., S.At(0, 0))
		assert.Equal(t, 3., S.At(1, 1))
		c := NewDOK(3, 3)
		assert.Panics(t, func() { SumCSR(a.ToCSR(), c.ToCSR()) })
	}
	// Read only marking survives conversion; a read only DOK rejects
	// further assembly.
	{
		dok := NewDOK(2, 2)
		dok.Set(0, 0, 1)
		M := dok.ToCSR().SetReadOnly("M")
		assert.Equal(t, 1., M.At(0, 0))
		dok.readOnly = true
		assert.Panics(t, func() { dok.Set(0, 0, 2) })
	}
}

func TestComplexVectors(t *testing.T) {
	{
		v := NewCVectorConstant(3, complex(1, -1))
		assert.Equal(t, complex(3, -3), CVecSum(v))
		w := CVecCopy(v)
		w[0] = 0
		assert.Equal(t, complex(1, -1), v[0])
	}
	{
		v := []complex128{complex(3, 4), complex(0, 1)}
		assert.Equal(t, 5., CVecMaxAbs(v))
	}
	// WRMS norm with pure absolute weights reduces to the RMS of the
	// magnitudes over atol.
	{
		d := []complex128{complex(1.e-6, 0), complex(0, 1.e-6)}
		y := []complex128{0, 0}
		assert.InDelta(t, 1., CVecWRMS(d, y, 1.e-6, 1.e-3), 1.e-12)
	}
	{
		re, im := CVecSplit([]complex128{complex(1, 2), complex(3, 4)})
		assert.Equal(t, []float64{1, 3}, re)
		assert.Equal(t, []float64{2, 4}, im)
		assert.Equal(t, []complex128{complex(1, 2), complex(3, 4)}, CVecMerge(re, im))
	}
	{
		v := NewCVector(4)
		assert.Equal(t, 4, len(v))
		assert.Equal(t, complex(0, 0), CVecSum(v))
	}
}
