package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	// Mul
	{
		A := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		B := NewMatrix(3, 2, []float64{
			1, 0,
			0, 1,
			1, 1,
		})
		C := A.Mul(B)
		assert.Equal(t, NewMatrix(2, 2, []float64{
			4, 5,
			10, 11,
		}), C)
	}
	// MulVec
	{
		A := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, []float64{14, 32}, A.MulVec([]float64{1, 2, 3}))
		assert.Panics(t, func() { A.MulVec([]float64{1, 2}) })
	}
	// Copy does not alias
	{
		A := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		B := A.Copy()
		B.Set(0, 0, 99)
		assert.Equal(t, 1., A.At(0, 0))
	}
	// ReadOnly protection
	{
		A := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		A = A.SetReadOnly("A")
		assert.Panics(t, func() { A.Set(0, 0, 5) })
		assert.Panics(t, func() { A.Scale(2) })
	}
	// Allocation mismatch
	{
		assert.Panics(t, func() { NewMatrix(2, 2, []float64{1, 2, 3}) })
	}
}

func TestLU(t *testing.T) {
	{
		A := NewMatrix(2, 2, []float64{
			4, 3,
			6, 3,
		})
		lu, err := NewLU(A)
		assert.NoError(t, err)
		x, err := lu.Solve([]float64{10, 12})
		assert.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 2}, x, 1.e-12)
		// Repeated solves reuse the factorization.
		x, err = lu.Solve([]float64{4, 6})
		assert.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 0}, x, 1.e-12)
	}
	// Shape errors
	{
		_, err := NewLU(NewMatrix(2, 3))
		assert.Error(t, err)
		lu, err := NewLU(NewMatrix(2, 2, []float64{1, 0, 0, 1}))
		assert.NoError(t, err)
		_, err = lu.Solve([]float64{1})
		assert.Error(t, err)
	}
}

func TestVector(t *testing.T) {
	{
		v := NewVector(4, []float64{3, -1, 2, 0})
		assert.Equal(t, 4, v.Len())
		assert.Equal(t, 4., v.Sum())
		assert.Equal(t, -1., v.Min())
		assert.Equal(t, 3., v.Max())
	}
	{
		v := NewVectorConstant(3, 2).Scale(0.5)
		assert.Equal(t, []float64{1, 1, 1}, v.Data())
	}
}
