package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorMeanAndVariance(t *testing.T) {
	a := NewAccumulator()
	vals := []float64{2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0}
	for _, v := range vals {
		a.Update(v)
	}

	require.Equal(t, 8, a.Count)
	assert.InDelta(t, 5.0, a.Mean(), 1e-12)

	// Bessel-corrected variance of the classic example set.
	assert.InDelta(t, 32.0/7.0, a.Variance(), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), a.StdDev(), 1e-12)
	assert.Equal(t, 2.0, a.Min)
	assert.Equal(t, 9.0, a.Max)
}

func TestAccumulatorIgnoresSentinel(t *testing.T) {
	a := NewAccumulator()
	a.Update(3.0)
	a.Update(Sentinel)
	a.Update(5.0)

	assert.Equal(t, 2, a.Count)
	assert.InDelta(t, 4.0, a.Mean(), 1e-12)
}

func TestAccumulatorSingleValueStdDevUndefined(t *testing.T) {
	a := NewAccumulator()
	a.Update(4.2)

	assert.Equal(t, 1, a.Count)
	assert.Equal(t, Sentinel, a.StdDev())
	assert.Equal(t, 0.0, a.Variance())
}

func TestAccumulatorEmpty(t *testing.T) {
	a := NewAccumulator()
	assert.Equal(t, 0, a.Count)
	assert.Equal(t, 0.0, a.Mean())
	assert.Equal(t, Sentinel, a.StdDev())
}

func TestAccumulatorMergeMatchesSequential(t *testing.T) {
	vals := []float64{1.5, 2.5, Sentinel, 3.5, 4.5, 5.5, 6.5}

	whole := NewAccumulator()
	for _, v := range vals {
		whole.Update(v)
	}

	left, right := NewAccumulator(), NewAccumulator()
	for i, v := range vals {
		if i < 3 {
			left.Update(v)
		} else {
			right.Update(v)
		}
	}
	left.Merge(right)

	assert.Equal(t, whole.Count, left.Count)
	assert.InDelta(t, whole.Mean(), left.Mean(), 1e-12)
	assert.InDelta(t, whole.Variance(), left.Variance(), 1e-12)
	assert.Equal(t, whole.Min, left.Min)
	assert.Equal(t, whole.Max, left.Max)
}

func TestAccumulatorMergeEmpty(t *testing.T) {
	a := NewAccumulator()
	a.Update(2.0)

	a.Merge(NewAccumulator())
	a.Merge(nil)

	assert.Equal(t, 1, a.Count)
	assert.Equal(t, 2.0, a.Min)
}
