package stats

import "math"

// Sentinel marks a missing or invalid value throughout the pipeline.
// The recordings never produce negative pupil diameters or luminance,
// so -1 cannot collide with a real measurement.
const Sentinel = -1.0

// Accumulator is a running reduction over a stream of measurements.
// It tracks sum, sum of squares, count, min and max, which is enough
// to answer mean, Bessel-corrected variance and stddev queries without
// retaining the samples themselves.
type Accumulator struct {
	Sum   float64
	SumSq float64
	Count int
	Min   float64
	Max   float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Min: math.MaxFloat64,
		Max: -math.MaxFloat64,
	}
}

// Update folds one value into the accumulator. The -1 sentinel is ignored.
func (a *Accumulator) Update(v float64) {
	if v == Sentinel {
		return
	}
	a.Sum += v
	a.SumSq += v * v
	a.Count++
	if v < a.Min {
		a.Min = v
	}
	if v > a.Max {
		a.Max = v
	}
}

// Merge folds another accumulator into this one. Update and Merge commute,
// so partial accumulators built concurrently can be combined at the end.
func (a *Accumulator) Merge(b *Accumulator) {
	if b == nil || b.Count == 0 {
		return
	}
	a.Sum += b.Sum
	a.SumSq += b.SumSq
	a.Count += b.Count
	if b.Min < a.Min {
		a.Min = b.Min
	}
	if b.Max > a.Max {
		a.Max = b.Max
	}
}

// Mean returns sum/count, or 0 when empty.
func (a *Accumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// Variance returns the Bessel-corrected sample variance, or 0 when count < 2.
func (a *Accumulator) Variance() float64 {
	if a.Count < 2 {
		return 0
	}
	n := float64(a.Count)
	return (a.SumSq - a.Sum*a.Sum/n) / (n - 1)
}

// StdDev returns the sample standard deviation, or the -1 sentinel when
// it is undefined (count < 2).
func (a *Accumulator) StdDev() float64 {
	if a.Count < 2 {
		return Sentinel
	}
	v := a.Variance()
	if v < 0 {
		// Guard against tiny negative values from float cancellation.
		return 0
	}
	return math.Sqrt(v)
}
