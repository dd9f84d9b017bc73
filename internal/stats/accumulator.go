// Package stats provides online accumulation of expectation values and
// statistical uncertainties for observables measured on samples drawn from an
// ergodic ensemble.
package stats

import "math"

// Acc accumulates the running mean and second moment of a stream of scalar
// samples. It corresponds to one statistical observable (in a lattice field
// theory simulation: a Schwinger function, a Wilson loop, a correlator).
//
// The implementation is a single-pass online update chosen for numerical
// stability over speed: no individual samples are stored, and arbitrarily
// long runs do not suffer the catastrophic round-off of a naive
// sum/sum-of-squares approach. Updating accumulators is assumed to be off
// the critical path of the simulation.
type Acc struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Mean2 float64 `json:"mean2"`
}

// NewAcc returns an empty accumulator: the mean is 0 and the uncertainty is
// undefined (NaN) until a sample is consumed.
func NewAcc() Acc {
	return Acc{}
}

// Restore rebuilds an accumulator from previously exported sufficient
// statistics. It is the inverse of persisting (count, mean, mean2) and is
// used when merging exported data points downstream.
func Restore(count, mean, mean2 float64) Acc {
	return Acc{Count: count, Mean: mean, Mean2: mean2}
}

// Consume records one sample value.
//
// NaN values are dropped silently: a transient undefined physics evaluation
// must neither kill a long-running simulation nor corrupt the statistic.
func (a *Acc) Consume(value float64) {
	if math.IsNaN(value) {
		return
	}
	a.Count++
	a.Mean += (value - a.Mean) / a.Count
	a.Mean2 += (value*value - a.Mean2) / a.Count
}

// Value returns the mean of the consumed samples, the best estimate of the
// expectation value of the observable.
func (a *Acc) Value() float64 {
	return a.Mean
}

// Uncertainty returns the statistical error of the mean: the sample standard
// deviation divided by the square root of the number of samples.
//
// For an empty accumulator the result is NaN. With very few nearly identical
// samples, floating round-off can make the variance estimate negative; the
// square root is taken unconditionally and the resulting NaN is propagated
// rather than clamped, so callers can tell "no reliable estimate yet" apart
// from a genuine zero.
func (a *Acc) Uncertainty() float64 {
	return math.Sqrt((a.Mean2 - a.Mean*a.Mean) / a.Count)
}

// NumOfSamples returns the number of recorded samples. The count is a float64
// because merged accumulators may in general carry fractional weights;
// ordinary Consume calls always increment it by exactly 1.
func (a *Acc) NumOfSamples() float64 {
	return a.Count
}

// Merge folds other into a, as if every sample ever consumed by other had
// been consumed by a instead. The recombination weights each moment by the
// relative counts, which makes Merge commutative and associative up to
// floating error. That property is what allows independently run simulation
// instances to be aggregated in any order downstream.
//
// The other accumulator is taken by value; the caller's copy is dead after
// the merge in the same way the original sample stream is.
func (a *Acc) Merge(other Acc) {
	total := a.Count + other.Count
	if total == 0 {
		return
	}
	a.Mean = a.Mean*(a.Count/total) + other.Mean*(other.Count/total)
	a.Mean2 = a.Mean2*(a.Count/total) + other.Mean2*(other.Count/total)
	a.Count = total
}
