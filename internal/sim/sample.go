// Package sim contains the simulation driver: an unbounded
// mutate-measure-export loop over a user-supplied configuration sample, with
// randomized export cadence and a bounded-retry failure policy.
package sim

import (
	"math/rand/v2"

	"github.com/latticelab/ergo/internal/stats"
)

// Sample is one configuration in the ergodic ensemble. Concrete simulations
// implement it; the driver only ever calls it.
//
// Mutate must apply one ergodic transition (a Metropolis sweep, a heat-bath
// update) that statistically preserves the target distribution. The driver
// has no way to verify this: every downstream statistic is only as correct
// as the implementation is unbiased.
//
// All randomness flows through the rng the driver passes in, so a run is
// reproducible given a fixed seed.
type Sample interface {
	// Prepare initializes the degrees of freedom. The initial
	// configuration may be arbitrarily atypical; thermalization deals
	// with that.
	Prepare(rng *rand.Rand)

	// Mutate makes one randomized step in configuration space.
	Mutate(rng *rand.Rand)
}

// Thermalizer is optionally implemented by samples that need a specific
// amount of equilibration. Samples that do not implement it get
// DefaultThermalizationSteps mutations before the first measurement.
type Thermalizer interface {
	Thermalize(rng *rand.Rand)
}

// DefaultThermalizationSteps is the number of mutations applied to remove
// initialization bias when the sample does not provide its own Thermalize.
const DefaultThermalizationSteps = 20

// MeasureFunc computes the values of the registered observables for the
// current sample and records them via ms.Accumulate. It is called once per
// mutation.
type MeasureFunc[S Sample] func(s S, ms *stats.Measures)

func thermalize(s Sample, rng *rand.Rand) {
	if th, ok := s.(Thermalizer); ok {
		th.Thermalize(rng)
		return
	}
	for i := 0; i < DefaultThermalizationSteps; i++ {
		s.Mutate(rng)
	}
}
