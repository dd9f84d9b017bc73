// Command meanpowers estimates the mean values of the first ten powers of a
// statistical variable x distributed uniformly on [0, 1]. The exact answers
// are E[x^k] = 1/(k+1), which makes the binary a convenient end-to-end check
// of the whole pipeline.
//
// Development run:
//
//	$ meanpowers
//
// Production run exporting to a shared results database every 10 minutes:
//
//	$ meanpowers --production --sink=sqlite --sqlite=/data/results.db \
//	    --flush-interval=10m
package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/latticelab/ergo/internal/sim"
	"github.com/latticelab/ergo/internal/startup"
	"github.com/latticelab/ergo/internal/stats"
)

const numPowers = 10

type powerSample struct {
	x float64
}

func (s *powerSample) Prepare(rng *rand.Rand) {
	s.x = 0
}

// Mutate draws a fresh uniform value. Consecutive samples are fully
// independent, so no thermalization beyond the default is needed.
func (s *powerSample) Mutate(rng *rand.Rand) {
	s.x = rng.Float64()
}

func main() {
	reg := stats.NewRegistry()
	powers := make([]stats.Handle, numPowers)
	for i := range powers {
		powers[i] = reg.MustRegister(fmt.Sprintf("mean x^%d", i))
	}

	startup.Main(startup.App[*powerSample]{
		Name:     "meanpowers",
		Short:    "Estimate mean values of powers of a uniform variable",
		Registry: reg,
		New:      func() *powerSample { return &powerSample{} },
		Measure: func(s *powerSample, ms *stats.Measures) {
			for i, h := range powers {
				ms.Accumulate(h, math.Pow(s.x, float64(i)))
			}
		},
	})
}

var _ sim.Sample = (*powerSample)(nil)
