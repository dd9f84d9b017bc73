// Command oscillator runs a Euclidean lattice simulation of the quantum
// harmonic oscillator and measures the two-point correlators
//
//	G(k) = (1/N) Σ_i <X_i X_{i+k}>
//
// on a periodic time lattice of N nodes. Node values are updated with
// Metropolis sweeps against the discretized Euclidean action.
package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/latticelab/ergo/internal/sim"
	"github.com/latticelab/ergo/internal/startup"
	"github.com/latticelab/ergo/internal/stats"
)

const (
	latticeSize    = 30  // nodes on the periodic time lattice
	latticeSpacing = 0.5 // Euclidean time step
	mass           = 1.0
	springTension  = 1.0

	// Proposal width for Metropolis updates.
	epsilon = 15.0

	thermalizationSweeps = 500
	sweepsPerMutation    = 20
)

func potential(x float64) float64 {
	return springTension * x * x / 2
}

// trajectory holds the oscillator path X(t) on the periodic lattice.
type trajectory struct {
	x [latticeSize]float64
}

// lagrangian evaluates the Euclidean Lagrangian of the i-th link, the one
// between nodes i and i+1. Euclidean signature, thus the potential is added.
func (tr *trajectory) lagrangian(i int) float64 {
	j := (i + 1) % latticeSize
	kinetic := mass * (tr.x[j] - tr.x[i]) * (tr.x[j] - tr.x[i]) / (2 * latticeSpacing)
	return kinetic + latticeSpacing*potential((tr.x[i]+tr.x[j])/2)
}

// contactAction is the part of the action affected by mutating node i.
func (tr *trajectory) contactAction(i int) float64 {
	return tr.lagrangian(i) + tr.lagrangian((i+latticeSize-1)%latticeSize)
}

// sweep performs n full Metropolis sweeps over the lattice. Each node gets a
// uniform proposal in [-epsilon, epsilon]; increases of the action are
// accepted with probability exp(-dS).
func (tr *trajectory) sweep(rng *rand.Rand, n int) {
	for ; n > 0; n-- {
		for i := 0; i < latticeSize; i++ {
			oldX := tr.x[i]
			oldS := tr.contactAction(i)
			tr.x[i] = epsilon * (2*rng.Float64() - 1)
			if dS := tr.contactAction(i) - oldS; dS > 0 {
				if math.Exp(-dS) <= rng.Float64() {
					tr.x[i] = oldX
				}
			}
		}
	}
}

func (tr *trajectory) Prepare(rng *rand.Rand) {
	tr.x = [latticeSize]float64{}
}

func (tr *trajectory) Thermalize(rng *rand.Rand) {
	tr.sweep(rng, thermalizationSweeps)
}

func (tr *trajectory) Mutate(rng *rand.Rand) {
	tr.sweep(rng, sweepsPerMutation)
}

func main() {
	reg := stats.NewRegistry()
	correlators := make([]stats.Handle, latticeSize)
	for k := range correlators {
		correlators[k] = reg.MustRegister(fmt.Sprintf("G(%d)", k))
	}

	startup.Main(startup.App[*trajectory]{
		Name:     "oscillator",
		Short:    "Lattice simulation of the quantum harmonic oscillator",
		Registry: reg,
		New:      func() *trajectory { return &trajectory{} },
		Measure: func(tr *trajectory, ms *stats.Measures) {
			for k, h := range correlators {
				var g float64
				for i := 0; i < latticeSize; i++ {
					g += tr.x[i] * tr.x[(i+k)%latticeSize]
				}
				ms.Accumulate(h, g/latticeSize)
			}
		},
	})
}

var (
	_ sim.Sample      = (*trajectory)(nil)
	_ sim.Thermalizer = (*trajectory)(nil)
)
