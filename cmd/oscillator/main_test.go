package main

import (
	"math"
	"math/rand/v2"
	"testing"
)

func (tr *trajectory) action() float64 {
	var s float64
	for i := 0; i < latticeSize; i++ {
		s += tr.lagrangian(i)
	}
	return s
}

func TestLagrangianFlatTrajectory(t *testing.T) {
	tr := &trajectory{}
	for i := range tr.x {
		tr.x[i] = 2.0
	}

	// No kinetic term on a flat trajectory, only the potential.
	want := latticeSpacing * potential(2.0)
	for i := 0; i < latticeSize; i++ {
		if got := tr.lagrangian(i); math.Abs(got-want) > 1e-12 {
			t.Fatalf("lagrangian(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestContactActionLocality(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tr := &trajectory{}
	for i := range tr.x {
		tr.x[i] = rng.NormFloat64()
	}

	// Mutating node i must change the total action by exactly the change in
	// its contact action.
	const i = 7
	before := tr.action()
	contactBefore := tr.contactAction(i)
	tr.x[i] += 0.3
	gotDelta := tr.action() - before
	wantDelta := tr.contactAction(i) - contactBefore
	if math.Abs(gotDelta-wantDelta) > 1e-9 {
		t.Errorf("action delta = %v, contact delta = %v", gotDelta, wantDelta)
	}
}

func TestSweepKeepsActionBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	tr := &trajectory{}
	tr.Prepare(rng)
	tr.Thermalize(rng)

	// After thermalization the walk has settled; further sweeps must not
	// blow the action up.
	reference := tr.action()
	for n := 0; n < 10; n++ {
		tr.Mutate(rng)
		if a := tr.action(); math.IsNaN(a) || a > 100*reference+1000 {
			t.Fatalf("action diverged after mutation %d: %v (reference %v)", n, a, reference)
		}
	}
}

func TestCorrelatorDecay(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	tr := &trajectory{}
	tr.Prepare(rng)
	tr.Thermalize(rng)

	g := make([]float64, latticeSize)
	const samples = 200
	for n := 0; n < samples; n++ {
		tr.Mutate(rng)
		for k := 0; k < latticeSize; k++ {
			for i := 0; i < latticeSize; i++ {
				g[k] += tr.x[i] * tr.x[(i+k)%latticeSize]
			}
		}
	}

	// G(0) is the mean of X^2 and must dominate the mid-lattice correlator,
	// which decays exponentially with the separation.
	if g[0] <= 0 {
		t.Fatalf("G(0) = %v, want > 0", g[0])
	}
	mid := math.Abs(g[latticeSize/2])
	if mid >= g[0]/2 {
		t.Errorf("G(N/2) = %v does not decay relative to G(0) = %v", mid, g[0])
	}
}
