package stats

import "fmt"

// Measure pairs a human-readable observable name with its accumulator. The
// name is assigned once at registration and is the identity of the
// observable in every exported record; use the same notation as the paper
// accompanying the simulation.
type Measure struct {
	Name string `json:"name"`
	Acc  Acc    `json:"acc"`
}

// Handle is an opaque token referring to one registered measure. Handles are
// cheap to copy and index into the collection directly, keeping string
// lookups off the hot measurement path.
//
// A handle is only meaningful against the collection descended from the
// registry that issued it.
type Handle struct {
	idx int
}

// Registry is the mutable registration phase of a measure collection. User
// setup code registers every observable of interest up front, then calls
// Freeze exactly once to obtain the Measures collection the driver runs
// with.
type Registry struct {
	measures []Measure
	byName   map[string]Handle
	frozen   bool
}

// NewRegistry returns an empty measure registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Handle)}
}

// Register adds a measure with a fresh empty accumulator and returns its
// handle. Registering the same name twice is a setup bug — two distinct
// observables must never be silently folded into one — so it is reported as
// an error the caller should treat as fatal, as is registering after Freeze.
func (r *Registry) Register(name string) (Handle, error) {
	if r.frozen {
		return Handle{}, fmt.Errorf("registry is frozen, cannot register %q", name)
	}
	if _, ok := r.byName[name]; ok {
		return Handle{}, fmt.Errorf("measure %q is already registered", name)
	}
	h := Handle{idx: len(r.measures)}
	r.measures = append(r.measures, Measure{Name: name})
	r.byName[name] = h
	return h, nil
}

// MustRegister is Register for setup code that prefers to crash on a
// duplicate name rather than thread the error.
func (r *Registry) MustRegister(name string) Handle {
	h, err := r.Register(name)
	if err != nil {
		panic(err)
	}
	return h
}

// Find returns the handle of a previously registered name. It is a
// registry-phase convenience; during the run loop measures are addressed by
// handle only.
func (r *Registry) Find(name string) (Handle, bool) {
	h, ok := r.byName[name]
	return h, ok
}

// Acc returns the accumulator of a registered measure for direct
// manipulation. Aggregating sinks use this to merge incoming statistics into
// their own registry.
func (r *Registry) Acc(h Handle) *Acc {
	return &r.measures[h.idx].Acc
}

// Measures returns a read-only view of the registry contents without
// freezing it.
func (r *Registry) Measures() []Measure {
	return r.measures
}

// Freeze ends the registration phase and returns the frozen collection. The
// registry is consumed: handles issued so far stay valid against the
// returned collection for its whole lifetime, and no measures can be added
// or removed afterwards.
func (r *Registry) Freeze() *Measures {
	r.frozen = true
	return &Measures{measures: r.measures}
}

// Measures is the frozen, fixed-shape collection of observables the driver
// owns during the run loop.
type Measures struct {
	measures []Measure
}

// Accumulate records one measured value for the observable h points at.
func (m *Measures) Accumulate(h Handle, value float64) {
	m.measures[h.idx].Acc.Consume(value)
}

// Acc returns a mutable reference to the accumulator behind h.
func (m *Measures) Acc(h Handle) *Acc {
	return &m.measures[h.idx].Acc
}

// Name returns the name the measure behind h was registered under.
func (m *Measures) Name(h Handle) string {
	return m.measures[h.idx].Name
}

// Len returns the number of registered measures.
func (m *Measures) Len() int {
	return len(m.measures)
}

// Slice exposes the (name, accumulator) pairs for read-only iteration by
// exporters.
func (m *Measures) Slice() []Measure {
	return m.measures
}

// Reset replaces every accumulator with a fresh empty one, forgetting all
// recorded samples. Names and previously issued handles remain valid. The
// driver calls this after each successful export so that exported data
// points are independent rather than cumulative.
func (m *Measures) Reset() {
	for i := range m.measures {
		m.measures[i].Acc = NewAcc()
	}
}
