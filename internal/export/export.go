// Package export defines the data-sink contract of the simulation engine and
// provides the sink implementations: console pretty-printer, JSONL file,
// SQLite results database, HTTP collector, in-memory test double, and a
// fan-out combinator.
package export

import (
	"context"
	"errors"
	"time"

	"github.com/latticelab/ergo/internal/stats"
)

// Measurement is the persisted record of one observable at flush time:
// the sufficient statistics (count, mean, mean2) from which the expectation
// value and its uncertainty can be reconstructed or merged downstream.
type Measurement struct {
	Name  string  `json:"name"`
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Mean2 float64 `json:"mean2"`
}

// Acc rebuilds the accumulator behind the record.
func (m Measurement) Acc() stats.Acc {
	return stats.Restore(m.Count, m.Mean, m.Mean2)
}

// Snapshot is one exported data point: the state of every registered measure
// at one flush, stamped with the simulation name and the identity of the
// process that produced it. Snapshots from different instances writing to a
// shared sink are merged out of band; nothing in this process coordinates
// with other instances.
type Snapshot struct {
	Simulation   string        `json:"simulation"`
	Instance     string        `json:"instance"`
	RecordedAt   time.Time     `json:"recorded_at"`
	Uptime       time.Duration `json:"uptime_ns"`
	Measurements []Measurement `json:"measurements"`
}

// NewSnapshot captures the current state of ms. The snapshot copies the
// accumulator values, so the caller is free to reset ms afterwards.
func NewSnapshot(simulation, instance string, recordedAt time.Time, uptime time.Duration, ms *stats.Measures) *Snapshot {
	snap := &Snapshot{
		Simulation:   simulation,
		Instance:     instance,
		RecordedAt:   recordedAt,
		Uptime:       uptime,
		Measurements: make([]Measurement, 0, ms.Len()),
	}
	for _, m := range ms.Slice() {
		snap.Measurements = append(snap.Measurements, Measurement{
			Name:  m.Name,
			Count: m.Acc.NumOfSamples(),
			Mean:  m.Acc.Mean,
			Mean2: m.Acc.Mean2,
		})
	}
	return snap
}

// Exporter is a data sink for accumulated expectation values.
//
// Export sends one snapshot. It must not mutate the snapshot or retain it
// beyond the call. Resetting the accumulators after a successful export is
// the engine's job, not the sink's. A returned error is treated as
// recoverable and retried on the next flush cycle unless it is marked with
// Fatal.
type Exporter interface {
	Export(ctx context.Context, snap *Snapshot) error
}

// fatalError marks an export failure that retrying cannot fix, such as a
// serialization bug. The engine aborts immediately instead of counting it
// against the retry budget.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return "fatal: " + e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps err so that the engine treats it as non-retryable.
func Fatal(err error) error {
	return &fatalError{err: err}
}

// IsFatal reports whether err (or anything it wraps) was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
