package export

import "context"

// MemoryExporter is an in-process sink for tests and dry runs. It stores a
// copy of every snapshot it accepts and can be scripted to fail.
type MemoryExporter struct {
	snapshots []Snapshot
	failNext  int
	failErr   error
	failAll   bool
}

// NewMemoryExporter creates an empty memory exporter.
func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

// FailNext makes the next n Export calls return err.
func (e *MemoryExporter) FailNext(n int, err error) {
	e.failNext = n
	e.failErr = err
}

// FailAlways makes every Export call return err.
func (e *MemoryExporter) FailAlways(err error) {
	e.failAll = true
	e.failErr = err
}

// Export records a copy of the snapshot, or fails if scripted to.
func (e *MemoryExporter) Export(_ context.Context, snap *Snapshot) error {
	if e.failAll {
		return e.failErr
	}
	if e.failNext > 0 {
		e.failNext--
		return e.failErr
	}
	clone := *snap
	clone.Measurements = append([]Measurement(nil), snap.Measurements...)
	e.snapshots = append(e.snapshots, clone)
	return nil
}

// Snapshots returns the accepted snapshots in order.
func (e *MemoryExporter) Snapshots() []Snapshot {
	return e.snapshots
}
