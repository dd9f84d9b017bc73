package export

import (
	"context"
	"errors"
	"io"
)

// MultiExporter fans a snapshot out to several sinks, e.g. a console
// printer next to a durable database. Every sink sees every snapshot even
// when an earlier one fails, so a flaky sink cannot starve the others.
type MultiExporter struct {
	sinks []Exporter
}

// NewMultiExporter combines sinks into one exporter.
func NewMultiExporter(sinks ...Exporter) *MultiExporter {
	return &MultiExporter{sinks: sinks}
}

// Export delivers the snapshot to every sink and joins their failures. The
// result is fatal if any individual failure was fatal; otherwise the engine
// retries and the sinks that already accepted the snapshot will simply see
// the same accumulated data again, extended by further samples.
func (e *MultiExporter) Export(ctx context.Context, snap *Snapshot) error {
	var errs []error
	for _, sink := range e.sinks {
		if err := sink.Export(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that is closeable.
func (e *MultiExporter) Close() error {
	var errs []error
	for _, sink := range e.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
