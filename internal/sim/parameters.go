package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/latticelab/ergo/internal/export"
	"github.com/latticelab/ergo/internal/stats"
)

// Parameters configures one simulation run. The startup layer resolves
// configuration files, environment, and flags into this value before Run is
// invoked; the driver reads it and nothing else.
type Parameters struct {
	// Name identifies the simulation in logs and exported records.
	Name string

	// Measures is the frozen collection of observables to record.
	Measures *stats.Measures

	// Exporter receives a snapshot of all measures every flush cycle.
	Exporter export.Exporter

	// FlushInterval is the base interval between exports.
	FlushInterval time.Duration

	// FlushJitter randomizes each flush cycle: the actual interval is
	// drawn uniformly from [T*(1-j), T*(1+j)]. Must lie in [0, 1).
	// Jitter keeps a fleet of instances from synchronizing their export
	// bursts against a shared sink.
	FlushJitter float64

	// MaxFailuresInRow aborts the run after this many consecutive export
	// failures. Zero tolerates failures indefinitely; the retained state
	// stays O(1) per measure regardless.
	MaxFailuresInRow int

	// Seed is the master seed for all randomness in the run. Zero means
	// the startup layer picked one at random.
	Seed uint64

	// Instance identifies this process in exported records. Generated if
	// empty.
	Instance string

	// Logger receives operational diagnostics. Discards if nil.
	Logger *slog.Logger
}

// Validate reports the first setup error in the parameters. Setup errors are
// deployment or programming mistakes and are fatal at startup.
func (p *Parameters) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("simulation name must not be empty")
	}
	if p.Measures == nil {
		return fmt.Errorf("simulation %q has no measures", p.Name)
	}
	if p.Measures.Len() == 0 {
		return fmt.Errorf("simulation %q registered no observables", p.Name)
	}
	if p.Exporter == nil {
		return fmt.Errorf("simulation %q has no exporter", p.Name)
	}
	if p.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", p.FlushInterval)
	}
	if p.FlushJitter < 0 || p.FlushJitter >= 1 {
		return fmt.Errorf("flush jitter must lie within [0, 1), got %v", p.FlushJitter)
	}
	if p.MaxFailuresInRow < 0 {
		return fmt.Errorf("max failures in row must be non-negative, got %d", p.MaxFailuresInRow)
	}
	return nil
}

// TooManyFailuresError is returned by Run when the consecutive export
// failure cap is reached. Persistent export failure indicates a
// misconfiguration that accumulating state indefinitely cannot paper over,
// so the whole process is expected to stop.
type TooManyFailuresError struct {
	Failures int
	Last     error
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("reached a maximum of %d export failures in a row: %v", e.Failures, e.Last)
}

func (e *TooManyFailuresError) Unwrap() error { return e.Last }
