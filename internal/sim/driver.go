package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/latticelab/ergo/internal/export"
)

// Run executes the simulation loop until a fatal condition or context
// cancellation. There is no other stop condition: simulations run until
// externally killed.
//
// Each iteration mutates the sample, measures it, and, when the jittered
// flush deadline has passed, exports a snapshot of all measures. A
// successful export resets the accumulators, so each exported data point
// covers only the samples since the previous flush. A failed export keeps
// the accumulated statistics for the next attempt; after
// p.MaxFailuresInRow consecutive failures Run returns a
// *TooManyFailuresError. Export failures marked fatal by the sink abort
// immediately.
//
// The whole loop is synchronous by design: export blocks sampling, and a
// slow sink throttles the sampling rate. Statistical accuracy depends on
// sample count, not wall-clock rate, so simplicity wins here.
func Run[S Sample](ctx context.Context, p Parameters, sample S, measure MeasureFunc[S]) error {
	d, err := newDriver(p)
	if err != nil {
		return err
	}
	return run(ctx, d, sample, measure)
}

// driver holds the mutable loop state. It is split from Run so tests can
// inject a clock; methods cannot carry the sample's type parameter, which is
// why the loop itself lives in the free function run.
type driver struct {
	p   Parameters
	log *slog.Logger

	// sampleRNG drives Prepare/Thermalize/Mutate; flushRNG draws the
	// jittered flush intervals. Separate streams keep the physics
	// reproducible regardless of how often flushes happen to fire.
	sampleRNG *rand.Rand
	flushRNG  *rand.Rand

	now     func() time.Time
	started time.Time
}

func newDriver(p Parameters) (*driver, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation parameters: %w", err)
	}
	if p.Instance == "" {
		p.Instance = uuid.NewString()
	}
	log := p.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &driver{
		p:         p,
		log:       log,
		sampleRNG: rand.New(rand.NewPCG(p.Seed, streamID("sample"))),
		flushRNG:  rand.New(rand.NewPCG(p.Seed, streamID("flush"))),
		now:       time.Now,
	}, nil
}

// streamID derives a stable per-component stream for the PCG generator, so
// adding a consumer of randomness never perturbs the other streams.
func streamID(component string) uint64 {
	return xxhash.Sum64String(component)
}

func run[S Sample](ctx context.Context, d *driver, sample S, measure MeasureFunc[S]) error {
	d.log.Info("running simulation",
		"name", d.p.Name,
		"instance", d.p.Instance,
		"seed", d.p.Seed,
		"flush_interval", d.p.FlushInterval)

	sample.Prepare(d.sampleRNG)
	thermalize(sample, d.sampleRNG)

	d.started = d.now()
	deadline := d.started.Add(d.nextFlushInterval())
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Draw a new configuration from the ergodic distribution and
		// record the observables.
		sample.Mutate(d.sampleRNG)
		measure(sample, d.p.Measures)

		if d.now().Before(deadline) {
			continue
		}

		if err := d.export(ctx); err != nil {
			if export.IsFatal(err) {
				return fmt.Errorf("export failed fatally: %w", err)
			}
			failures++
			d.log.Error("failed to export measured values; keeping accumulated statistics",
				"error", err, "failures_in_row", failures)
			if d.p.MaxFailuresInRow > 0 && failures >= d.p.MaxFailuresInRow {
				return &TooManyFailuresError{Failures: failures, Last: err}
			}
		} else {
			failures = 0
			// The exported data point becomes the new from-zero
			// baseline.
			d.p.Measures.Reset()
		}
		deadline = d.now().Add(d.nextFlushInterval())
	}
}

func (d *driver) export(ctx context.Context) error {
	now := d.now()
	snap := export.NewSnapshot(d.p.Name, d.p.Instance, now, now.Sub(d.started), d.p.Measures)
	if err := d.p.Exporter.Export(ctx, snap); err != nil {
		return err
	}
	d.log.Debug("exported data point",
		"measures", len(snap.Measurements), "uptime", snap.Uptime.Round(time.Second))
	return nil
}

// nextFlushInterval draws the next flush interval uniformly from
// [T*(1-j), T*(1+j)], with a floor of one second.
func (d *driver) nextFlushInterval() time.Duration {
	interval := d.p.FlushInterval
	if j := d.p.FlushJitter; j > 0 {
		lo := float64(interval) * (1 - j)
		span := 2 * j * float64(interval)
		interval = time.Duration(lo + d.flushRNG.Float64()*span)
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
