package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/latticelab/ergo/internal/stats"
)

// ConsoleExporter prints accumulated results to a writer, typically stdout.
// Unlike the durable sinks it keeps its own aggregate registry and merges
// every incoming snapshot into it, so the printed table always shows the
// running totals for the whole process even though each snapshot restarts
// from zero.
type ConsoleExporter struct {
	w         io.Writer
	aggregate *stats.Registry
	started   time.Time
}

// NewConsoleExporter creates a console exporter writing to w.
func NewConsoleExporter(w io.Writer) *ConsoleExporter {
	return &ConsoleExporter{
		w:         w,
		aggregate: stats.NewRegistry(),
		started:   time.Now(),
	}
}

// Export merges the snapshot into the aggregate registry and prints the
// resulting totals. It never fails.
func (e *ConsoleExporter) Export(_ context.Context, snap *Snapshot) error {
	var samples float64
	for _, m := range snap.Measurements {
		h, ok := e.aggregate.Find(m.Name)
		if !ok {
			h = e.aggregate.MustRegister(m.Name)
		}
		acc := e.aggregate.Acc(h)
		acc.Merge(m.Acc())
		samples = math.Max(samples, acc.NumOfSamples())
	}

	fmt.Fprintln(e.w)
	fmt.Fprintf(e.w, "Simulation uptime: %s\n", snap.RecordedAt.Sub(e.started).Round(time.Second))
	fmt.Fprintf(e.w, "Samples processed: %.0f\n", samples)
	fmt.Fprintln(e.w, "Aggregate values:")
	WriteTable(e.w, e.aggregate.Measures())
	return nil
}

// WriteTable renders measures as an aligned table of expectation values,
// uncertainties, and relative uncertainties.
func WriteTable(w io.Writer, measures []stats.Measure) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEASURE\tEXPECTATION\tUNCERTAINTY\tREL UNCERTAINTY")
	for _, m := range measures {
		fmt.Fprintf(tw, "%s\t%v\t%v\t%v\n",
			m.Name,
			m.Acc.Value(),
			m.Acc.Uncertainty(),
			m.Acc.Uncertainty()/math.Abs(m.Acc.Value()))
	}
	tw.Flush()
}
