// Package report aggregates the contents of a SQLite results database into
// final expectation values. Every instance of a simulation appends its
// flushes independently; the report merges them back into one accumulator
// per measure, which is statistically equivalent to a single long run.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/latticelab/ergo/internal/export"
	"github.com/latticelab/ergo/internal/stats"
)

// Options selects what to aggregate.
type Options struct {
	// DBPath is the SQLite results database written by the sqlite sink.
	DBPath string
	// Simulation restricts the report to flushes of one simulation.
	// Empty aggregates everything in the database.
	Simulation string
}

// Result is an aggregated view over the results database.
type Result struct {
	Flushes   int
	Instances int
	Measures  []stats.Measure
}

// Collect opens the results database and merges all matching flushes.
func Collect(ctx context.Context, opts Options) (*Result, error) {
	db, err := sql.Open("sqlite", opts.DBPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	defer db.Close()

	res := &Result{}

	countQuery := `SELECT COUNT(*), COUNT(DISTINCT instance) FROM flushes`
	countArgs := []any{}
	if opts.Simulation != "" {
		countQuery += ` WHERE simulation = ?`
		countArgs = append(countArgs, opts.Simulation)
	}
	if err := db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&res.Flushes, &res.Instances); err != nil {
		return nil, fmt.Errorf("failed to count flushes: %w", err)
	}

	measureQuery := `
		SELECT m.name, m.count, m.mean, m.mean2
		FROM measurements m
		JOIN flushes f ON f.id = m.flush_id`
	measureArgs := []any{}
	if opts.Simulation != "" {
		measureQuery += ` WHERE f.simulation = ?`
		measureArgs = append(measureArgs, opts.Simulation)
	}

	rows, err := db.QueryContext(ctx, measureQuery, measureArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	reg := stats.NewRegistry()
	for rows.Next() {
		var (
			name                string
			count, mean, mean2 float64
		)
		if err := rows.Scan(&name, &count, &mean, &mean2); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		h, ok := reg.Find(name)
		if !ok {
			h = reg.MustRegister(name)
		}
		reg.Acc(h).Merge(stats.Restore(count, mean, mean2))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read measurements: %w", err)
	}

	res.Measures = reg.Measures()
	return res, nil
}

// WriteText renders the result as a human-readable table.
func (r *Result) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Flushes aggregated: %d (from %d instances)\n", r.Flushes, r.Instances)
	export.WriteTable(w, r.Measures)
}

type measureJSON struct {
	Name        string  `json:"name"`
	Samples     float64 `json:"samples"`
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
}

type resultJSON struct {
	Flushes   int           `json:"flushes"`
	Instances int           `json:"instances"`
	Measures  []measureJSON `json:"measures"`
}

// WriteJSON renders the result as a single JSON document.
func (r *Result) WriteJSON(w io.Writer) error {
	out := resultJSON{Flushes: r.Flushes, Instances: r.Instances}
	for _, m := range r.Measures {
		out.Measures = append(out.Measures, measureJSON{
			Name:        m.Name,
			Samples:     m.Acc.NumOfSamples(),
			Value:       m.Acc.Value(),
			Uncertainty: m.Acc.Uncertainty(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
