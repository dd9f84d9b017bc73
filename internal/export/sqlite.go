package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Schema for the SQLite results sink. Each export inserts one flush row and
// one measurement row per measure, all in a single transaction. A database
// on a shared filesystem is the out-of-band aggregation point for a fleet of
// independently running instances.
const resultsSchema = `
CREATE TABLE IF NOT EXISTS flushes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    simulation TEXT NOT NULL,
    instance TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    uptime_secs REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS measurements (
    flush_id INTEGER NOT NULL REFERENCES flushes(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    count REAL NOT NULL,
    mean REAL NOT NULL,
    mean2 REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_measurements_flush ON measurements(flush_id);
CREATE INDEX IF NOT EXISTS idx_measurements_name ON measurements(name);
`

// SQLiteExporter persists snapshots to a local SQLite database.
type SQLiteExporter struct {
	db   *sql.DB
	path string
}

// NewSQLiteExporter opens (or creates) the results database at path and
// initializes the schema.
func NewSQLiteExporter(path string) (*SQLiteExporter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if _, err := db.Exec(resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize results schema: %w", err)
	}

	return &SQLiteExporter{db: db, path: path}, nil
}

// Export inserts the snapshot in one transaction. All failures are
// retryable: the database may be briefly locked by another writer on a
// shared filesystem.
func (e *SQLiteExporter) Export(ctx context.Context, snap *Snapshot) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO flushes (simulation, instance, recorded_at, uptime_secs) VALUES (?, ?, ?, ?)`,
		snap.Simulation, snap.Instance, snap.RecordedAt.UTC().Format(time.RFC3339Nano), snap.Uptime.Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert flush: %w", err)
	}
	flushID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read flush id: %w", err)
	}

	for _, m := range snap.Measurements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO measurements (flush_id, name, count, mean, mean2) VALUES (?, ?, ?, ?, ?)`,
			flushID, m.Name, m.Count, m.Mean, m.Mean2); err != nil {
			return fmt.Errorf("failed to insert measurement %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flush: %w", err)
	}
	return nil
}

// Close closes the database.
func (e *SQLiteExporter) Close() error {
	return e.db.Close()
}
