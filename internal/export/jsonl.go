package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLExporter appends one JSON document per flush to a results file. The
// format is line-delimited JSON, one snapshot per line, so files from
// several instances can be concatenated and merged downstream.
type JSONLExporter struct {
	path string
	f    *os.File
}

// NewJSONLExporter opens (or creates) the results file for appending.
func NewJSONLExporter(path string) (*JSONLExporter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	return &JSONLExporter{path: path, f: f}, nil
}

// Export writes the snapshot as a single JSONL line. A marshal failure is a
// bug in the record shape, not a transient sink condition, and is reported
// as fatal; write failures are retryable.
func (e *JSONLExporter) Export(_ context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return Fatal(fmt.Errorf("failed to encode snapshot: %w", err))
	}
	data = append(data, '\n')
	if _, err := e.f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (e *JSONLExporter) Close() error {
	return e.f.Close()
}
