package report

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/latticelab/ergo/internal/export"
)

// seedDB writes flushes from two instances of "ising" and one flush of
// "potts" into a fresh results database and returns its path.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")
	exp, err := export.NewSQLiteExporter(path)
	if err != nil {
		t.Fatalf("NewSQLiteExporter: %v", err)
	}
	defer exp.Close()

	now := time.Now()
	snaps := []*export.Snapshot{
		{
			Simulation: "ising", Instance: "inst-a", RecordedAt: now, Uptime: time.Minute,
			Measurements: []export.Measurement{
				{Name: "energy", Count: 100, Mean: 2.0, Mean2: 5.0},
			},
		},
		{
			Simulation: "ising", Instance: "inst-b", RecordedAt: now, Uptime: time.Minute,
			Measurements: []export.Measurement{
				{Name: "energy", Count: 300, Mean: 4.0, Mean2: 17.0},
			},
		},
		{
			Simulation: "potts", Instance: "inst-c", RecordedAt: now, Uptime: time.Minute,
			Measurements: []export.Measurement{
				{Name: "energy", Count: 50, Mean: -1.0, Mean2: 1.0},
			},
		},
	}
	for _, s := range snaps {
		if err := exp.Export(context.Background(), s); err != nil {
			t.Fatalf("Export: %v", err)
		}
	}
	return path
}

func TestCollectMergesAcrossInstances(t *testing.T) {
	path := seedDB(t)

	res, err := Collect(context.Background(), Options{DBPath: path, Simulation: "ising"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if res.Flushes != 2 {
		t.Errorf("Flushes = %d, want 2", res.Flushes)
	}
	if res.Instances != 2 {
		t.Errorf("Instances = %d, want 2", res.Instances)
	}
	if len(res.Measures) != 1 {
		t.Fatalf("Measures = %d, want 1", len(res.Measures))
	}

	m := res.Measures[0]
	if m.Name != "energy" {
		t.Errorf("Name = %q, want energy", m.Name)
	}
	// 100 samples at mean 2 merged with 300 at mean 4 gives mean 3.5.
	if got := m.Acc.NumOfSamples(); got != 400 {
		t.Errorf("NumOfSamples = %v, want 400", got)
	}
	if got := m.Acc.Value(); math.Abs(got-3.5) > 1e-12 {
		t.Errorf("Value = %v, want 3.5", got)
	}
}

func TestCollectWithoutFilter(t *testing.T) {
	path := seedDB(t)

	res, err := Collect(context.Background(), Options{DBPath: path})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if res.Flushes != 3 {
		t.Errorf("Flushes = %d, want 3", res.Flushes)
	}
	if res.Instances != 3 {
		t.Errorf("Instances = %d, want 3", res.Instances)
	}
	if len(res.Measures) != 1 {
		t.Fatalf("Measures = %d, want 1", len(res.Measures))
	}
	if got := res.Measures[0].Acc.NumOfSamples(); got != 450 {
		t.Errorf("NumOfSamples = %v, want 450", got)
	}
}

func TestCollectMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := Collect(context.Background(), Options{DBPath: path}); err == nil {
		t.Fatal("expected error for a missing database")
	}
}

func TestWriteText(t *testing.T) {
	path := seedDB(t)
	res, err := Collect(context.Background(), Options{DBPath: path, Simulation: "ising"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var buf bytes.Buffer
	res.WriteText(&buf)

	out := buf.String()
	if !strings.Contains(out, "Flushes aggregated: 2 (from 2 instances)") {
		t.Errorf("missing flush summary:\n%s", out)
	}
	if !strings.Contains(out, "energy") {
		t.Errorf("missing measure row:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	path := seedDB(t)
	res, err := Collect(context.Background(), Options{DBPath: path, Simulation: "ising"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var buf bytes.Buffer
	if err := res.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		Flushes  int `json:"flushes"`
		Measures []struct {
			Name    string  `json:"name"`
			Samples float64 `json:"samples"`
			Value   float64 `json:"value"`
		} `json:"measures"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if doc.Flushes != 2 || len(doc.Measures) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Measures[0].Name != "energy" || doc.Measures[0].Samples != 400 {
		t.Errorf("measure = %+v", doc.Measures[0])
	}
}
