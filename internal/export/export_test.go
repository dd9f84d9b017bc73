package export

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/latticelab/ergo/internal/stats"
)

// testSnapshot builds a snapshot with two measures fed a few known values.
func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	reg := stats.NewRegistry()
	x := reg.MustRegister("mean x")
	x2 := reg.MustRegister("mean x^2")
	ms := reg.Freeze()
	for _, v := range []float64{0.25, 0.5, 0.75} {
		ms.Accumulate(x, v)
		ms.Accumulate(x2, v*v)
	}
	recorded := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return NewSnapshot("test sim", "instance-1", recorded, 42*time.Second, ms)
}

func TestNewSnapshot(t *testing.T) {
	snap := testSnapshot(t)

	if snap.Simulation != "test sim" || snap.Instance != "instance-1" {
		t.Errorf("snapshot identity = %q/%q", snap.Simulation, snap.Instance)
	}
	if len(snap.Measurements) != 2 {
		t.Fatalf("got %d measurements, want 2", len(snap.Measurements))
	}

	m := snap.Measurements[0]
	if m.Name != "mean x" {
		t.Errorf("Measurements[0].Name = %q, want %q", m.Name, "mean x")
	}
	if m.Count != 3 {
		t.Errorf("Measurements[0].Count = %v, want 3", m.Count)
	}
	if acc := m.Acc(); acc.Value() != 0.5 {
		t.Errorf("restored Value() = %v, want 0.5", acc.Value())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	reg := stats.NewRegistry()
	h := reg.MustRegister("m")
	ms := reg.Freeze()
	ms.Accumulate(h, 1)

	snap := NewSnapshot("s", "i", time.Now(), 0, ms)
	ms.Reset()

	if snap.Measurements[0].Count != 1 {
		t.Errorf("snapshot shares state with measures: Count = %v after Reset", snap.Measurements[0].Count)
	}
}

func TestFatal(t *testing.T) {
	base := errors.New("broken encoder")
	err := Fatal(base)

	if !IsFatal(err) {
		t.Error("IsFatal() = false for a Fatal error")
	}
	if !errors.Is(err, base) {
		t.Error("Fatal error does not unwrap to its cause")
	}
	if IsFatal(base) {
		t.Error("IsFatal() = true for a plain error")
	}
	if IsFatal(fmt.Errorf("wrapped: %w", err)) != true {
		t.Error("IsFatal() = false for a wrapped Fatal error")
	}
}

func TestMemoryExporter(t *testing.T) {
	e := NewMemoryExporter()
	snap := testSnapshot(t)

	boom := errors.New("sink down")
	e.FailNext(2, boom)

	ctx := context.Background()
	if err := e.Export(ctx, snap); !errors.Is(err, boom) {
		t.Fatalf("first Export = %v, want scripted failure", err)
	}
	if err := e.Export(ctx, snap); !errors.Is(err, boom) {
		t.Fatalf("second Export = %v, want scripted failure", err)
	}
	if err := e.Export(ctx, snap); err != nil {
		t.Fatalf("third Export = %v, want success", err)
	}

	if got := len(e.Snapshots()); got != 1 {
		t.Fatalf("recorded %d snapshots, want 1", got)
	}
	if e.Snapshots()[0].Simulation != "test sim" {
		t.Errorf("recorded wrong snapshot: %q", e.Snapshots()[0].Simulation)
	}
}

func TestMultiExporter(t *testing.T) {
	snap := testSnapshot(t)
	ctx := context.Background()

	t.Run("all succeed", func(t *testing.T) {
		a, b := NewMemoryExporter(), NewMemoryExporter()
		multi := NewMultiExporter(a, b)
		if err := multi.Export(ctx, snap); err != nil {
			t.Fatalf("Export: %v", err)
		}
		if len(a.Snapshots()) != 1 || len(b.Snapshots()) != 1 {
			t.Errorf("sinks saw %d/%d snapshots, want 1/1", len(a.Snapshots()), len(b.Snapshots()))
		}
	})

	t.Run("one fails, others still delivered", func(t *testing.T) {
		a, b := NewMemoryExporter(), NewMemoryExporter()
		boom := errors.New("sink down")
		a.FailAlways(boom)
		multi := NewMultiExporter(a, b)

		err := multi.Export(ctx, snap)
		if !errors.Is(err, boom) {
			t.Fatalf("Export = %v, want the sink failure", err)
		}
		if IsFatal(err) {
			t.Error("plain sink failure reported as fatal")
		}
		if len(b.Snapshots()) != 1 {
			t.Errorf("healthy sink saw %d snapshots, want 1", len(b.Snapshots()))
		}
	})

	t.Run("fatal failure stays fatal", func(t *testing.T) {
		a := NewMemoryExporter()
		a.FailAlways(Fatal(errors.New("encoder bug")))
		multi := NewMultiExporter(a, NewMemoryExporter())

		if err := multi.Export(ctx, snap); !IsFatal(err) {
			t.Fatalf("Export = %v, want fatal", err)
		}
	})
}
