package indexdb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
	"anthill.game/internal/sim/tuning"
)

func TestSQLiteIndex_WritesTicksEventsAndSnapshots(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "colony.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := idx.RecordRun(ctx, "run-1", 42, 0, ""); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := idx.UpsertTuning(ctx, tuning.Defaults()); err != nil {
		t.Fatalf("upsert tuning: %v", err)
	}

	act := state.Action{ID: "a1", Type: "dig", TicksRemaining: 1}
	_ = idx.WriteTick(colony.TickLogEntry{
		Tick:    1,
		Actions: []state.Action{act},
		Events: []events.Event{
			events.New(1, events.ActionComplete{ActionID: "a1", ActionType: "dig"}),
			events.New(1, events.ReceiverSilent{}),
		},
		Digest: "d1",
	})
	_ = idx.WriteTick(colony.TickLogEntry{
		Tick:   2,
		Events: []events.Event{events.New(2, events.ReceiverSilent{})},
		Digest: "d2",
	})
	_ = idx.WriteAudit(persistlog.AuditEntry{Tick: 2, Source: "ws", ActionID: "a2", Type: "dig", Accepted: false, Reason: "queue full"})

	s := state.New()
	s.Tick = 2
	s.Resources["fungus"] = 12.5
	s.AddEntity(state.NewWorker("w1", state.OriginTile))
	snap := snapshot.New("run-1", engine.New(42), s, 1700000000)
	idx.RecordSnapshot("/data/snapshots/2.snap.zst", snap)

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	tr, err := r.Ticks(ctx)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if tr.First != 1 || tr.Last != 2 || tr.Count != 2 {
		t.Fatalf("tick range=%+v", tr)
	}

	counts, err := r.EventCounts(ctx)
	if err != nil {
		t.Fatalf("event counts: %v", err)
	}
	if len(counts) != 2 || counts[0].Type != events.TypeReceiverSilent || counts[0].Count != 2 {
		t.Fatalf("counts=%+v", counts)
	}

	rows, err := r.Events(ctx, events.TypeActionComplete, 0, 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(rows) != 1 || rows[0].Tick != 1 || rows[0].Seq != 0 {
		t.Fatalf("rows=%+v", rows)
	}
	var ev events.Event
	if err := json.Unmarshal([]byte(rows[0].JSON), &ev); err != nil {
		t.Fatalf("decode stored event: %v", err)
	}
	if k, ok := ev.Kind.(events.ActionComplete); !ok || k.ActionID != "a1" {
		t.Fatalf("stored event=%+v", ev)
	}

	later, err := r.Events(ctx, "", 2, 10)
	if err != nil || len(later) != 1 {
		t.Fatalf("events from tick 2=%+v err=%v", later, err)
	}

	snaps, err := r.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Tick != 2 || snaps[0].Entities != 1 || snaps[0].RunID != "run-1" {
		t.Fatalf("snapshots=%+v", snaps)
	}

	digest, err := r.TuningDigest(ctx)
	if err != nil || len(digest) != 64 {
		t.Fatalf("tuning digest=%q err=%v", digest, err)
	}
	runs, err := r.Runs(ctx)
	if err != nil || len(runs) != 1 || runs[0] != "run-1" {
		t.Fatalf("runs=%v err=%v", runs, err)
	}
}

func TestSQLiteIndex_WritesAfterCloseAreIgnored(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "x.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.Close()
	if err := idx.WriteTick(colony.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	idx.RecordSnapshot("p", snapshot.Snapshot{})
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
