package colony

import (
	"fmt"
	"time"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/rng"
	"anthill.game/internal/sim/state"
	"anthill.game/internal/sim/tuning"
)

// Starter is a playable first colony: a dig site feeding a compost heap, a
// queen's chamber and one worker with one undertaker. Ant ids come from the
// seed so two colonies started with the same seed are identical.
func Starter(seed uint64) *state.GameState {
	s := state.New()
	s.Resources["dirt"] = 10
	s.Resources["nutrients"] = 20
	s.Resources["fungus"] = 20

	s.Map.AddTile(state.CompostTile, state.NewCompostTile("Compost Pile", 1, 0))
	s.Map.Connect(state.OriginTile, state.CompostTile)

	dig := state.NewGenerator("Dig Site", map[string]float64{"dirt": 0.02})
	dig.Description = "Ants slowly dig up dirt"
	s.Systems["dig_site"] = dig

	heap := state.NewConverter("Compost Heap", map[string]float64{"dirt": 0.005}, map[string]float64{"nutrients": 0.01})
	heap.Description = "Dirt slowly breaks down into nutrients"
	heap.Boosts = []state.CorpseBoost{}
	s.Systems[state.CompostHeap] = heap

	queen := state.NewSystem("Queen's Chamber", state.SystemSpawner)
	queen.Description = "The queen lays eggs when the colony can feed them"
	s.Systems[state.QueenChamber] = queen

	r := rng.FromTick(seed, 0)
	s.AddEntity(state.NewWorker(r.EntityID(), state.OriginTile))
	s.AddEntity(state.NewUndertaker(r.EntityID(), state.OriginTile))
	return s
}

// ResumeInfo describes how Resume obtained its state.
type ResumeInfo struct {
	// Path is the snapshot resumed from; empty for a fresh colony.
	Path          string
	Attached      bool
	OfflineTicks  uint64
	PreviousRunID string
}

// Resume loads the newest snapshot under dataDir, or builds fresh() when
// there is none, then catches up on the wall-clock time since the last save.
func Resume(dataDir string, seed uint64, tune tuning.Tuning, now time.Time, fresh func() *state.GameState) (*engine.Engine, *state.GameState, ResumeInfo, error) {
	path, _ := snapshot.Latest(SnapshotDir(dataDir))
	if path == "" {
		return engine.NewWithTuning(seed, tune), fresh(), ResumeInfo{}, nil
	}
	return Load(path, seed, tune, now)
}

// Load resumes from one snapshot file. Bookkeeping comes from the snapshot
// header when it has one; bare state files get seed and inferred spawn
// bookkeeping instead. Offline progress is applied afterwards.
func Load(path string, seed uint64, tune tuning.Tuning, now time.Time) (*engine.Engine, *state.GameState, ResumeInfo, error) {
	snap, err := snapshot.Read(path)
	if err != nil {
		return nil, nil, ResumeInfo{}, fmt.Errorf("load %s: %w", path, err)
	}
	info := ResumeInfo{Path: path, PreviousRunID: snap.Header.RunID}

	e, attached := EngineFor(snap, seed, tune)
	info.Attached = attached

	before := snap.State.Tick
	e.ApplyOffline(snap.State, unixSeconds(now))
	info.OfflineTicks = snap.State.Tick - before
	return e, snap.State, info, nil
}

// EngineFor builds the engine that continues snap. Bare state files carry no
// bookkeeping, so the engine is attached to the state with the given seed and
// attached is true.
func EngineFor(snap snapshot.Snapshot, seed uint64, tune tuning.Tuning) (e *engine.Engine, attached bool) {
	if snap.Header.Version == 0 {
		e = engine.NewWithTuning(seed, tune)
		e.Attach(snap.State)
		return e, true
	}
	return engine.Restore(snap.Bookkeeping(), tune), false
}
