package engine

import (
	"encoding/json"
	"testing"

	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

func runTicks(t *testing.T, e *Engine, s *state.GameState, n int) ([]events.Event, []string) {
	t.Helper()
	var all []events.Event
	digests := make([]string, 0, n)
	for range n {
		all = append(all, e.Tick(s)...)
		digests = append(digests, state.Digest(s))
	}
	return all, digests
}

func assertSameRun(t *testing.T, seed uint64, base *state.GameState, n int) []events.Event {
	t.Helper()
	s1, s2 := base.Clone(), base.Clone()
	ev1, d1 := runTicks(t, New(seed), s1, n)
	ev2, d2 := runTicks(t, New(seed), s2, n)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("seed %d: digest mismatch at tick %d", seed, i+1)
		}
	}
	b1, err := json.Marshal(ev1)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	b2, err := json.Marshal(ev2)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("seed %d: event streams differ", seed)
	}
	return ev1
}

func TestDeterminism_Basic(t *testing.T) {
	s := state.New()
	s.Resources["nutrients"] = 100
	s.Resources["fungus"] = 100
	s.AddEntity(state.NewWorker("w1", state.OriginTile))
	assertSameRun(t, 12345, s, 100)
}

func TestDeterminism_WithSpawning(t *testing.T) {
	s := state.New()
	s.Resources["nutrients"] = 200
	s.Resources["fungus"] = 200
	s.Systems[state.QueenChamber] = state.NewSystem("Queen's Chamber", state.SystemSpawner)

	evs := assertSameRun(t, 42, s, 2000)
	spawns := len(events.Filter(evs, events.TypeAntsSpawned)) + len(events.Filter(evs, events.TypeEmergencySpawn))
	if spawns == 0 {
		t.Fatalf("expected spawning events")
	}
}

func TestDeterminism_WithReceiver(t *testing.T) {
	s := state.New()
	s.Resources["influence"] = 50
	s.Resources["fungus"] = 100
	s.Systems[state.Receiver] = state.NewSystem("The Receiver", state.SystemAntenna)

	evs := assertSameRun(t, 99999, s, 3000)
	if len(events.Filter(evs, events.TypeInfluenceSpent)) == 0 {
		t.Fatalf("expected summon attempts")
	}
}

func TestDeterminism_FullColony(t *testing.T) {
	s := loadSampleState(t)
	s.Systems[state.QueenChamber] = state.NewSystem("Queen's Chamber", state.SystemSpawner)
	s.Systems[state.Receiver] = state.NewSystem("The Receiver", state.SystemAntenna)
	s.Resources["influence"] = 30
	s.Meta.ReceiverSilent = false
	s.Graveyard.AddCorpse(state.Corpse{EntityID: "old", EntityType: "ant", DeathTick: 1, Cause: state.CauseOldAge, Tile: state.OriginTile})
	assertSameRun(t, 55555, s, 1500)
}

func TestDifferentSeedsDiverge(t *testing.T) {
	s := state.New()
	s.Resources["nutrients"] = 200
	s.Resources["fungus"] = 200
	s.Systems[state.QueenChamber] = state.NewSystem("Queen's Chamber", state.SystemSpawner)

	s1, s2 := s.Clone(), s.Clone()
	_, d1 := runTicks(t, New(11111), s1, 50)
	_, d2 := runTicks(t, New(22222), s2, 50)
	if d1[len(d1)-1] == d2[len(d2)-1] {
		t.Fatalf("different seeds produced identical states")
	}
}
