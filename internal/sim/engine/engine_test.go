package engine

import (
	"encoding/json"
	"math"
	"os"
	"testing"

	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
	"anthill.game/internal/sim/tuning"
)

func loadSampleState(t *testing.T) *state.GameState {
	t.Helper()
	b, err := os.ReadFile("../state/testdata/sample_state.json")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	s, err := state.Decode(b)
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return s
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTick_AgesEntities(t *testing.T) {
	s := state.New()
	s.AddEntity(state.NewWorker("test", state.OriginTile))
	New(42).Tick(s)
	if s.Tick != 1 || s.Entities[0].Age != 1 || s.Entities[0].Hunger >= 100 {
		t.Fatalf("tick=%d entity=%+v", s.Tick, s.Entities[0])
	}
}

func TestTick_EntityEats(t *testing.T) {
	s := state.New()
	w := state.NewWorker("test", state.OriginTile)
	w.Hunger = 40
	s.AddEntity(w)
	s.Resources["fungus"] = 10

	evs := New(42).Tick(s)
	if s.Entities[0].Hunger <= 40 {
		t.Fatalf("hunger=%v", s.Entities[0].Hunger)
	}
	if s.Resources.Get("fungus") != 9 {
		t.Fatalf("fungus=%v", s.Resources.Get("fungus"))
	}
	ate := events.Filter(evs, events.TypeEntityAte)
	if len(ate) != 1 {
		t.Fatalf("events=%v", events.Types(evs))
	}
	if k := ate[0].Kind.(events.EntityAte); k.EntityID != "test" || !approx(k.HungerAfter, 69.9) {
		t.Fatalf("ate=%+v", k)
	}
}

func TestTick_Starvation(t *testing.T) {
	s := state.New()
	w := state.NewWorker("test", state.OriginTile)
	w.Hunger = 0.05
	s.AddEntity(w)

	evs := New(42).Tick(s)
	if len(s.Entities) != 0 {
		t.Fatalf("entity survived: %+v", s.Entities)
	}
	if len(s.Graveyard.Corpses) != 1 || s.Graveyard.Corpses[0].Cause != state.CauseStarvation {
		t.Fatalf("graveyard=%+v", s.Graveyard)
	}
	died := events.Filter(evs, events.TypeEntityDied)
	if len(died) != 1 || died[0].Kind.(events.EntityDied).Cause != state.CauseStarvation {
		t.Fatalf("events=%v", events.Types(evs))
	}
}

func TestTick_OldAge(t *testing.T) {
	s := state.New()
	w := state.NewWorker("elder", state.OriginTile)
	w.Age = w.MaxAge - 1
	s.AddEntity(w)
	New(1).Tick(s)
	if len(s.Graveyard.Corpses) != 1 || s.Graveyard.Corpses[0].Cause != state.CauseOldAge {
		t.Fatalf("graveyard=%+v", s.Graveyard)
	}
}

func TestTick_VisitorDepartsWithGift(t *testing.T) {
	s := state.New()
	v := state.NewWanderer("v_000001")
	v.Age = v.MaxAge - 1
	s.AddEntity(v)

	evs := New(1).Tick(s)
	if len(s.Entities) != 0 || len(s.Graveyard.Corpses) != 0 {
		t.Fatalf("visitor should depart without a corpse")
	}
	if s.Resources.Get("strange_matter") != 1 {
		t.Fatalf("gift not applied: %v", s.Resources)
	}
	dep := events.Filter(evs, events.TypeVisitorDeparted)
	if len(dep) != 1 {
		t.Fatalf("events=%v", events.Types(evs))
	}
	k := dep[0].Kind.(events.VisitorDeparted)
	if k.VisitorType != state.VisitorWanderer || k.Name != "A Wanderer" || k.Gift["strange_matter"] != 1 {
		t.Fatalf("departed=%+v", k)
	}
}

func TestTick_HungryVisitorTransformsInfluence(t *testing.T) {
	s := state.New()
	h := state.NewHungry("v_00000a")
	h.Hunger = 40
	s.AddEntity(h)
	s.Resources["influence"] = 1

	evs := New(1).Tick(s)
	if !approx(s.Resources.Get("influence"), 0.9) || !approx(s.Resources.Get("strange_matter"), 0.05) {
		t.Fatalf("resources=%v", s.Resources)
	}
	if !approx(s.Entities[0].Hunger, 59.5) {
		t.Fatalf("hunger=%v", s.Entities[0].Hunger)
	}
	if len(events.Filter(evs, events.TypeInfluenceTransformed)) != 1 || len(events.Filter(evs, events.TypeEntityAte)) != 0 {
		t.Fatalf("events=%v", events.Types(evs))
	}
}

func TestTick_ActionCompletes(t *testing.T) {
	s := state.New()
	s.Queues.Enqueue(state.Action{
		ID: "a1", Type: "dig", TicksRemaining: 2,
		Effects: &state.ActionEffects{Resources: map[string]float64{"ore": 5}},
	})
	e := New(1)

	evs := e.Tick(s)
	if len(s.Queues.Actions) != 1 || s.Queues.Actions[0].TicksRemaining != 1 || len(events.Filter(evs, events.TypeActionComplete)) != 0 {
		t.Fatalf("after first tick: %+v", s.Queues.Actions)
	}
	evs = e.Tick(s)
	if len(s.Queues.Actions) != 0 || s.Resources.Get("ore") != 5 {
		t.Fatalf("after second tick: actions=%+v ore=%v", s.Queues.Actions, s.Resources.Get("ore"))
	}
	done := events.Filter(evs, events.TypeActionComplete)
	if len(done) != 1 || done[0].Kind.(events.ActionComplete).ActionID != "a1" {
		t.Fatalf("events=%v", events.Types(evs))
	}
}

func TestResourceConservation(t *testing.T) {
	s := state.New()
	s.Resources["dirt"] = 10
	s.Systems["dig_site"] = state.NewGenerator("Dig Site", map[string]float64{"dirt": 0.02})
	s.Systems[state.CompostHeap] = state.NewConverter("Compost Heap",
		map[string]float64{"dirt": 0.005}, map[string]float64{"nutrients": 0.01})

	e := New(3)
	const ticks = 1000
	for range ticks {
		e.Tick(s)
	}
	if !approx(s.Resources.Get("dirt"), 10+0.015*ticks) {
		t.Fatalf("dirt=%v", s.Resources.Get("dirt"))
	}
	if !approx(s.Resources.Get("nutrients"), 0.01*ticks) {
		t.Fatalf("nutrients=%v", s.Resources.Get("nutrients"))
	}
}

func TestSystems_EligibilityUsesStartOfPhase(t *testing.T) {
	// "b_mill" needs flour that "a_grind" only makes this tick.
	s := state.New()
	s.Resources["grain"] = 1
	s.Systems["a_grind"] = state.NewConverter("Grind", map[string]float64{"grain": 1}, map[string]float64{"flour": 1})
	s.Systems["b_mill"] = state.NewConverter("Mill", map[string]float64{"flour": 1}, map[string]float64{"bread": 1})

	evs := New(1).Tick(s)
	if s.Resources.Get("flour") != 1 || s.Resources.Get("bread") != 0 {
		t.Fatalf("resources=%v", s.Resources)
	}
	if got := events.Filter(evs, events.TypeSystemProduced); len(got) != 1 {
		t.Fatalf("system events=%d", len(got))
	}
}

func TestSystems_CorpseBoostAddsNutrients(t *testing.T) {
	s := state.New()
	heap := state.NewGenerator("Compost Heap", map[string]float64{"nutrients": 0.01})
	heap.Boosts = []state.CorpseBoost{{ExpiresAtTick: 2, Bonus: 0.1}, {ExpiresAtTick: 1, Bonus: 5}}
	s.Systems[state.CompostHeap] = heap

	New(1).Tick(s)
	if !approx(s.Resources.Get("nutrients"), 0.11) {
		t.Fatalf("nutrients=%v", s.Resources.Get("nutrients"))
	}
	if len(heap.Boosts) != 1 {
		t.Fatalf("boosts=%+v", heap.Boosts)
	}
}

func TestThresholds_FireOnceUpward(t *testing.T) {
	s := state.New()
	s.Resources["dirt"] = 9.9
	s.Systems["dig_site"] = state.NewGenerator("Dig Site", map[string]float64{"dirt": 0.2})
	e := New(1)

	evs := events.Filter(e.Tick(s), events.TypeThresholdCrossed)
	if len(evs) != 1 || evs[0].Kind.(events.ThresholdCrossed).Threshold != 10 {
		t.Fatalf("thresholds=%+v", evs)
	}
	if evs := events.Filter(e.Tick(s), events.TypeThresholdCrossed); len(evs) != 0 {
		t.Fatalf("threshold refired without dropping: %+v", evs)
	}

	s.Resources["dirt"] = 9.9
	evs = events.Filter(e.Tick(s), events.TypeThresholdCrossed)
	if len(evs) != 1 || evs[0].Kind.(events.ThresholdCrossed).Threshold != 10 {
		t.Fatalf("threshold should refire after dropping: %+v", evs)
	}
}

func TestBlightLifecycle(t *testing.T) {
	s := state.New()
	tile := state.NewCompostTile("The Heap", 1, 0)
	tile.AddContamination(1)
	s.Map.AddTile(state.CompostTile, tile)
	s.Map.Connect(state.OriginTile, state.CompostTile)
	consumes := map[string]float64{"dirt": 0.005}
	generates := map[string]float64{"nutrients": 0.01}
	heap := state.NewConverter("Compost Heap", consumes, generates)
	heap.Boosts = []state.CorpseBoost{{ExpiresAtTick: 1000, Bonus: 0.1}}
	s.Systems[state.CompostHeap] = heap
	s.AddEntity(state.NewWorker("onheap", state.CompostTile))
	s.AddEntity(state.NewWorker("safe", state.OriginTile))

	e := New(5)
	evs := e.Tick(s)
	if !tile.IsBlighted() || len(events.Filter(evs, events.TypeBlightStruck)) != 1 {
		t.Fatalf("blight did not strike: %v", events.Types(evs))
	}
	if !heap.IsDisabled() || len(heap.Boosts) != 0 {
		t.Fatalf("heap should be disabled and boosts cleared: %+v", heap)
	}
	kills := events.Filter(evs, events.TypeBlightKill)
	if len(kills) != 1 || kills[0].Kind.(events.BlightKill).EntityID != "onheap" {
		t.Fatalf("kills=%+v", kills)
	}
	if len(s.Entities) != 1 || s.Entities[0].ID != "safe" {
		t.Fatalf("entities=%+v", s.Entities)
	}
	if c := s.Graveyard.Corpses; len(c) != 1 || c[0].Cause != state.CauseBlight {
		t.Fatalf("graveyard=%+v", c)
	}

	duration := e.Tuning().Corpses.BlightDurationTicks
	for i := uint64(1); i < duration; i++ {
		if evs := e.Tick(s); len(events.Filter(evs, events.TypeBlightCleared)) != 0 {
			t.Fatalf("blight cleared early at tick %d", s.Tick)
		}
	}
	evs = e.Tick(s)
	if len(events.Filter(evs, events.TypeBlightCleared)) != 1 {
		t.Fatalf("blight should clear at tick %d: %v", s.Tick, events.Types(evs))
	}
	if tile.IsBlighted() || tile.ContaminationLevel() != 0 {
		t.Fatalf("tile after clear: %+v", tile)
	}
	live, ok := heap.Live()
	if !ok || live.Consumes["dirt"] != 0.005 || live.Generates["nutrients"] != 0.01 {
		t.Fatalf("heap rates not restored: %+v", heap.Mode)
	}
}

func TestUndertakerProcessesCorpse(t *testing.T) {
	// No contamination means no blight roll can clear the boost.
	tune := tuning.Defaults()
	tune.Corpses.ContaminationPerCorpse = 0
	s := state.New()
	s.Map.AddTile(state.CompostTile, state.NewCompostTile("The Heap", 1, 0))
	heap := state.NewGenerator("Compost Heap", map[string]float64{"nutrients": 0.01})
	s.Systems[state.CompostHeap] = heap
	s.AddEntity(state.NewUndertaker("u1", state.OriginTile))
	s.Graveyard.AddCorpse(state.Corpse{EntityID: "dead", EntityType: "ant", DeathTick: 0, Cause: state.CauseOldAge, Tile: state.OriginTile})

	e := NewWithTuning(9, tune)
	e.Tick(s)
	work := s.Entities[0].Ant.Work
	if work == nil || !work.Processing || s.Graveyard.HasCorpses() {
		t.Fatalf("undertaker should have picked up the corpse: %+v", work)
	}

	need := tune.Corpses.ProcessingTicks
	var processed []events.Event
	for i := uint64(0); i < need; i++ {
		processed = append(processed, events.Filter(e.Tick(s), events.TypeCorpseProcessed)...)
	}
	if len(processed) != 1 {
		t.Fatalf("processed events=%d", len(processed))
	}
	k := processed[0].Kind.(events.CorpseProcessed)
	if k.UndertakerID != "u1" || k.TotalProcessed != 1 || k.Contamination != 0 {
		t.Fatalf("processed=%+v", k)
	}
	if s.Entities[0].Ant.Work.Processing {
		t.Fatalf("undertaker should be idle again")
	}
	if len(heap.Boosts) != 1 || heap.Boosts[0].ExpiresAtTick != s.Tick+tune.Corpses.BoostDurationTicks || heap.Boosts[0].Bonus != tune.Corpses.NutrientBoost {
		t.Fatalf("boosts=%+v tick=%d", heap.Boosts, s.Tick)
	}
}

func TestUndertakerContaminatesCompostTile(t *testing.T) {
	tune := tuning.Defaults()
	tune.Corpses.ProcessingTicks = 2
	s := state.New()
	s.Map.AddTile(state.CompostTile, state.NewCompostTile("The Heap", 1, 0))
	s.Systems[state.CompostHeap] = state.NewGenerator("Compost Heap", map[string]float64{"nutrients": 0.01})
	u := state.NewUndertaker("u1", state.OriginTile)
	u.Ant.Work = &state.CorpseWork{Processing: true, Ticks: 1}
	s.AddEntity(u)

	evs := events.Filter(NewWithTuning(3, tune).Tick(s), events.TypeCorpseProcessed)
	if len(evs) != 1 {
		t.Fatalf("processed events=%d", len(evs))
	}
	// The event carries the level after this corpse, before any blight roll.
	if k := evs[0].Kind.(events.CorpseProcessed); !approx(k.Contamination, tune.Corpses.ContaminationPerCorpse) {
		t.Fatalf("contamination=%v", k.Contamination)
	}
}

func TestUndertakersIdleWhileBlighted(t *testing.T) {
	tune := tuning.Defaults()
	tune.Corpses.ContaminationPerCorpse = 0
	need := tune.Corpses.ProcessingTicks

	s := state.New()
	tile := state.NewCompostTile("The Heap", 1, 0)
	tile.StartBlight(5)
	s.Map.AddTile(state.CompostTile, tile)
	heap := state.NewGenerator("Compost Heap", map[string]float64{"nutrients": 0.01})
	heap.Disable()
	s.Systems[state.CompostHeap] = heap
	busy := state.NewUndertaker("busy", state.OriginTile)
	busy.Ant.Work = &state.CorpseWork{Processing: true, Ticks: need - 1}
	s.AddEntity(busy)
	s.AddEntity(state.NewUndertaker("idle", state.OriginTile))
	s.Graveyard.AddCorpse(state.Corpse{EntityID: "dead", EntityType: "ant", Cause: state.CauseStarvation, Tile: state.OriginTile})
	s.Graveyard.TotalProcessed = 3

	e := NewWithTuning(11, tune)
	// The blight clears during tick 5, after the undertaker phase has run.
	for i := 1; i <= 5; i++ {
		evs := e.Tick(s)
		if n := len(events.Filter(evs, events.TypeCorpseProcessed)); n != 0 {
			t.Fatalf("tick %d: corpse processed while blighted", s.Tick)
		}
		if w := s.Entities[0].Ant.Work; !w.Processing || w.Ticks != need-1 {
			t.Fatalf("tick %d: busy undertaker advanced: %+v", s.Tick, w)
		}
		if w := s.Entities[1].Ant.Work; w != nil && w.Processing {
			t.Fatalf("tick %d: idle undertaker picked up a corpse", s.Tick)
		}
		if len(s.Graveyard.Corpses) != 1 || s.Graveyard.TotalProcessed != 3 || len(heap.Boosts) != 0 {
			t.Fatalf("tick %d: graveyard=%+v boosts=%+v", s.Tick, s.Graveyard, heap.Boosts)
		}
	}
	if tile.IsBlighted() || heap.IsDisabled() {
		t.Fatalf("blight should have cleared: tile=%+v", tile)
	}

	evs := events.Filter(e.Tick(s), events.TypeCorpseProcessed)
	if len(evs) != 1 || evs[0].Kind.(events.CorpseProcessed).UndertakerID != "busy" {
		t.Fatalf("processed after clear=%+v", evs)
	}
	if s.Graveyard.TotalProcessed != 4 || len(heap.Boosts) != 1 {
		t.Fatalf("graveyard=%+v boosts=%+v", s.Graveyard, heap.Boosts)
	}
	if w := s.Entities[1].Ant.Work; w == nil || !w.Processing || s.Graveyard.HasCorpses() {
		t.Fatalf("idle undertaker should resume pickup: %+v", w)
	}
}

func TestQueen_EmergencySpawn(t *testing.T) {
	s := state.New()
	s.Resources["nutrients"] = 20
	s.Resources["fungus"] = 20
	s.Systems[state.QueenChamber] = state.NewSystem("Queen's Chamber", state.SystemSpawner)

	e := New(42)
	evs := e.Tick(s)
	em := events.Filter(evs, events.TypeEmergencySpawn)
	if len(em) != 1 || len(s.Entities) != 2 {
		t.Fatalf("events=%v entities=%d", events.Types(evs), len(s.Entities))
	}
	if s.Entities[0].Role() != state.RoleWorker || s.Entities[1].Role() != state.RoleUndertaker {
		t.Fatalf("roles: %s %s", s.Entities[0].Role(), s.Entities[1].Role())
	}
	if s.Resources.Get("nutrients") != 10 || s.Resources.Get("fungus") != 10 || e.LastSpawnTick() != 1 {
		t.Fatalf("resources=%v last_spawn=%d", s.Resources, e.LastSpawnTick())
	}
}

func TestQueen_SpawnAfterInterval(t *testing.T) {
	tune := tuning.Defaults()
	tune.Spawn.IntervalTicks = 5
	s := state.New()
	s.Resources["nutrients"] = 100
	s.Resources["fungus"] = 100
	s.Systems[state.QueenChamber] = state.NewSystem("Queen's Chamber", state.SystemSpawner)
	s.AddEntity(state.NewWorker("w", state.OriginTile))

	e := NewWithTuning(1, tune)
	e.Tick(s)
	if e.LastSpawnTick() != 1 || len(s.Entities) != 1 {
		t.Fatalf("first tick should only set the baseline")
	}
	for range 4 {
		if evs := e.Tick(s); len(events.Filter(evs, events.TypeAntsSpawned)) != 0 {
			t.Fatalf("spawned before interval at tick %d", s.Tick)
		}
	}
	evs := e.Tick(s)
	if len(events.Filter(evs, events.TypeAntsSpawned)) != 1 || len(s.Entities) != 3 || e.LastSpawnTick() != 6 {
		t.Fatalf("tick %d events=%v entities=%d", s.Tick, events.Types(evs), len(s.Entities))
	}
}

func TestReceiver_SummonAndCooldown(t *testing.T) {
	s := state.New()
	s.Resources["influence"] = 10
	s.Systems[state.Receiver] = state.NewSystem("The Receiver", state.SystemAntenna)

	e := New(1234)
	evs := e.Tick(s)
	spent := events.Filter(evs, events.TypeInfluenceSpent)
	if len(spent) != 1 || e.LastSummonTick() != 1 {
		t.Fatalf("events=%v", events.Types(evs))
	}
	if !approx(s.Resources.Get("influence"), 10-0.0005-2) {
		t.Fatalf("influence=%v", s.Resources.Get("influence"))
	}
	ok := spent[0].Kind.(events.InfluenceSpent).Success
	arrived := len(events.Filter(evs, events.TypeVisitorArrived))
	failed := len(events.Filter(evs, events.TypeSummoningFailed))
	if (ok && (arrived != 1 || len(s.Entities) != 1)) || (!ok && failed != 1) {
		t.Fatalf("success=%v events=%v", ok, events.Types(evs))
	}
	if ok && s.Entities[0].Tile != state.ReceiverTile {
		t.Fatalf("visitor tile=%s", s.Entities[0].Tile)
	}

	evs = e.Tick(s)
	if len(events.Filter(evs, events.TypeInfluenceSpent)) != 0 {
		t.Fatalf("summoned during cooldown")
	}
}

func TestReceiver_MaintenanceSilenceAndRestore(t *testing.T) {
	s := state.New()
	s.Systems[state.Receiver] = state.NewSystem("The Receiver", state.SystemAntenna)
	s.Meta.Goals[state.MaintenanceGoal] = json.RawMessage(`{"last_maintained":0,"maintenance_interval_ticks":10}`)

	e := New(1)
	for range 9 {
		e.Tick(s)
	}
	if s.Meta.ReceiverSilent {
		t.Fatalf("silenced before the interval")
	}
	evs := e.Tick(s)
	if !s.Meta.ReceiverSilent || len(events.Filter(evs, events.TypeReceiverSilent)) != 1 {
		t.Fatalf("tick 10 should silence: %v", events.Types(evs))
	}
	if s.Meta.ReceiverFailedTick == nil || *s.Meta.ReceiverFailedTick != 10 {
		t.Fatalf("failed tick=%v", s.Meta.ReceiverFailedTick)
	}
	if evs := e.Tick(s); len(events.Filter(evs, events.TypeReceiverSilent)) != 0 {
		t.Fatalf("silence reported twice")
	}

	s.Resources["strange_matter"] = 2
	evs = e.Tick(s)
	if s.Meta.ReceiverSilent || len(events.Filter(evs, events.TypeReceiverRestored)) != 1 {
		t.Fatalf("receiver not restored: %v", events.Types(evs))
	}
	if s.Resources.Get("strange_matter") != 0 {
		t.Fatalf("strange_matter=%v", s.Resources.Get("strange_matter"))
	}
	g, _ := s.Meta.Goal(state.MaintenanceGoal)
	if last, ok := g.Uint("last_maintained"); !ok || last != s.Tick {
		t.Fatalf("last_maintained=%d want %d", last, s.Tick)
	}
}

func TestReceiver_NoGoalSkipsMaintenance(t *testing.T) {
	s := state.New()
	s.Systems[state.Receiver] = state.NewSystem("The Receiver", state.SystemAntenna)
	e := New(1)
	for range 5000 {
		e.Tick(s)
	}
	if s.Meta.ReceiverSilent {
		t.Fatalf("receiver silenced without a maintenance goal")
	}
}

func TestVisitorPassiveGeneration(t *testing.T) {
	s := state.New()
	s.AddEntity(state.NewObserver("v_000002"))
	s.Resources["crystals"] = 10

	evs := New(1).Tick(s)
	gen := events.Filter(evs, events.TypePassiveGeneration)
	if len(gen) != 1 || !approx(s.Resources.Get("insight"), 0.001) {
		t.Fatalf("events=%v insight=%v", events.Types(evs), s.Resources.Get("insight"))
	}
}

func TestBoredom(t *testing.T) {
	s := state.New()
	e := New(1)
	var high []events.Event
	for range 60 {
		high = append(high, events.Filter(e.Tick(s), events.TypeBoredomHigh)...)
	}
	if len(high) != 1 || high[0].Tick != 60 || high[0].Kind.(events.BoredomHigh).Level != 60 {
		t.Fatalf("boredom events=%+v", high)
	}
	if s.Meta.Boredom != 0 {
		t.Fatalf("boredom not reset: %d", s.Meta.Boredom)
	}

	s.Meta.Boredom = 5
	s.Queues.Enqueue(state.Action{ID: "x", Type: "wait", TicksRemaining: 10})
	e.Tick(s)
	if s.Meta.Boredom != 4 {
		t.Fatalf("boredom should decay while busy: %d", s.Meta.Boredom)
	}
}

func TestSampleStateTicks(t *testing.T) {
	s := loadSampleState(t)
	initial := s.Resources.Get("dirt")
	e := New(42)
	for range 100 {
		e.Tick(s)
	}
	if s.Tick != 104200 {
		t.Fatalf("tick=%d", s.Tick)
	}
	if d := s.Resources.Get("dirt") - initial; d <= 1 || d >= 2 {
		t.Fatalf("dirt delta=%v", d)
	}
	if len(s.Entities) == 0 {
		t.Fatalf("entities should survive with plenty of food")
	}
}
