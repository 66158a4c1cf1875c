// Package engine advances a colony snapshot one tick at a time.
//
// A tick is a fixed pipeline of phases run in order. Later phases read what
// earlier ones wrote, so the order is part of the contract. The engine does
// no I/O; it mutates the state it is handed and returns the tick's events.
package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/rng"
	"anthill.game/internal/sim/state"
	"anthill.game/internal/sim/tuning"
)

// Engine holds the seed and the spawn/summon bookkeeping that lives outside
// the snapshot. One Engine drives one GameState; engines share nothing.
type Engine struct {
	seed uint64
	tune tuning.Tuning

	// Zero means "never".
	lastSpawnTick  uint64
	lastSummonTick uint64
}

// Bookkeeping is the engine-side state a snapshot file carries so a resumed
// engine continues exactly where it stopped.
type Bookkeeping struct {
	Seed           uint64 `json:"seed"`
	LastSpawnTick  uint64 `json:"last_spawn_tick"`
	LastSummonTick uint64 `json:"last_summon_tick"`
}

func New(seed uint64) *Engine { return NewWithTuning(seed, tuning.Defaults()) }

func NewWithTuning(seed uint64, tune tuning.Tuning) *Engine {
	return &Engine{seed: seed, tune: tune}
}

// Restore rebuilds an engine from saved bookkeeping.
func Restore(b Bookkeeping, tune tuning.Tuning) *Engine {
	return &Engine{
		seed:           b.Seed,
		tune:           tune,
		lastSpawnTick:  b.LastSpawnTick,
		lastSummonTick: b.LastSummonTick,
	}
}

func (e *Engine) Seed() uint64           { return e.seed }
func (e *Engine) Tuning() tuning.Tuning  { return e.tune }
func (e *Engine) LastSpawnTick() uint64  { return e.lastSpawnTick }
func (e *Engine) LastSummonTick() uint64 { return e.lastSummonTick }

func (e *Engine) Bookkeeping() Bookkeeping {
	return Bookkeeping{Seed: e.seed, LastSpawnTick: e.lastSpawnTick, LastSummonTick: e.lastSummonTick}
}

// tickRun is the scratch state of one Tick call.
type tickRun struct {
	e    *Engine
	s    *state.GameState
	tick uint64
	rng  *rng.SeededRNG
	evs  []events.Event
}

func (r *tickRun) emit(k events.Kind) {
	r.evs = append(r.evs, events.New(r.tick, k))
}

// Tick advances s by one tick and returns what happened, in emission order.
func (e *Engine) Tick(s *state.GameState) []events.Event {
	s.Tick++
	r := &tickRun{
		e:    e,
		s:    s,
		tick: s.Tick,
		rng:  rng.FromTick(e.seed, s.Tick),
	}
	if s.Resources == nil {
		s.Resources = state.Resources{}
	}
	prev := s.Resources.Clone()

	r.processActions()
	r.processSystems()
	r.processEntities()
	r.processUndertakers()
	r.processBlight()
	r.processQueen()
	r.processReceiver()
	r.processVisitors()
	r.checkThresholds(prev)
	r.processBoredom()

	return r.evs
}

// sinceTick is now-then, or zero when then lies in the future.
func sinceTick(now, then uint64) uint64 {
	if now < then {
		return 0
	}
	return now - then
}
