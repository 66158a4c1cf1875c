package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// OfflineTicks is how many catch-up ticks ApplyOffline would run for a save
// taken at lastSave and resumed at now. Zero means the gap is ignored.
func (e *Engine) OfflineTicks(lastSave *float64, now float64) uint64 {
	if lastSave == nil {
		return 0
	}
	elapsed := now - *lastSave
	// NaN fails every comparison, so it lands here too.
	if !(elapsed > 0) {
		return 0
	}
	off := e.tune.Offline
	ticks := off.MaxTicks
	if elapsed < float64(off.MaxTicks) {
		ticks = uint64(elapsed)
	}
	if ticks < off.MinTicks {
		return 0
	}
	return ticks
}

// ApplyOffline approximates the seconds elapsed since the last save, one tick
// per second up to a cap. Only systems and entity upkeep run: hunger drains
// at a reduced rate, entities eat when they can, and the dead are dropped
// without corpses or events. It is a throughput estimate, not a replay.
//
// The returned slice is always empty.
func (e *Engine) ApplyOffline(s *state.GameState, now float64) []events.Event {
	ticks := e.OfflineTicks(s.LastSaveTimestamp, now)
	if s.Resources == nil {
		s.Resources = state.Resources{}
	}
	ent := e.tune.Entities
	factor := e.tune.Offline.HungerFactor
	for range ticks {
		s.Tick++
		for _, op := range plannedOps(s, nil) {
			applyOp(s.Resources, op)
		}

		alive := s.Entities[:0]
		for _, en := range s.Entities {
			en.Age++
			en.Hunger -= en.HungerRate * factor
			if en.Hunger < ent.EatThreshold && en.Food != "" && s.Resources.TryConsume(en.Food, ent.FoodPerMeal) {
				en.Hunger = min(en.Hunger+ent.HungerGainFromEating, ent.MaxHunger)
			}
			if en.Hunger > 0 && en.Age < en.MaxAge {
				alive = append(alive, en)
			}
		}
		s.Entities = alive
	}
	return []events.Event{}
}
