package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

type systemOp struct {
	id        string
	consumes  map[string]float64
	generates map[string]float64
}

// plannedOps decides which systems run this tick. Eligibility is judged
// against the resources as they stand before any system applies, so a
// system cannot feed another within the same tick.
func plannedOps(s *state.GameState, bonus func(id string, sys *state.System) float64) []systemOp {
	var ops []systemOp
	for _, id := range s.SystemIDs() {
		sys := s.Systems[id]
		live, ok := sys.Live()
		if !ok || !s.Resources.CanConsumeAll(live.Consumes) {
			continue
		}
		op := systemOp{
			id:        id,
			consumes:  copyRates(live.Consumes),
			generates: copyRates(live.Generates),
		}
		if bonus != nil {
			if b := bonus(id, sys); b > 0 {
				op.generates["nutrients"] += b
			}
		}
		ops = append(ops, op)
	}
	return ops
}

func applyOp(res state.Resources, op systemOp) {
	for _, name := range state.SortedKeys(op.consumes) {
		res.Add(name, -op.consumes[name])
	}
	res.AddAll(op.generates)
}

// processSystems runs every enabled system that can pay for itself. The
// compost heap adds its live corpse boosts to nutrient output.
func (r *tickRun) processSystems() {
	tick := r.tick
	ops := plannedOps(r.s, func(id string, sys *state.System) float64 {
		if id != state.CompostHeap {
			return 0
		}
		return sys.CorpseBonus(tick)
	})
	for _, op := range ops {
		applyOp(r.s.Resources, op)
		if len(op.consumes) > 0 || len(op.generates) > 0 {
			r.emit(events.SystemProduced{SystemID: op.id, Produced: op.generates, Consumed: op.consumes})
		}
	}
	for _, id := range r.s.SystemIDs() {
		r.s.Systems[id].ExpireBoosts(tick)
	}
}

// copyRates always returns a non-nil map.
func copyRates(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
