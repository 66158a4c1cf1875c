package engine

import "anthill.game/internal/sim/state"

// Attach infers spawn bookkeeping for a snapshot loaded without it: the
// youngest living ant is taken to be the most recent spawn.
func (e *Engine) Attach(s *state.GameState) {
	if len(s.Entities) == 0 {
		return
	}
	var youngest uint64
	found := false
	for i := range s.Entities {
		ent := &s.Entities[i]
		if ent.Class() != state.ClassAnt {
			continue
		}
		if !found || ent.Age < youngest {
			youngest, found = ent.Age, true
		}
	}
	e.lastSpawnTick = sinceTick(s.Tick, youngest)
}
