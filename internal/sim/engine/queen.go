package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// processQueen spawns a worker and an undertaker at the origin. An empty
// colony gets an emergency spawn regardless of cooldown; otherwise spawns
// happen once per interval when nutrients and fungus allow.
func (r *tickRun) processQueen() {
	s := r.s
	if !s.HasSystem(state.QueenChamber) {
		return
	}
	spawn := r.e.tune.Spawn
	res := s.Resources
	affordable := res.Get(nutrients) >= spawn.MinResources && res.Get(fungus) >= spawn.MinResources

	if len(s.Entities) == 0 && affordable {
		workerID, undertakerID := r.spawnPair()
		r.emit(events.EmergencySpawn{WorkerID: workerID, UndertakerID: undertakerID})
		return
	}

	if r.e.lastSpawnTick == 0 {
		r.e.lastSpawnTick = r.tick
		return
	}
	if sinceTick(r.tick, r.e.lastSpawnTick) < spawn.IntervalTicks || !affordable {
		return
	}
	workerID, undertakerID := r.spawnPair()
	r.emit(events.AntsSpawned{
		WorkerID:          workerID,
		UndertakerID:      undertakerID,
		NutrientsConsumed: spawn.CostNutrients,
		FungusConsumed:    spawn.CostFungus,
	})
}

func (r *tickRun) spawnPair() (workerID, undertakerID string) {
	spawn := r.e.tune.Spawn
	workerID = r.rng.EntityID()
	undertakerID = r.rng.EntityID()
	r.s.AddEntity(state.NewWorker(workerID, state.OriginTile))
	r.s.AddEntity(state.NewUndertaker(undertakerID, state.OriginTile))
	r.s.Resources.Add(nutrients, -spawn.CostNutrients)
	r.s.Resources.Add(fungus, -spawn.CostFungus)
	r.e.lastSpawnTick = r.tick
	return workerID, undertakerID
}
