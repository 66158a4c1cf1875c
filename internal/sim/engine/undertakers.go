package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// processUndertakers moves corpses from the graveyard to the compost heap.
// An idle undertaker picks up the oldest corpse; a busy one finishes after
// the processing time, boosting the heap and contaminating its tile.
// Nothing happens while the compost tile is blighted.
func (r *tickRun) processUndertakers() {
	s := r.s
	if t, ok := s.Map.Tile(state.CompostTile); ok && t.IsBlighted() {
		return
	}
	corpses := r.e.tune.Corpses
	for i := range s.Entities {
		ent := &s.Entities[i]
		if !ent.IsUndertaker() {
			continue
		}
		work := ent.Ant.Work
		if work == nil || !work.Processing {
			if s.Graveyard.HasCorpses() {
				s.Graveyard.TakeCorpse()
				ent.Ant.Work = &state.CorpseWork{Processing: true}
			}
			continue
		}

		work.Ticks++
		if work.Ticks < corpses.ProcessingTicks {
			continue
		}
		work.Processing = false
		work.Ticks = 0

		if heap, ok := s.System(state.CompostHeap); ok {
			heap.Boosts = append(heap.Boosts, state.CorpseBoost{
				ExpiresAtTick: r.tick + corpses.BoostDurationTicks,
				Bonus:         corpses.NutrientBoost,
			})
		}
		tile, ok := s.Map.Tile(state.CompostTile)
		if !ok {
			continue
		}
		tile.AddContamination(corpses.ContaminationPerCorpse)
		s.Graveyard.MarkProcessed()
		r.emit(events.CorpseProcessed{
			UndertakerID:   ent.ID,
			TotalProcessed: s.Graveyard.TotalProcessed,
			Contamination:  tile.ContaminationLevel(),
		})
	}
}
