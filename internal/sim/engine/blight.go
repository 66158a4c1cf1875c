package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// processBlight runs the compost tile's blight state machine. An active
// blight only counts down this tick; otherwise contamination is the chance
// of a new one. A strike disables the heap and kills everyone on the tile.
func (r *tickRun) processBlight() {
	s := r.s
	tile, ok := s.Map.Tile(state.CompostTile)
	if !ok {
		return
	}
	if tile.IsBlighted() {
		if tile.TickBlight() {
			r.emit(events.BlightCleared{Tile: state.CompostTile})
			if heap, ok := s.System(state.CompostHeap); ok {
				heap.Enable()
			}
		}
		return
	}

	contamination := tile.ContaminationLevel()
	if contamination <= 0 || !r.rng.Chance(contamination) {
		return
	}
	duration := r.e.tune.Corpses.BlightDurationTicks
	tile.StartBlight(duration)
	r.emit(events.BlightStruck{Tile: state.CompostTile, Contamination: contamination, DurationTicks: duration})

	if heap, ok := s.System(state.CompostHeap); ok {
		heap.Disable()
		heap.Boosts = nil
	}

	survivors := s.Entities[:0:0]
	for _, ent := range s.Entities {
		if ent.Tile != state.CompostTile {
			survivors = append(survivors, ent)
			continue
		}
		r.emit(events.BlightKill{EntityID: ent.ID, Tile: state.CompostTile})
		s.Graveyard.AddCorpse(state.CorpseOf(&ent, r.tick, state.CauseBlight))
	}
	s.Entities = survivors
}
