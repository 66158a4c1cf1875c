// Package state is the colony snapshot: the only data that survives between
// ticks and the sole unit of persistence.
package state

// GameState aggregates everything one tick reads and writes.
type GameState struct {
	Tick      uint64
	Resources Resources
	Systems   map[string]*System
	Entities  []Entity
	Map       GameMap
	Queues    Queues
	Meta      Meta
	Graveyard Graveyard

	// LastSaveTimestamp is wall-clock seconds; nil when never saved.
	LastSaveTimestamp *float64
}

// New returns an empty colony at tick zero holding only the origin tile.
func New() *GameState {
	return &GameState{
		Resources: Resources{},
		Systems:   map[string]*System{},
		Entities:  []Entity{},
		Map:       NewGameMap(),
		Meta:      NewMeta(),
	}
}

func (s *GameState) System(id string) (*System, bool) {
	sys, ok := s.Systems[id]
	return sys, ok
}

func (s *GameState) HasSystem(id string) bool {
	_, ok := s.Systems[id]
	return ok
}

// SystemIDs lists system ids in ascending order.
func (s *GameState) SystemIDs() []string { return SortedKeys(s.Systems) }

func (s *GameState) Entity(id string) (*Entity, bool) {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

func (s *GameState) AddEntity(e Entity) { s.Entities = append(s.Entities, e) }

func (s *GameState) CountClass(c EntityClass) int {
	n := 0
	for i := range s.Entities {
		if s.Entities[i].Class() == c {
			n++
		}
	}
	return n
}

func (s *GameState) SetLastSave(ts float64) { s.LastSaveTimestamp = &ts }

// Clone returns a deep copy that shares no mutable data with s.
func (s *GameState) Clone() *GameState {
	c := &GameState{
		Tick:      s.Tick,
		Resources: s.Resources.Clone(),
		Systems:   make(map[string]*System, len(s.Systems)),
		Entities:  make([]Entity, len(s.Entities)),
		Map:       s.Map.Clone(),
		Meta:      s.Meta.Clone(),
		Graveyard: Graveyard{
			Corpses:        append([]Corpse(nil), s.Graveyard.Corpses...),
			TotalProcessed: s.Graveyard.TotalProcessed,
		},
	}
	for id, sys := range s.Systems {
		c.Systems[id] = sys.Clone()
	}
	for i := range s.Entities {
		c.Entities[i] = s.Entities[i].Clone()
	}
	c.Queues.Actions = make([]Action, len(s.Queues.Actions))
	for i, a := range s.Queues.Actions {
		c.Queues.Actions[i] = a.Clone()
	}
	c.Queues.Events = cloneRawList(s.Queues.Events)
	if s.LastSaveTimestamp != nil {
		v := *s.LastSaveTimestamp
		c.LastSaveTimestamp = &v
	}
	return c
}
