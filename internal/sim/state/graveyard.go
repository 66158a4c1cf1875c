package state

type Corpse struct {
	EntityID   string     `json:"entity_id"`
	EntityType string     `json:"entity_type"`
	DeathTick  uint64     `json:"death_tick"`
	Cause      DeathCause `json:"cause"`
	Tile       string     `json:"tile"`
}

// Graveyard queues unprocessed corpses in arrival order.
type Graveyard struct {
	Corpses        []Corpse `json:"corpses"`
	TotalProcessed uint64   `json:"total_processed"`
}

func (g *Graveyard) AddCorpse(c Corpse) { g.Corpses = append(g.Corpses, c) }

func (g *Graveyard) HasCorpses() bool { return len(g.Corpses) > 0 }

// TakeCorpse pops the oldest corpse.
func (g *Graveyard) TakeCorpse() (Corpse, bool) {
	if len(g.Corpses) == 0 {
		return Corpse{}, false
	}
	c := g.Corpses[0]
	g.Corpses = append(g.Corpses[:0:0], g.Corpses[1:]...)
	return c, true
}

func (g *Graveyard) MarkProcessed() { g.TotalProcessed++ }

// CorpseOf records e as dead at tick.
func CorpseOf(e *Entity, tick uint64, cause DeathCause) Corpse {
	return Corpse{
		EntityID:   e.ID,
		EntityType: string(e.Class()),
		DeathTick:  tick,
		Cause:      cause,
		Tile:       e.Tile,
	}
}
