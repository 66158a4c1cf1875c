package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

const (
	influence     = "influence"
	strangeMatter = "strange_matter"
	nutrients     = "nutrients"
	fungus        = "fungus"
)

// processEntities ages and starves every entity, lets the hungry ones eat,
// then removes the dead. Dead ants go to the graveyard; dead visitors
// depart and leave their gift.
func (r *tickRun) processEntities() {
	s := r.s
	survivors := make([]state.Entity, 0, len(s.Entities))
	for _, ent := range s.Entities {
		ent.Age++
		ent.Hunger -= ent.HungerRate
		if ent.Hunger < r.e.tune.Entities.EatThreshold && ent.Food != "" {
			r.eat(&ent)
		}

		cause, dead := ent.CauseOfDeath()
		if !dead {
			survivors = append(survivors, ent)
			continue
		}
		if ent.Visitor != nil {
			r.depart(&ent)
			continue
		}
		s.Graveyard.AddCorpse(state.CorpseOf(&ent, r.tick, cause))
		r.emit(events.EntityDied{
			EntityID:   ent.ID,
			EntityType: string(ent.Class()),
			Cause:      cause,
			Tile:       ent.Tile,
		})
	}
	s.Entities = survivors
}

func (r *tickRun) eat(ent *state.Entity) {
	res := r.s.Resources
	tune := r.e.tune
	if ent.Food == influence && ent.Subtype() == state.VisitorHungry {
		hungry := tune.Hungry
		if !res.Has(influence, hungry.InfluenceConsume) {
			return
		}
		res.Add(influence, -hungry.InfluenceConsume)
		ent.Hunger = min(ent.Hunger+hungry.HungerGain, tune.Entities.MaxHunger)
		if ent.Visitor.TransformsFood() {
			res.Add(strangeMatter, hungry.StrangeMatterProduce)
			r.emit(events.InfluenceTransformed{
				VisitorID:             ent.ID,
				InfluenceConsumed:     hungry.InfluenceConsume,
				StrangeMatterProduced: hungry.StrangeMatterProduce,
			})
		}
		return
	}
	if !res.TryConsume(ent.Food, tune.Entities.FoodPerMeal) {
		return
	}
	ent.Hunger = min(ent.Hunger+tune.Entities.HungerGainFromEating, tune.Entities.MaxHunger)
	r.emit(events.EntityAte{EntityID: ent.ID, Food: ent.Food, HungerAfter: ent.Hunger})
}

func (r *tickRun) depart(ent *state.Entity) {
	var gift map[string]float64
	if ent.Visitor.GiftOnDeath != nil {
		gift = copyRates(ent.Visitor.GiftOnDeath)
		r.s.Resources.AddAll(gift)
	}
	vt := ent.Visitor.Subtype
	if vt == "" {
		vt = state.VisitorWanderer
	}
	r.emit(events.VisitorDeparted{
		VisitorID:   ent.ID,
		VisitorType: vt,
		Name:        ent.Name,
		Gift:        gift,
	})
}
