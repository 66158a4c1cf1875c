package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// processVisitors applies passive generation, one event per resource.
func (r *tickRun) processVisitors() {
	for i := range r.s.Entities {
		ent := &r.s.Entities[i]
		if ent.Visitor == nil || ent.Visitor.Generates == nil {
			continue
		}
		gen := ent.Visitor.Generates
		for _, name := range state.SortedKeys(gen) {
			r.s.Resources.Add(name, gen[name])
			r.emit(events.PassiveGeneration{EntityID: ent.ID, Resource: name, Amount: gen[name]})
		}
	}
}

// checkThresholds reports every threshold a resource rose through since
// the start of the tick. Falling back below one never fires.
func (r *tickRun) checkThresholds(prev state.Resources) {
	for _, name := range r.s.Resources.Names() {
		before, now := prev.Get(name), r.s.Resources.Get(name)
		for _, th := range r.e.tune.ResourceThresholds {
			if before < th && now >= th {
				r.emit(events.ThresholdCrossed{Resource: name, Threshold: th, Current: now})
			}
		}
	}
}

// processBoredom climbs while both queues are idle and decays otherwise.
// Reaching the threshold reports the level and starts over.
func (r *tickRun) processBoredom() {
	m := &r.s.Meta
	if !r.s.Queues.HasActions() && len(r.s.Queues.Events) == 0 {
		m.Boredom++
	} else if m.Boredom > 0 {
		m.Boredom--
	}
	if m.Boredom >= r.e.tune.BoredomThreshold {
		r.emit(events.BoredomHigh{Level: m.Boredom})
		m.Boredom = 0
	}
}
