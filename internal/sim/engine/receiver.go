package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

var visitorArchetypes = [...]state.VisitorType{
	state.VisitorWanderer,
	state.VisitorObserver,
	state.VisitorHungry,
}

// processReceiver keeps the receiver maintained and, while it listens,
// spends influence to summon visitors from outside.
func (r *tickRun) processReceiver() {
	s := r.s
	if !s.HasSystem(state.Receiver) {
		return
	}
	r.maintainReceiver()
	if s.Meta.ReceiverSilent {
		return
	}

	rc := r.e.tune.Receiver
	res := s.Resources
	if res.Get(influence) > rc.ListeningDrain {
		res.Add(influence, -rc.ListeningDrain)
	}
	if res.Get(influence) < rc.SummonCost {
		return
	}
	if r.e.lastSummonTick > 0 && sinceTick(r.tick, r.e.lastSummonTick) < rc.SummonCooldownTicks {
		return
	}

	res.Add(influence, -rc.SummonCost)
	r.e.lastSummonTick = r.tick
	success := r.rng.Chance(rc.SummonChance)
	r.emit(events.InfluenceSpent{Amount: rc.SummonCost, Success: success})
	if !success {
		r.emit(events.SummoningFailed{})
		return
	}

	vt := visitorArchetypes[r.rng.Range(0, uint64(len(visitorArchetypes)-1))]
	v := state.NewVisitor(vt, r.rng.VisitorID())
	s.AddEntity(v)
	r.emit(events.VisitorArrived{VisitorID: v.ID, VisitorType: vt, Name: v.Name})
}

// maintainReceiver feeds the receiver strange matter once per maintenance
// interval. Without it the receiver goes silent until strange matter is
// available again. A colony with no maintenance goal skips upkeep.
func (r *tickRun) maintainReceiver() {
	s := r.s
	goal, ok := s.Meta.Goal(state.MaintenanceGoal)
	if !ok {
		return
	}
	rc := r.e.tune.Receiver
	last, ok := goal.Uint("last_maintained")
	if !ok {
		last = r.tick
	}
	interval, ok := goal.Uint("maintenance_interval_ticks")
	if !ok {
		interval = rc.MaintenanceIntervalTicks
	}

	res := s.Resources
	if sinceTick(r.tick, last) >= interval {
		if res.TryConsume(strangeMatter, rc.MaintenanceCostStrangeMatter) {
			r.stampMaintained()
		} else if !s.Meta.ReceiverSilent {
			s.Meta.ReceiverSilent = true
			failed := r.tick
			s.Meta.ReceiverFailedTick = &failed
			r.emit(events.ReceiverSilent{})
		}
	}

	if s.Meta.ReceiverSilent && res.TryConsume(strangeMatter, rc.MaintenanceCostStrangeMatter) {
		s.Meta.ReceiverSilent = false
		r.stampMaintained()
		r.emit(events.ReceiverRestored{})
	}
}

func (r *tickRun) stampMaintained() {
	// A uint64 always marshals.
	_ = r.s.Meta.SetGoalField(state.MaintenanceGoal, "last_maintained", r.tick)
}
