package engine

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// processActions counts every queued action down. An action with one tick (or
// none) left completes now: it is removed, reported, then its effects land.
func (r *tickRun) processActions() {
	q := &r.s.Queues
	if len(q.Actions) == 0 {
		return
	}
	remaining := make([]state.Action, 0, len(q.Actions))
	for _, a := range q.Actions {
		if a.TicksRemaining > 1 {
			a.TicksRemaining--
			remaining = append(remaining, a)
			continue
		}
		r.emit(events.ActionComplete{ActionID: a.ID, ActionType: a.Type})
		if a.Effects != nil && a.Effects.Resources != nil {
			r.s.Resources.AddAll(a.Effects.Resources)
		}
	}
	q.Actions = remaining
}
