package state

import "encoding/json"

// Action is a queued command that completes after TicksRemaining ticks.
// Fields the engine does not know are kept in Extra and written back as-is.
type Action struct {
	ID             string
	Type           string
	TicksRemaining uint64
	Effects        *ActionEffects
	Extra          map[string]json.RawMessage
}

type ActionEffects struct {
	// Resources is applied on completion; nil means absent.
	Resources map[string]float64
	Extra     map[string]json.RawMessage
}

// Queues holds pending actions and the plugin layer's opaque events.
type Queues struct {
	Actions []Action
	Events  []json.RawMessage
}

func (q *Queues) Enqueue(a Action) { q.Actions = append(q.Actions, a) }

func (q *Queues) HasActions() bool { return len(q.Actions) > 0 }

func (a Action) Clone() Action {
	c := a
	c.Extra = cloneRaw(a.Extra)
	if a.Effects != nil {
		e := ActionEffects{Resources: cloneRates(a.Effects.Resources), Extra: cloneRaw(a.Effects.Extra)}
		c.Effects = &e
	}
	return c
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func cloneRawList(l []json.RawMessage) []json.RawMessage {
	if l == nil {
		return nil
	}
	out := make([]json.RawMessage, len(l))
	for i, v := range l {
		out[i] = append(json.RawMessage(nil), v...)
	}
	return out
}
