package state

import (
	"encoding/json"
	"strconv"
)

// MaintenanceGoal is the goals key the receiver maintenance check reads.
const MaintenanceGoal = "receiver_maintenance"

const DefaultSanity = 100.0

// Meta is bookkeeping outside the simulation proper. The engine reads only
// Boredom, the receiver fields and the maintenance goal; everything else is
// carried through untouched.
type Meta struct {
	Boredom            uint64
	Sanity             float64
	ReceiverSilent     bool
	ReceiverFailedTick *uint64

	Goals map[string]json.RawMessage

	RecentDecisions []json.RawMessage
	RejectedIdeas   []json.RawMessage
	FiredCards      []json.RawMessage
	Decor           []json.RawMessage
	Jewelry         []json.RawMessage
	Reflections     []json.RawMessage
	Estate          json.RawMessage

	// Extra keeps keys this version does not model.
	Extra map[string]json.RawMessage
}

func NewMeta() Meta {
	return Meta{Sanity: DefaultSanity, Goals: map[string]json.RawMessage{}}
}

// GoalFields is one goal record viewed as a JSON object.
type GoalFields map[string]json.RawMessage

// Goal returns the named goal. ok is false when the goal is absent; fields is
// nil when the goal exists but is not an object.
func (m *Meta) Goal(key string) (fields GoalFields, ok bool) {
	raw, ok := m.Goals[key]
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, true
	}
	return fields, true
}

// SetGoalField overwrites one field of an object-valued goal. Absent or
// non-object goals are left alone.
func (m *Meta) SetGoalField(key, field string, v any) error {
	fields, ok := m.Goal(key)
	if !ok || fields == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fields[field] = b
	out, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.Goals[key] = out
	return nil
}

// Uint reads a non-negative integer field.
func (g GoalFields) Uint(field string) (uint64, bool) {
	raw, ok := g[field]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (m Meta) Clone() Meta {
	c := m
	if m.ReceiverFailedTick != nil {
		v := *m.ReceiverFailedTick
		c.ReceiverFailedTick = &v
	}
	c.Goals = cloneRaw(m.Goals)
	c.RecentDecisions = cloneRawList(m.RecentDecisions)
	c.RejectedIdeas = cloneRawList(m.RejectedIdeas)
	c.FiredCards = cloneRawList(m.FiredCards)
	c.Decor = cloneRawList(m.Decor)
	c.Jewelry = cloneRawList(m.Jewelry)
	c.Reflections = cloneRawList(m.Reflections)
	if m.Estate != nil {
		c.Estate = append(json.RawMessage(nil), m.Estate...)
	}
	c.Extra = cloneRaw(m.Extra)
	return c
}
