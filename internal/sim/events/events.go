// Package events defines the tagged records the tick engine emits.
//
// Events are pure output. The engine never reads them back; callers log,
// display or ignore them. On the wire every event is
//
//	{"tick": N, "kind": {"type": "<snake_case>", ...payload}}
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is one event payload. Type is the snake_case discriminant.
type Kind interface {
	Type() string
}

type Event struct {
	Tick uint64
	Kind Kind
}

func New(tick uint64, k Kind) Event { return Event{Tick: tick, Kind: k} }

func (e Event) Type() string {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.Type()
}

type wireEvent struct {
	Tick uint64          `json:"tick"`
	Kind json.RawMessage `json:"kind"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	kind, err := MarshalKind(e.Kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Tick: e.Tick, Kind: kind})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	k, err := UnmarshalKind(w.Kind)
	if err != nil {
		return err
	}
	e.Tick = w.Tick
	e.Kind = k
	return nil
}

// MarshalKind encodes a payload with its "type" tag as the first field.
func MarshalKind(k Kind) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("events: nil kind")
	}
	body, err := json.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("events: encode %s: %w", k.Type(), err)
	}
	tag, _ := json.Marshal(k.Type())

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalKind decodes a tagged payload produced by MarshalKind.
func UnmarshalKind(b []byte) (Kind, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return nil, err
	}
	decode, ok := registry[tag.Type]
	if !ok {
		return nil, fmt.Errorf("events: unknown kind %q", tag.Type)
	}
	k, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("events: decode %s: %w", tag.Type, err)
	}
	return k, nil
}

// Filter returns the events whose kind has the given type.
func Filter(evs []Event, typ string) []Event {
	var out []Event
	for _, e := range evs {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

// Types lists the discriminants in emission order, for logs and tests.
func Types(evs []Event) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type())
	}
	return out
}
