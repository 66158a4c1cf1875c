package protocol_test

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"anthill.game/internal/protocol"
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	hello := `{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"viewer",
	  "capabilities":{"max_queue":8}
	}`
	if err := protocol.Validate(protocol.SchemaHello, []byte(hello)); err != nil {
		t.Fatalf("hello: %v", err)
	}

	act := `{
	  "type":"ACTION",
	  "protocol_version":"1.0",
	  "action":{"id":"a1","type":"dig","ticks_remaining":3,"effects":{"resources":{"dirt":5}}}
	}`
	if err := protocol.Validate(protocol.SchemaAction, []byte(act)); err != nil {
		t.Fatalf("action: %v", err)
	}

	tick, err := json.Marshal(protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            7,
		Digest:          "abc",
		Actions:         []state.Action{{ID: "a1", Type: "dig", TicksRemaining: 1}},
		Events:          []events.Event{events.New(7, events.ReceiverSilent{})},
	})
	if err != nil {
		t.Fatalf("marshal tick: %v", err)
	}
	if err := protocol.Validate(protocol.SchemaTick, tick); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func TestValidateState_SampleAndFresh(t *testing.T) {
	b, err := os.ReadFile("../sim/state/testdata/sample_state.json")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if err := protocol.ValidateState(b); err != nil {
		t.Fatalf("sample: %v", err)
	}

	fresh, err := state.Encode(state.New())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := protocol.ValidateState(fresh); err != nil {
		t.Fatalf("fresh: %v", err)
	}
}

func TestValidateState_ReportsLocations(t *testing.T) {
	doc := `{
	  "tick": -1,
	  "resources": {"dirt": "lots"},
	  "systems": {},
	  "entities": [{"id":"e1","type":"beetle","tile":"origin"}],
	  "map": {"tiles": {}, "connections": []},
	  "queues": {"actions": [], "events": []},
	  "meta": {}
	}`
	err := protocol.ValidateState([]byte(doc))
	var se *protocol.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	want := map[string]bool{"/tick": false, "/resources/dirt": false, "/entities/0/type": false}
	for _, is := range se.Issues {
		if _, ok := want[is.InstanceLocation]; ok {
			want[is.InstanceLocation] = true
		}
	}
	for loc, seen := range want {
		if !seen {
			t.Fatalf("missing issue at %s; issues=%+v", loc, se.Issues)
		}
	}
	if !strings.Contains(se.Error(), "/tick") {
		t.Fatalf("error text=%q", se.Error())
	}
}

func TestValidate_MissingRequiredAndGarbage(t *testing.T) {
	err := protocol.ValidateState([]byte(`{"tick":1}`))
	var se *protocol.SchemaError
	if !errors.As(err, &se) || len(se.Issues) == 0 {
		t.Fatalf("expected schema error for missing fields, got %v", err)
	}

	if err := protocol.ValidateState([]byte(`{not json`)); err == nil || errors.As(err, &se) {
		t.Fatalf("expected plain decode error, got %v", err)
	}
	if err := protocol.ValidateState([]byte(`{} {}`)); err == nil {
		t.Fatalf("expected trailing data error")
	}
	if err := protocol.Validate("nope.schema.json", []byte(`{}`)); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"ACTION","protocol_version":"1.0","action":{}}`))
	if err != nil || m.Type != protocol.TypeAction || m.ProtocolVersion != protocol.Version {
		t.Fatalf("base=%+v err=%v", m, err)
	}
}
