package protocol

import (
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// MaxQueue bounds how many TICK messages the server buffers for this
	// client before dropping the oldest.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	RunID           string `json:"run_id,omitempty"`
	Tick            uint64 `json:"tick"`
	Seed            uint64 `json:"seed"`
	TickRateHz      int    `json:"tick_rate_hz"`
}

// TICK (server -> client), one per simulated tick.
type TickMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Digest          string         `json:"digest"`
	Actions         []state.Action `json:"actions,omitempty"`
	Events          []events.Event `json:"events"`
}

// ACTION (client -> server). The action joins the queue at the next tick
// boundary.
type ActionMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Action          state.Action `json:"action"`
}

// ACK (server -> client) answers every ACTION.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActionID        string `json:"action_id,omitempty"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	// Tick is the last completed tick when the ACTION was received.
	Tick uint64 `json:"tick"`
}

func NewAck(actionID string, tick uint64) AckMsg {
	return AckMsg{Type: TypeAck, ProtocolVersion: Version, ActionID: actionID, Accepted: true, Tick: tick}
}

func NewReject(actionID string, tick uint64, code, msg string) AckMsg {
	return AckMsg{Type: TypeAck, ProtocolVersion: Version, ActionID: actionID, Code: code, Message: msg, Tick: tick}
}
