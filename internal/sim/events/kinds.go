package events

import (
	"encoding/json"

	"anthill.game/internal/sim/state"
)

const (
	TypeEntityDied           = "entity_died"
	TypeEntityAte            = "entity_ate"
	TypeThresholdCrossed     = "threshold_crossed"
	TypeActionComplete       = "action_complete"
	TypeSystemProduced       = "system_produced"
	TypeCorpseProcessed      = "corpse_processed"
	TypeBlightStruck         = "blight_struck"
	TypeBlightCleared        = "blight_cleared"
	TypeBlightKill           = "blight_kill"
	TypeAntsSpawned          = "ants_spawned"
	TypeEmergencySpawn       = "emergency_spawn"
	TypeVisitorArrived       = "visitor_arrived"
	TypeVisitorDeparted      = "visitor_departed"
	TypeInfluenceSpent       = "influence_spent"
	TypeSummoningFailed      = "summoning_failed"
	TypeReceiverSilent       = "receiver_silent"
	TypeReceiverRestored     = "receiver_restored"
	TypePassiveGeneration    = "passive_generation"
	TypeInfluenceTransformed = "influence_transformed"
	TypeBoredomHigh          = "boredom_high"
	TypeSanityChanged        = "sanity_changed"
)

type EntityDied struct {
	EntityID   string           `json:"entity_id"`
	EntityType string           `json:"entity_type"`
	Cause      state.DeathCause `json:"cause"`
	Tile       string           `json:"tile"`
}

type EntityAte struct {
	EntityID    string  `json:"entity_id"`
	Food        string  `json:"food"`
	HungerAfter float64 `json:"hunger_after"`
}

// ThresholdCrossed fires only on upward crossings.
type ThresholdCrossed struct {
	Resource  string  `json:"resource"`
	Threshold float64 `json:"threshold"`
	Current   float64 `json:"current"`
}

type ActionComplete struct {
	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
}

type SystemProduced struct {
	SystemID string             `json:"system_id"`
	Produced map[string]float64 `json:"produced"`
	Consumed map[string]float64 `json:"consumed"`
}

type CorpseProcessed struct {
	UndertakerID   string  `json:"undertaker_id"`
	TotalProcessed uint64  `json:"total_processed"`
	Contamination  float64 `json:"contamination"`
}

type BlightStruck struct {
	Tile          string  `json:"tile"`
	Contamination float64 `json:"contamination"`
	DurationTicks uint64  `json:"duration_ticks"`
}

type BlightCleared struct {
	Tile string `json:"tile"`
}

type BlightKill struct {
	EntityID string `json:"entity_id"`
	Tile     string `json:"tile"`
}

type AntsSpawned struct {
	WorkerID          string  `json:"worker_id"`
	UndertakerID      string  `json:"undertaker_id"`
	NutrientsConsumed float64 `json:"nutrients_consumed"`
	FungusConsumed    float64 `json:"fungus_consumed"`
}

type EmergencySpawn struct {
	WorkerID     string `json:"worker_id"`
	UndertakerID string `json:"undertaker_id"`
}

type VisitorArrived struct {
	VisitorID   string            `json:"visitor_id"`
	VisitorType state.VisitorType `json:"visitor_type"`
	Name        string            `json:"name"`
}

// VisitorDeparted carries a nil Gift (written as null) when the visitor left
// nothing behind.
type VisitorDeparted struct {
	VisitorID   string             `json:"visitor_id"`
	VisitorType state.VisitorType  `json:"visitor_type"`
	Name        string             `json:"name"`
	Gift        map[string]float64 `json:"gift"`
}

type InfluenceSpent struct {
	Amount  float64 `json:"amount"`
	Success bool    `json:"success"`
}

type SummoningFailed struct{}

type ReceiverSilent struct{}

type ReceiverRestored struct{}

type PassiveGeneration struct {
	EntityID string  `json:"entity_id"`
	Resource string  `json:"resource"`
	Amount   float64 `json:"amount"`
}

type InfluenceTransformed struct {
	VisitorID             string  `json:"visitor_id"`
	InfluenceConsumed     float64 `json:"influence_consumed"`
	StrangeMatterProduced float64 `json:"strange_matter_produced"`
}

type BoredomHigh struct {
	Level uint64 `json:"level"`
}

// SanityChanged is reserved for the decision layer; the engine never emits it.
type SanityChanged struct {
	Delta    float64 `json:"delta"`
	NewValue float64 `json:"new_value"`
	Reason   string  `json:"reason"`
}

func (EntityDied) Type() string           { return TypeEntityDied }
func (EntityAte) Type() string            { return TypeEntityAte }
func (ThresholdCrossed) Type() string     { return TypeThresholdCrossed }
func (ActionComplete) Type() string       { return TypeActionComplete }
func (SystemProduced) Type() string       { return TypeSystemProduced }
func (CorpseProcessed) Type() string      { return TypeCorpseProcessed }
func (BlightStruck) Type() string         { return TypeBlightStruck }
func (BlightCleared) Type() string        { return TypeBlightCleared }
func (BlightKill) Type() string           { return TypeBlightKill }
func (AntsSpawned) Type() string          { return TypeAntsSpawned }
func (EmergencySpawn) Type() string       { return TypeEmergencySpawn }
func (VisitorArrived) Type() string       { return TypeVisitorArrived }
func (VisitorDeparted) Type() string      { return TypeVisitorDeparted }
func (InfluenceSpent) Type() string       { return TypeInfluenceSpent }
func (SummoningFailed) Type() string      { return TypeSummoningFailed }
func (ReceiverSilent) Type() string       { return TypeReceiverSilent }
func (ReceiverRestored) Type() string     { return TypeReceiverRestored }
func (PassiveGeneration) Type() string    { return TypePassiveGeneration }
func (InfluenceTransformed) Type() string { return TypeInfluenceTransformed }
func (BoredomHigh) Type() string          { return TypeBoredomHigh }
func (SanityChanged) Type() string        { return TypeSanityChanged }

var registry = map[string]func([]byte) (Kind, error){
	TypeEntityDied:           decodeAs[EntityDied],
	TypeEntityAte:            decodeAs[EntityAte],
	TypeThresholdCrossed:     decodeAs[ThresholdCrossed],
	TypeActionComplete:       decodeAs[ActionComplete],
	TypeSystemProduced:       decodeAs[SystemProduced],
	TypeCorpseProcessed:      decodeAs[CorpseProcessed],
	TypeBlightStruck:         decodeAs[BlightStruck],
	TypeBlightCleared:        decodeAs[BlightCleared],
	TypeBlightKill:           decodeAs[BlightKill],
	TypeAntsSpawned:          decodeAs[AntsSpawned],
	TypeEmergencySpawn:       decodeAs[EmergencySpawn],
	TypeVisitorArrived:       decodeAs[VisitorArrived],
	TypeVisitorDeparted:      decodeAs[VisitorDeparted],
	TypeInfluenceSpent:       decodeAs[InfluenceSpent],
	TypeSummoningFailed:      decodeAs[SummoningFailed],
	TypeReceiverSilent:       decodeAs[ReceiverSilent],
	TypeReceiverRestored:     decodeAs[ReceiverRestored],
	TypePassiveGeneration:    decodeAs[PassiveGeneration],
	TypeInfluenceTransformed: decodeAs[InfluenceTransformed],
	TypeBoredomHigh:          decodeAs[BoredomHigh],
	TypeSanityChanged:        decodeAs[SanityChanged],
}

// decodeAs ignores the "type" tag; json drops unknown keys.
func decodeAs[T Kind](b []byte) (Kind, error) {
	var k T
	if err := json.Unmarshal(b, &k); err != nil {
		return nil, err
	}
	return k, nil
}

// KnownTypes lists every registered discriminant.
func KnownTypes() []string { return state.SortedKeys(registry) }
