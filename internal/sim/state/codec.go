package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Snapshot wire format. Optional values are omitted rather than written as
// null, and field order follows the established save files.

type wireEntity struct {
	ID               *string             `json:"id"`
	Type             *EntityClass        `json:"type"`
	Role             *AntRole            `json:"role,omitempty"`
	Subtype          *VisitorType        `json:"subtype,omitempty"`
	Name             *string             `json:"name,omitempty"`
	Tile             *string             `json:"tile"`
	Age              *uint64             `json:"age,omitempty"`
	Hunger           *float64            `json:"hunger,omitempty"`
	HungerRate       *float64            `json:"hunger_rate,omitempty"`
	MaxAge           *uint64             `json:"max_age,omitempty"`
	Food             *string             `json:"food,omitempty"`
	ProcessingCorpse *bool               `json:"processing_corpse,omitempty"`
	ProcessingTicks  *uint64             `json:"processing_ticks,omitempty"`
	FromOutside      *bool               `json:"from_outside,omitempty"`
	Description      *string             `json:"description,omitempty"`
	GiftOnDeath      *map[string]float64 `json:"gift_on_death,omitempty"`
	Generates        *map[string]float64 `json:"generates,omitempty"`
	Transforms       *bool               `json:"transforms,omitempty"`
}

type wireBoost struct {
	ExpiresAtTick *uint64  `json:"expires_at_tick"`
	Bonus         *float64 `json:"bonus"`
}

type wireSystem struct {
	Name              *string             `json:"name"`
	Type              *SystemKind         `json:"type"`
	Generates         *map[string]float64 `json:"generates,omitempty"`
	Consumes          *map[string]float64 `json:"consumes,omitempty"`
	Description       *string             `json:"description,omitempty"`
	CorpseBoosts      []wireBoost         `json:"corpse_boosts,omitempty"`
	OriginalGenerates *map[string]float64 `json:"original_generates,omitempty"`
	OriginalConsumes  *map[string]float64 `json:"original_consumes,omitempty"`
}

type wireTile struct {
	Name                 *string   `json:"name"`
	Type                 *TileKind `json:"type"`
	X                    *int32    `json:"x"`
	Y                    *int32    `json:"y"`
	Contamination        *float64  `json:"contamination,omitempty"`
	Blighted             *bool     `json:"blighted,omitempty"`
	BlightTicksRemaining *uint64   `json:"blight_ticks_remaining,omitempty"`
	Resource             *string   `json:"resource,omitempty"`
	Description          *string   `json:"description,omitempty"`
}

type wireMap struct {
	Tiles       *map[string]wireTile `json:"tiles"`
	Connections *[][2]string         `json:"connections"`
}

type wireQueues struct {
	Actions []json.RawMessage `json:"actions"`
	Events  []json.RawMessage `json:"events"`
}

type wireCorpse struct {
	EntityID   *string     `json:"entity_id"`
	EntityType *string     `json:"entity_type"`
	DeathTick  *uint64     `json:"death_tick"`
	Cause      *DeathCause `json:"cause"`
	Tile       *string     `json:"tile"`
}

type wireGraveyard struct {
	Corpses        *[]wireCorpse `json:"corpses"`
	TotalProcessed *uint64       `json:"total_processed"`
}

type wireStateIn struct {
	Tick              *uint64                `json:"tick"`
	Resources         *map[string]float64    `json:"resources"`
	Systems           *map[string]wireSystem `json:"systems"`
	Entities          *[]wireEntity          `json:"entities"`
	Map               *wireMap               `json:"map"`
	Queues            *wireQueues            `json:"queues"`
	Meta              json.RawMessage        `json:"meta"`
	Graveyard         *wireGraveyard         `json:"graveyard"`
	LastSaveTimestamp *float64               `json:"last_save_timestamp"`
}

type wireStateOut struct {
	Tick              uint64                `json:"tick"`
	Resources         map[string]float64    `json:"resources"`
	Systems           map[string]wireSystem `json:"systems"`
	Entities          []wireEntity          `json:"entities"`
	Map               wireMap               `json:"map"`
	Queues            wireQueues            `json:"queues"`
	Meta              json.RawMessage       `json:"meta"`
	Graveyard         Graveyard             `json:"graveyard"`
	LastSaveTimestamp *float64              `json:"last_save_timestamp,omitempty"`
}

// Decode parses a snapshot. On failure it returns a *DecodeError and no state.
func Decode(data []byte) (*GameState, error) {
	var w wireStateIn
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, wrapJSON("", err)
	}
	return w.toState()
}

// Encode writes the compact snapshot form.
func Encode(s *GameState) ([]byte, error) {
	w, err := fromState(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// EncodeIndent writes the snapshot with two-space indentation.
func EncodeIndent(s *GameState) ([]byte, error) {
	b, err := Encode(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GameState) MarshalJSON() ([]byte, error) { return Encode(s) }

func (s *GameState) UnmarshalJSON(b []byte) error {
	gs, err := Decode(b)
	if err != nil {
		return err
	}
	*s = *gs
	return nil
}

func (w *wireStateIn) toState() (*GameState, error) {
	switch {
	case w.Tick == nil:
		return nil, missing("tick")
	case w.Resources == nil:
		return nil, missing("resources")
	case w.Systems == nil:
		return nil, missing("systems")
	case w.Entities == nil:
		return nil, missing("entities")
	case w.Map == nil:
		return nil, missing("map")
	case w.Queues == nil:
		return nil, missing("queues")
	case w.Meta == nil:
		return nil, missing("meta")
	}

	s := &GameState{
		Tick:              *w.Tick,
		Resources:         Resources(*w.Resources),
		Systems:           make(map[string]*System, len(*w.Systems)),
		Entities:          make([]Entity, 0, len(*w.Entities)),
		LastSaveTimestamp: w.LastSaveTimestamp,
	}
	if s.Resources == nil {
		s.Resources = Resources{}
	}

	for _, id := range SortedKeys(*w.Systems) {
		sys, err := decodeSystem("systems."+id, (*w.Systems)[id])
		if err != nil {
			return nil, err
		}
		s.Systems[id] = sys
	}
	for i, we := range *w.Entities {
		e, err := decodeEntity(fmt.Sprintf("entities[%d]", i), we)
		if err != nil {
			return nil, err
		}
		s.Entities = append(s.Entities, e)
	}

	m, err := decodeMap("map", w.Map)
	if err != nil {
		return nil, err
	}
	s.Map = m

	for i, raw := range w.Queues.Actions {
		a, err := decodeAction(fmt.Sprintf("queues.actions[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		s.Queues.Actions = append(s.Queues.Actions, a)
	}
	s.Queues.Events = w.Queues.Events

	meta, err := decodeMeta("meta", w.Meta)
	if err != nil {
		return nil, err
	}
	s.Meta = meta

	if w.Graveyard != nil {
		g, err := decodeGraveyard("graveyard", w.Graveyard)
		if err != nil {
			return nil, err
		}
		s.Graveyard = g
	}
	return s, nil
}

func decodeEntity(path string, w wireEntity) (Entity, error) {
	switch {
	case w.ID == nil:
		return Entity{}, missing(path + ".id")
	case w.Type == nil:
		return Entity{}, missing(path + ".type")
	case w.Tile == nil:
		return Entity{}, missing(path + ".tile")
	}
	e := Entity{
		ID:         *w.ID,
		Tile:       *w.Tile,
		Hunger:     DefaultHunger,
		HungerRate: DefaultHungerRate,
		MaxAge:     DefaultMaxAge,
	}
	if w.Age != nil {
		e.Age = *w.Age
	}
	if w.Hunger != nil {
		e.Hunger = *w.Hunger
	}
	if w.HungerRate != nil {
		e.HungerRate = *w.HungerRate
	}
	if w.MaxAge != nil {
		e.MaxAge = *w.MaxAge
	}
	if w.Name != nil {
		e.Name = *w.Name
	}
	if w.Description != nil {
		e.Description = *w.Description
	}
	if w.Food != nil {
		e.Food = *w.Food
	}

	switch *w.Type {
	case ClassAnt:
		if field, ok := firstPresent(
			presence{"subtype", w.Subtype != nil},
			presence{"from_outside", w.FromOutside != nil},
			presence{"gift_on_death", w.GiftOnDeath != nil},
			presence{"generates", w.Generates != nil},
			presence{"transforms", w.Transforms != nil},
		); ok {
			return Entity{}, invalidFor(path+"."+field, ClassAnt)
		}
		ant := &AntTraits{}
		if w.Role != nil {
			switch *w.Role {
			case RoleWorker, RoleUndertaker:
				ant.Role = *w.Role
			default:
				return Entity{}, unknownVariant(path+".role", string(*w.Role))
			}
		}
		if w.ProcessingCorpse != nil || w.ProcessingTicks != nil {
			ant.Work = &CorpseWork{}
			if w.ProcessingCorpse != nil {
				ant.Work.Processing = *w.ProcessingCorpse
			}
			if w.ProcessingTicks != nil {
				ant.Work.Ticks = *w.ProcessingTicks
			}
		}
		e.Ant = ant

	case ClassVisitor:
		if field, ok := firstPresent(
			presence{"role", w.Role != nil},
			presence{"processing_corpse", w.ProcessingCorpse != nil},
			presence{"processing_ticks", w.ProcessingTicks != nil},
		); ok {
			return Entity{}, invalidFor(path+"."+field, ClassVisitor)
		}
		v := &VisitorTraits{}
		if w.Subtype != nil {
			switch *w.Subtype {
			case VisitorWanderer, VisitorObserver, VisitorHungry:
				v.Subtype = *w.Subtype
			default:
				return Entity{}, unknownVariant(path+".subtype", string(*w.Subtype))
			}
		}
		if w.FromOutside != nil {
			v.FromOutside = boolPtr(*w.FromOutside)
		}
		if w.Transforms != nil {
			v.Transforms = boolPtr(*w.Transforms)
		}
		if w.GiftOnDeath != nil {
			v.GiftOnDeath = nonNil(*w.GiftOnDeath)
		}
		if w.Generates != nil {
			v.Generates = nonNil(*w.Generates)
		}
		e.Visitor = v

	default:
		return Entity{}, unknownVariant(path+".type", string(*w.Type))
	}
	return e, nil
}

type presence struct {
	field   string
	present bool
}

// firstPresent names the first field, in wire order, that is set.
func firstPresent(ps ...presence) (string, bool) {
	for _, p := range ps {
		if p.present {
			return p.field, true
		}
	}
	return "", false
}

func encodeEntity(e *Entity) wireEntity {
	class := e.Class()
	w := wireEntity{
		ID:          &e.ID,
		Type:        &class,
		Tile:        &e.Tile,
		Age:         &e.Age,
		Hunger:      &e.Hunger,
		HungerRate:  &e.HungerRate,
		MaxAge:      &e.MaxAge,
		Name:        optString(e.Name),
		Food:        optString(e.Food),
		Description: optString(e.Description),
	}
	if a := e.Ant; a != nil {
		if a.Role != "" {
			w.Role = &a.Role
		}
		if a.Work != nil {
			w.ProcessingCorpse = &a.Work.Processing
			w.ProcessingTicks = &a.Work.Ticks
		}
	}
	if v := e.Visitor; v != nil {
		if v.Subtype != "" {
			w.Subtype = &v.Subtype
		}
		w.FromOutside = v.FromOutside
		w.Transforms = v.Transforms
		w.GiftOnDeath = optRates(v.GiftOnDeath)
		w.Generates = optRates(v.Generates)
	}
	return w
}

func decodeSystem(path string, w wireSystem) (*System, error) {
	switch {
	case w.Name == nil:
		return nil, missing(path + ".name")
	case w.Type == nil:
		return nil, missing(path + ".type")
	}
	switch *w.Type {
	case SystemGenerator, SystemConverter, SystemSpawner, SystemCrafting, SystemAntenna:
	default:
		return nil, unknownVariant(path+".type", string(*w.Type))
	}
	s := &System{Name: *w.Name, Kind: *w.Type}
	if w.Description != nil {
		s.Description = *w.Description
	}
	for i, b := range w.CorpseBoosts {
		bp := fmt.Sprintf("%s.corpse_boosts[%d]", path, i)
		switch {
		case b.ExpiresAtTick == nil:
			return nil, missing(bp + ".expires_at_tick")
		case b.Bonus == nil:
			return nil, missing(bp + ".bonus")
		}
		s.Boosts = append(s.Boosts, CorpseBoost{ExpiresAtTick: *b.ExpiresAtTick, Bonus: *b.Bonus})
	}
	if w.OriginalGenerates != nil || w.OriginalConsumes != nil {
		s.Mode = Disabled{Saved: Rates{Consumes: derefRates(w.OriginalConsumes), Generates: derefRates(w.OriginalGenerates)}}
	} else {
		s.Mode = Enabled{Rates{Consumes: derefRates(w.Consumes), Generates: derefRates(w.Generates)}}
	}
	return s, nil
}

func encodeSystem(s *System) wireSystem {
	w := wireSystem{
		Name:        &s.Name,
		Type:        &s.Kind,
		Description: optString(s.Description),
	}
	for i := range s.Boosts {
		b := &s.Boosts[i]
		w.CorpseBoosts = append(w.CorpseBoosts, wireBoost{ExpiresAtTick: &b.ExpiresAtTick, Bonus: &b.Bonus})
	}
	switch m := s.Mode.(type) {
	case Disabled:
		w.OriginalGenerates = optRates(m.Saved.Generates)
		w.OriginalConsumes = optRates(m.Saved.Consumes)
		if w.OriginalGenerates == nil && w.OriginalConsumes == nil {
			empty := map[string]float64{}
			w.OriginalGenerates = &empty
		}
	case Enabled:
		w.Generates = optRates(m.Generates)
		w.Consumes = optRates(m.Consumes)
	}
	return w
}

func decodeMap(path string, w *wireMap) (GameMap, error) {
	switch {
	case w.Tiles == nil:
		return GameMap{}, missing(path + ".tiles")
	case w.Connections == nil:
		return GameMap{}, missing(path + ".connections")
	}
	m := GameMap{Tiles: make(map[string]*Tile, len(*w.Tiles)), Connections: *w.Connections}
	for _, id := range SortedKeys(*w.Tiles) {
		wt := (*w.Tiles)[id]
		tp := path + ".tiles." + id
		switch {
		case wt.Name == nil:
			return GameMap{}, missing(tp + ".name")
		case wt.Type == nil:
			return GameMap{}, missing(tp + ".type")
		case wt.X == nil:
			return GameMap{}, missing(tp + ".x")
		case wt.Y == nil:
			return GameMap{}, missing(tp + ".y")
		}
		switch *wt.Type {
		case TileEmpty, TileCompost, TileExtraction, TileProduction, TileResource, TileSpecial, TileAesthetic, TileAntenna:
		default:
			return GameMap{}, unknownVariant(tp+".type", string(*wt.Type))
		}
		t := &Tile{
			Name:                 *wt.Name,
			Kind:                 *wt.Type,
			X:                    *wt.X,
			Y:                    *wt.Y,
			Contamination:        wt.Contamination,
			Blighted:             wt.Blighted,
			BlightTicksRemaining: wt.BlightTicksRemaining,
		}
		if wt.Resource != nil {
			t.Resource = *wt.Resource
		}
		if wt.Description != nil {
			t.Description = *wt.Description
		}
		m.Tiles[id] = t
	}
	return m, nil
}

func encodeMap(m *GameMap) wireMap {
	tiles := make(map[string]wireTile, len(m.Tiles))
	for id, t := range m.Tiles {
		tiles[id] = wireTile{
			Name:                 &t.Name,
			Type:                 &t.Kind,
			X:                    &t.X,
			Y:                    &t.Y,
			Contamination:        t.Contamination,
			Blighted:             t.Blighted,
			BlightTicksRemaining: t.BlightTicksRemaining,
			Resource:             optString(t.Resource),
			Description:          optString(t.Description),
		}
	}
	conns := m.Connections
	if conns == nil {
		conns = [][2]string{}
	}
	return wireMap{Tiles: &tiles, Connections: &conns}
}

func decodeGraveyard(path string, w *wireGraveyard) (Graveyard, error) {
	switch {
	case w.Corpses == nil:
		return Graveyard{}, missing(path + ".corpses")
	case w.TotalProcessed == nil:
		return Graveyard{}, missing(path + ".total_processed")
	}
	g := Graveyard{TotalProcessed: *w.TotalProcessed}
	for i, c := range *w.Corpses {
		cp := fmt.Sprintf("%s.corpses[%d]", path, i)
		switch {
		case c.EntityID == nil:
			return Graveyard{}, missing(cp + ".entity_id")
		case c.EntityType == nil:
			return Graveyard{}, missing(cp + ".entity_type")
		case c.DeathTick == nil:
			return Graveyard{}, missing(cp + ".death_tick")
		case c.Cause == nil:
			return Graveyard{}, missing(cp + ".cause")
		case c.Tile == nil:
			return Graveyard{}, missing(cp + ".tile")
		}
		switch *c.Cause {
		case CauseStarvation, CauseOldAge, CauseBlight:
		default:
			return Graveyard{}, unknownVariant(cp+".cause", string(*c.Cause))
		}
		g.Corpses = append(g.Corpses, Corpse{
			EntityID:   *c.EntityID,
			EntityType: *c.EntityType,
			DeathTick:  *c.DeathTick,
			Cause:      *c.Cause,
			Tile:       *c.Tile,
		})
	}
	return g, nil
}

func (a Action) MarshalJSON() ([]byte, error) { return encodeAction(&a) }

func (a *Action) UnmarshalJSON(b []byte) error {
	d, err := decodeAction("action", b)
	if err != nil {
		return err
	}
	*a = d
	return nil
}

func decodeAction(path string, raw json.RawMessage) (Action, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Action{}, wrapJSON(path, err)
	}
	var a Action
	if err := takeField(path, fields, "id", &a.ID, true); err != nil {
		return Action{}, err
	}
	if err := takeField(path, fields, "type", &a.Type, true); err != nil {
		return Action{}, err
	}
	if err := takeField(path, fields, "ticks_remaining", &a.TicksRemaining, true); err != nil {
		return Action{}, err
	}
	if rawEff, ok := fields["effects"]; ok {
		delete(fields, "effects")
		var effFields map[string]json.RawMessage
		if err := json.Unmarshal(rawEff, &effFields); err != nil {
			return Action{}, wrapJSON(path+".effects", err)
		}
		eff := &ActionEffects{}
		if rawRes, ok := effFields["resources"]; ok {
			delete(effFields, "resources")
			var res map[string]float64
			if err := json.Unmarshal(rawRes, &res); err != nil {
				return Action{}, wrapJSON(path+".effects.resources", err)
			}
			eff.Resources = nonNil(res)
		}
		if len(effFields) > 0 {
			eff.Extra = effFields
		}
		a.Effects = eff
	}
	if len(fields) > 0 {
		a.Extra = fields
	}
	return a, nil
}

func encodeAction(a *Action) (json.RawMessage, error) {
	var o objectWriter
	o.field("id", a.ID)
	o.field("type", a.Type)
	o.field("ticks_remaining", a.TicksRemaining)
	if a.Effects != nil {
		var eo objectWriter
		if a.Effects.Resources != nil {
			eo.field("resources", a.Effects.Resources)
		}
		eo.extra(a.Effects.Extra)
		eff, err := eo.finish()
		if err != nil {
			return nil, err
		}
		o.raw("effects", eff)
	}
	o.extra(a.Extra)
	return o.finish()
}

var metaKnown = []string{
	"boredom", "recent_decisions", "rejected_ideas", "fired_cards", "estate",
	"decor", "jewelry", "goals", "reflections", "sanity", "receiver_silent", "receiver_failed_tick",
}

func decodeMeta(path string, raw json.RawMessage) (Meta, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Meta{}, wrapJSON(path, err)
	}
	m := NewMeta()
	steps := []struct {
		key string
		dst any
	}{
		{"boredom", &m.Boredom},
		{"recent_decisions", &m.RecentDecisions},
		{"rejected_ideas", &m.RejectedIdeas},
		{"fired_cards", &m.FiredCards},
		{"decor", &m.Decor},
		{"jewelry", &m.Jewelry},
		{"goals", &m.Goals},
		{"reflections", &m.Reflections},
		{"sanity", &m.Sanity},
		{"receiver_silent", &m.ReceiverSilent},
	}
	for _, st := range steps {
		if err := takeField(path, fields, st.key, st.dst, false); err != nil {
			return Meta{}, err
		}
	}
	if v, ok := fields["estate"]; ok {
		delete(fields, "estate")
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			m.Estate = v
		}
	}
	if _, ok := fields["receiver_failed_tick"]; ok {
		var t *uint64
		if err := takeField(path, fields, "receiver_failed_tick", &t, false); err != nil {
			return Meta{}, err
		}
		m.ReceiverFailedTick = t
	}
	if m.Goals == nil {
		m.Goals = map[string]json.RawMessage{}
	}
	if len(fields) > 0 {
		m.Extra = fields
	}
	return m, nil
}

func encodeMeta(m *Meta) (json.RawMessage, error) {
	var o objectWriter
	o.field("boredom", m.Boredom)
	o.field("recent_decisions", rawList(m.RecentDecisions))
	o.field("rejected_ideas", rawList(m.RejectedIdeas))
	o.field("fired_cards", rawList(m.FiredCards))
	if m.Estate != nil {
		o.raw("estate", m.Estate)
	}
	o.field("decor", rawList(m.Decor))
	o.field("jewelry", rawList(m.Jewelry))
	goals := m.Goals
	if goals == nil {
		goals = map[string]json.RawMessage{}
	}
	o.field("goals", goals)
	o.field("reflections", rawList(m.Reflections))
	o.field("sanity", m.Sanity)
	o.field("receiver_silent", m.ReceiverSilent)
	if m.ReceiverFailedTick != nil {
		o.field("receiver_failed_tick", *m.ReceiverFailedTick)
	}
	o.extra(m.Extra)
	return o.finish()
}

func fromState(s *GameState) (*wireStateOut, error) {
	w := &wireStateOut{
		Tick:              s.Tick,
		Resources:         map[string]float64(s.Resources),
		Systems:           make(map[string]wireSystem, len(s.Systems)),
		Entities:          make([]wireEntity, 0, len(s.Entities)),
		Map:               encodeMap(&s.Map),
		Graveyard:         s.Graveyard,
		LastSaveTimestamp: s.LastSaveTimestamp,
	}
	if w.Resources == nil {
		w.Resources = map[string]float64{}
	}
	for name, v := range w.Resources {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("encode snapshot: resource %q is not finite", name)
		}
	}
	for id, sys := range s.Systems {
		w.Systems[id] = encodeSystem(sys)
	}
	for i := range s.Entities {
		w.Entities = append(w.Entities, encodeEntity(&s.Entities[i]))
	}
	w.Queues.Actions = make([]json.RawMessage, 0, len(s.Queues.Actions))
	for i := range s.Queues.Actions {
		raw, err := encodeAction(&s.Queues.Actions[i])
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: action %q: %w", s.Queues.Actions[i].ID, err)
		}
		w.Queues.Actions = append(w.Queues.Actions, raw)
	}
	w.Queues.Events = rawList(s.Queues.Events)
	meta, err := encodeMeta(&s.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: meta: %w", err)
	}
	w.Meta = meta
	if w.Graveyard.Corpses == nil {
		w.Graveyard.Corpses = []Corpse{}
	}
	return w, nil
}

// takeField decodes fields[key] into dst and removes it from fields.
func takeField(path string, fields map[string]json.RawMessage, key string, dst any, required bool) error {
	raw, ok := fields[key]
	if !ok {
		if required {
			return missing(joinPath(path, key))
		}
		return nil
	}
	delete(fields, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return wrapJSON(joinPath(path, key), err)
	}
	return nil
}

// objectWriter emits a JSON object with keys in call order.
type objectWriter struct {
	buf bytes.Buffer
	err error
}

func (o *objectWriter) raw(key string, v json.RawMessage) {
	if o.err != nil {
		return
	}
	if o.buf.Len() == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(v)
}

func (o *objectWriter) field(key string, v any) {
	if o.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	o.raw(key, b)
}

// extra appends pass-through keys in sorted order.
func (o *objectWriter) extra(m map[string]json.RawMessage) {
	for _, k := range SortedKeys(m) {
		o.raw(k, m[k])
	}
}

func (o *objectWriter) finish() (json.RawMessage, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.buf.Len() == 0 {
		return json.RawMessage("{}"), nil
	}
	o.buf.WriteByte('}')
	return o.buf.Bytes(), nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optRates(m map[string]float64) *map[string]float64 {
	if m == nil {
		return nil
	}
	return &m
}

func derefRates(m *map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	return nonNil(*m)
}

// nonNil keeps a present-but-empty map distinct from an absent one.
func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func rawList(l []json.RawMessage) []json.RawMessage {
	if l == nil {
		return []json.RawMessage{}
	}
	return l
}
