package state

type EntityClass string

const (
	ClassAnt     EntityClass = "ant"
	ClassVisitor EntityClass = "visitor"
)

type AntRole string

const (
	RoleWorker     AntRole = "worker"
	RoleUndertaker AntRole = "undertaker"
)

type VisitorType string

const (
	VisitorWanderer VisitorType = "wanderer"
	VisitorObserver VisitorType = "observer"
	VisitorHungry   VisitorType = "hungry"
)

type DeathCause string

const (
	CauseStarvation DeathCause = "starvation"
	CauseOldAge     DeathCause = "old_age"
	CauseBlight     DeathCause = "blight"
)

// Entity is one ant or one visitor. Exactly one of Ant and Visitor is set.
//
// Name, Description and Food are optional; the empty string means absent.
type Entity struct {
	ID         string
	Tile       string
	Age        uint64
	Hunger     float64
	HungerRate float64
	MaxAge     uint64

	Name        string
	Description string
	Food        string

	Ant     *AntTraits
	Visitor *VisitorTraits
}

type AntTraits struct {
	// Role is empty for snapshots that never assigned one.
	Role AntRole
	// Work is the corpse-processing state; nil until the ant has any.
	Work *CorpseWork
}

type CorpseWork struct {
	Processing bool
	Ticks      uint64
}

// VisitorTraits keeps FromOutside and Transforms as pointers so an explicit
// false survives a round trip.
type VisitorTraits struct {
	Subtype     VisitorType
	FromOutside *bool
	GiftOnDeath map[string]float64
	Generates   map[string]float64
	Transforms  *bool
}

// TransformsFood reports whether eaten influence becomes strange matter.
func (v *VisitorTraits) TransformsFood() bool { return v.Transforms != nil && *v.Transforms }

func boolPtr(b bool) *bool { return &b }

const (
	DefaultHunger     = 100.0
	DefaultHungerRate = 0.1
	DefaultMaxAge     = 7200
	MaxHunger         = 100.0
)

func (e *Entity) Class() EntityClass {
	if e.Visitor != nil {
		return ClassVisitor
	}
	return ClassAnt
}

func (e *Entity) Role() AntRole {
	if e.Ant == nil {
		return ""
	}
	return e.Ant.Role
}

func (e *Entity) IsUndertaker() bool { return e.Role() == RoleUndertaker }

func (e *Entity) Subtype() VisitorType {
	if e.Visitor == nil {
		return ""
	}
	return e.Visitor.Subtype
}

// CauseOfDeath reports starvation before old age.
func (e *Entity) CauseOfDeath() (DeathCause, bool) {
	switch {
	case e.Hunger <= 0:
		return CauseStarvation, true
	case e.Age >= e.MaxAge:
		return CauseOldAge, true
	}
	return "", false
}

func (e *Entity) Clone() Entity {
	c := *e
	if e.Ant != nil {
		a := *e.Ant
		if e.Ant.Work != nil {
			w := *e.Ant.Work
			a.Work = &w
		}
		c.Ant = &a
	}
	if e.Visitor != nil {
		v := *e.Visitor
		v.GiftOnDeath = cloneRates(e.Visitor.GiftOnDeath)
		v.Generates = cloneRates(e.Visitor.Generates)
		if e.Visitor.FromOutside != nil {
			v.FromOutside = boolPtr(*e.Visitor.FromOutside)
		}
		if e.Visitor.Transforms != nil {
			v.Transforms = boolPtr(*e.Visitor.Transforms)
		}
		c.Visitor = &v
	}
	return c
}

func NewWorker(id, tile string) Entity {
	return Entity{
		ID:         id,
		Tile:       tile,
		Hunger:     100,
		HungerRate: 0.1,
		MaxAge:     7200,
		Food:       "fungus",
		Ant:        &AntTraits{Role: RoleWorker},
	}
}

func NewUndertaker(id, tile string) Entity {
	return Entity{
		ID:         id,
		Tile:       tile,
		Hunger:     100,
		HungerRate: 0.15,
		MaxAge:     7200,
		Food:       "fungus",
		Ant:        &AntTraits{Role: RoleUndertaker, Work: &CorpseWork{}},
	}
}

// ReceiverTile is where summoned visitors appear.
const ReceiverTile = "receiver"

func NewWanderer(id string) Entity {
	return Entity{
		ID:          id,
		Tile:        ReceiverTile,
		Hunger:      100,
		HungerRate:  0,
		MaxAge:      1800,
		Name:        "A Wanderer",
		Description: "Passes through. Leaves something behind.",
		Visitor: &VisitorTraits{
			Subtype:     VisitorWanderer,
			FromOutside: boolPtr(true),
			GiftOnDeath: map[string]float64{"strange_matter": 1},
		},
	}
}

func NewObserver(id string) Entity {
	return Entity{
		ID:          id,
		Tile:        ReceiverTile,
		Hunger:      100,
		HungerRate:  0.05,
		MaxAge:      3600,
		Name:        "An Observer",
		Description: "Watches. Generates insight from the watching.",
		Food:        "crystals",
		Visitor: &VisitorTraits{
			Subtype:     VisitorObserver,
			FromOutside: boolPtr(true),
			Generates:   map[string]float64{"insight": 0.001},
		},
	}
}

func NewHungry(id string) Entity {
	return Entity{
		ID:          id,
		Tile:        ReceiverTile,
		Hunger:      100,
		HungerRate:  0.5,
		MaxAge:      900,
		Name:        "A Hungry Thing",
		Description: "Consumes. Transforms what it consumes.",
		Food:        "influence",
		Visitor: &VisitorTraits{
			Subtype:     VisitorHungry,
			FromOutside: boolPtr(true),
			Transforms:  boolPtr(true),
		},
	}
}

// NewVisitor builds the archetype for t; unknown types yield a Wanderer.
func NewVisitor(t VisitorType, id string) Entity {
	switch t {
	case VisitorObserver:
		return NewObserver(id)
	case VisitorHungry:
		return NewHungry(id)
	default:
		return NewWanderer(id)
	}
}
