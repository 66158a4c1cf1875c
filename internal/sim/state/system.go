package state

type SystemKind string

const (
	SystemGenerator SystemKind = "generator"
	SystemConverter SystemKind = "converter"
	SystemSpawner   SystemKind = "spawner"
	SystemCrafting  SystemKind = "crafting"
	SystemAntenna   SystemKind = "antenna"
)

// Well-known system ids the engine looks up by name.
const (
	CompostHeap  = "compost_heap"
	QueenChamber = "queen_chamber"
	Receiver     = "receiver"
)

// CorpseBoost is a temporary bonus to compost output.
type CorpseBoost struct {
	ExpiresAtTick uint64  `json:"expires_at_tick"`
	Bonus         float64 `json:"bonus"`
}

// Rates holds a system's per-tick deltas. A nil map means the system declares
// none; an empty non-nil map is kept distinct so snapshots round-trip.
type Rates struct {
	Consumes  map[string]float64
	Generates map[string]float64
}

func (r Rates) clone() Rates {
	return Rates{Consumes: cloneRates(r.Consumes), Generates: cloneRates(r.Generates)}
}

// SystemMode is either Enabled or Disabled.
type SystemMode interface {
	isSystemMode()
}

// Enabled systems run with their live rates.
type Enabled struct{ Rates }

// Disabled systems have no live rates; Saved is restored verbatim on Enable.
type Disabled struct{ Saved Rates }

func (Enabled) isSystemMode()  {}
func (Disabled) isSystemMode() {}

type System struct {
	Name        string
	Kind        SystemKind
	Description string
	Mode        SystemMode
	Boosts      []CorpseBoost
}

func NewGenerator(name string, generates map[string]float64) *System {
	return &System{Name: name, Kind: SystemGenerator, Mode: Enabled{Rates{Generates: generates}}}
}

func NewConverter(name string, consumes, generates map[string]float64) *System {
	return &System{Name: name, Kind: SystemConverter, Mode: Enabled{Rates{Consumes: consumes, Generates: generates}}}
}

func NewSystem(name string, kind SystemKind) *System {
	return &System{Name: name, Kind: kind, Mode: Enabled{}}
}

func (s *System) IsDisabled() bool {
	_, ok := s.Mode.(Disabled)
	return ok
}

// Live returns the rates the system runs with, or false while disabled.
func (s *System) Live() (Rates, bool) {
	switch m := s.Mode.(type) {
	case Enabled:
		return m.Rates, true
	case nil:
		return Rates{}, true
	}
	return Rates{}, false
}

// CanRun reports whether every declared consumption is covered.
func (s *System) CanRun(res Resources) bool {
	live, ok := s.Live()
	if !ok {
		return false
	}
	return res.CanConsumeAll(live.Consumes)
}

// Disable stashes the live rates. Disabling twice keeps the first stash, and
// a system that declares no rates has nothing to stash and stays enabled.
func (s *System) Disable() {
	live, ok := s.Live()
	if !ok || (live.Consumes == nil && live.Generates == nil) {
		return
	}
	s.Mode = Disabled{Saved: live}
}

func (s *System) Enable() {
	if d, ok := s.Mode.(Disabled); ok {
		s.Mode = Enabled{d.Saved}
	}
}

// CorpseBonus sums boosts that have not expired at tick.
func (s *System) CorpseBonus(tick uint64) float64 {
	var sum float64
	for _, b := range s.Boosts {
		if b.ExpiresAtTick > tick {
			sum += b.Bonus
		}
	}
	return sum
}

func (s *System) ExpireBoosts(tick uint64) {
	kept := s.Boosts[:0]
	for _, b := range s.Boosts {
		if b.ExpiresAtTick > tick {
			kept = append(kept, b)
		}
	}
	s.Boosts = kept
}

func (s *System) Clone() *System {
	c := *s
	switch m := s.Mode.(type) {
	case Enabled:
		c.Mode = Enabled{m.Rates.clone()}
	case Disabled:
		c.Mode = Disabled{Saved: m.Saved.clone()}
	}
	if s.Boosts != nil {
		c.Boosts = append([]CorpseBoost(nil), s.Boosts...)
	}
	return &c
}
