package state

import "sort"

type TileKind string

const (
	TileEmpty      TileKind = "empty"
	TileCompost    TileKind = "compost"
	TileExtraction TileKind = "extraction"
	TileProduction TileKind = "production"
	TileResource   TileKind = "resource"
	TileSpecial    TileKind = "special"
	TileAesthetic  TileKind = "aesthetic"
	TileAntenna    TileKind = "antenna"
)

// Well-known tile ids.
const (
	OriginTile  = "origin"
	CompostTile = "compost"
)

// Tile is one node of the colony map. The contamination and blight fields are
// only carried by compost-class tiles; nil means the field is absent.
type Tile struct {
	Name string
	Kind TileKind
	X, Y int32

	Contamination        *float64
	Blighted             *bool
	BlightTicksRemaining *uint64

	Resource    string
	Description string
}

func NewTile(name string, kind TileKind, x, y int32) *Tile {
	return &Tile{Name: name, Kind: kind, X: x, Y: y}
}

func NewOriginTile() *Tile {
	return NewTile("The Starting Dirt", TileEmpty, 0, 0)
}

// NewCompostTile starts clean and unblighted.
func NewCompostTile(name string, x, y int32) *Tile {
	t := NewTile(name, TileCompost, x, y)
	clean, off, zero := 0.0, false, uint64(0)
	t.Contamination = &clean
	t.Blighted = &off
	t.BlightTicksRemaining = &zero
	return t
}

func (t *Tile) ContaminationLevel() float64 {
	if t.Contamination == nil {
		return 0
	}
	return *t.Contamination
}

func (t *Tile) IsBlighted() bool { return t.Blighted != nil && *t.Blighted }

func (t *Tile) BlightRemaining() uint64 {
	if t.BlightTicksRemaining == nil {
		return 0
	}
	return *t.BlightTicksRemaining
}

// AddContamination raises contamination, capped at 1.
func (t *Tile) AddContamination(amount float64) {
	v := min(t.ContaminationLevel()+amount, 1.0)
	t.Contamination = &v
}

func (t *Tile) StartBlight(ticks uint64) {
	on := true
	t.Blighted = &on
	t.BlightTicksRemaining = &ticks
}

// TickBlight counts an active blight down and reports whether it just cleared.
// Clearing resets contamination to zero.
func (t *Tile) TickBlight() bool {
	if !t.IsBlighted() {
		return false
	}
	remaining := t.BlightRemaining()
	if remaining <= 1 {
		off, zero, clean := false, uint64(0), 0.0
		t.Blighted = &off
		t.BlightTicksRemaining = &zero
		t.Contamination = &clean
		return true
	}
	remaining--
	t.BlightTicksRemaining = &remaining
	return false
}

func (t *Tile) Clone() *Tile {
	c := *t
	if t.Contamination != nil {
		v := *t.Contamination
		c.Contamination = &v
	}
	if t.Blighted != nil {
		v := *t.Blighted
		c.Blighted = &v
	}
	if t.BlightTicksRemaining != nil {
		v := *t.BlightTicksRemaining
		c.BlightTicksRemaining = &v
	}
	return &c
}

// GameMap is a set of tiles plus undirected connections between tile ids.
type GameMap struct {
	Tiles       map[string]*Tile
	Connections [][2]string
}

// NewGameMap returns a map holding only the origin tile.
func NewGameMap() GameMap {
	return GameMap{
		Tiles:       map[string]*Tile{OriginTile: NewOriginTile()},
		Connections: [][2]string{},
	}
}

func (m *GameMap) Tile(id string) (*Tile, bool) {
	t, ok := m.Tiles[id]
	return t, ok
}

func (m *GameMap) AddTile(id string, t *Tile) {
	if m.Tiles == nil {
		m.Tiles = map[string]*Tile{}
	}
	m.Tiles[id] = t
}

// Connect links a and b once; repeated calls are no-ops.
func (m *GameMap) Connect(a, b string) {
	if m.AreConnected(a, b) {
		return
	}
	m.Connections = append(m.Connections, [2]string{a, b})
}

func (m *GameMap) AreConnected(a, b string) bool {
	for _, c := range m.Connections {
		if (c[0] == a && c[1] == b) || (c[0] == b && c[1] == a) {
			return true
		}
	}
	return false
}

// Neighbors lists tiles connected to id, sorted.
func (m *GameMap) Neighbors(id string) []string {
	var out []string
	for _, c := range m.Connections {
		switch id {
		case c[0]:
			out = append(out, c[1])
		case c[1]:
			out = append(out, c[0])
		}
	}
	sort.Strings(out)
	return out
}

func (m *GameMap) Clone() GameMap {
	c := GameMap{Tiles: make(map[string]*Tile, len(m.Tiles))}
	for id, t := range m.Tiles {
		c.Tiles[id] = t.Clone()
	}
	c.Connections = append([][2]string{}, m.Connections...)
	return c
}
