package state

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest hashes every simulated field of s in a canonical order. Two states
// with equal digests tick identically under the same engine bookkeeping.
// LastSaveTimestamp is wall-clock and excluded.
func Digest(s *GameState) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, s.Tick)
	digestRates(h, &tmp, s.Resources)
	digestSystems(h, &tmp, s)
	digestEntities(h, &tmp, s.Entities)
	digestMap(h, &tmp, &s.Map)
	digestQueues(h, &tmp, &s.Queues)
	digestMeta(h, &tmp, &s.Meta)

	digestWriteU64(h, &tmp, uint64(len(s.Graveyard.Corpses)))
	for _, c := range s.Graveyard.Corpses {
		digestString(h, &tmp, c.EntityID)
		digestString(h, &tmp, c.EntityType)
		digestWriteU64(h, &tmp, c.DeathTick)
		digestString(h, &tmp, string(c.Cause))
		digestString(h, &tmp, c.Tile)
	}
	digestWriteU64(h, &tmp, s.Graveyard.TotalProcessed)

	return hex.EncodeToString(h.Sum(nil))
}

func digestSystems(h hashWriter, tmp *[8]byte, s *GameState) {
	ids := s.SystemIDs()
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		sys := s.Systems[id]
		digestString(h, tmp, id)
		digestString(h, tmp, sys.Name)
		digestString(h, tmp, string(sys.Kind))
		switch m := sys.Mode.(type) {
		case Disabled:
			h.Write([]byte{1})
			digestOptRates(h, tmp, m.Saved.Consumes)
			digestOptRates(h, tmp, m.Saved.Generates)
		case Enabled:
			h.Write([]byte{0})
			digestOptRates(h, tmp, m.Consumes)
			digestOptRates(h, tmp, m.Generates)
		default:
			h.Write([]byte{0})
			digestOptRates(h, tmp, nil)
			digestOptRates(h, tmp, nil)
		}
		digestWriteU64(h, tmp, uint64(len(sys.Boosts)))
		for _, b := range sys.Boosts {
			digestWriteU64(h, tmp, b.ExpiresAtTick)
			digestFloat(h, tmp, b.Bonus)
		}
	}
}

func digestEntities(h hashWriter, tmp *[8]byte, ents []Entity) {
	digestWriteU64(h, tmp, uint64(len(ents)))
	for i := range ents {
		e := &ents[i]
		digestString(h, tmp, e.ID)
		digestString(h, tmp, string(e.Class()))
		digestString(h, tmp, e.Tile)
		digestWriteU64(h, tmp, e.Age)
		digestFloat(h, tmp, e.Hunger)
		digestFloat(h, tmp, e.HungerRate)
		digestWriteU64(h, tmp, e.MaxAge)
		digestString(h, tmp, e.Food)
		if a := e.Ant; a != nil {
			digestString(h, tmp, string(a.Role))
			if a.Work != nil {
				h.Write([]byte{1, boolByte(a.Work.Processing)})
				digestWriteU64(h, tmp, a.Work.Ticks)
			} else {
				h.Write([]byte{0})
			}
		}
		if v := e.Visitor; v != nil {
			digestString(h, tmp, string(v.Subtype))
			digestOptBool(h, v.FromOutside)
			digestOptBool(h, v.Transforms)
			digestOptRates(h, tmp, v.GiftOnDeath)
			digestOptRates(h, tmp, v.Generates)
		}
	}
}

func digestMap(h hashWriter, tmp *[8]byte, m *GameMap) {
	ids := SortedKeys(m.Tiles)
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		t := m.Tiles[id]
		digestString(h, tmp, id)
		digestString(h, tmp, string(t.Kind))
		digestWriteU64(h, tmp, uint64(int64(t.X)))
		digestWriteU64(h, tmp, uint64(int64(t.Y)))
		digestFloat(h, tmp, t.ContaminationLevel())
		h.Write([]byte{boolByte(t.IsBlighted())})
		digestWriteU64(h, tmp, t.BlightRemaining())
	}
	digestWriteU64(h, tmp, uint64(len(m.Connections)))
	for _, c := range m.Connections {
		digestString(h, tmp, c[0])
		digestString(h, tmp, c[1])
	}
}

func digestQueues(h hashWriter, tmp *[8]byte, q *Queues) {
	digestWriteU64(h, tmp, uint64(len(q.Actions)))
	for _, a := range q.Actions {
		digestString(h, tmp, a.ID)
		digestString(h, tmp, a.Type)
		digestWriteU64(h, tmp, a.TicksRemaining)
		if a.Effects != nil {
			digestOptRates(h, tmp, a.Effects.Resources)
		} else {
			digestOptRates(h, tmp, nil)
		}
	}
	digestWriteU64(h, tmp, uint64(len(q.Events)))
}

func digestMeta(h hashWriter, tmp *[8]byte, m *Meta) {
	digestWriteU64(h, tmp, m.Boredom)
	digestFloat(h, tmp, m.Sanity)
	h.Write([]byte{boolByte(m.ReceiverSilent)})
	if m.ReceiverFailedTick != nil {
		h.Write([]byte{1})
		digestWriteU64(h, tmp, *m.ReceiverFailedTick)
	} else {
		h.Write([]byte{0})
	}
	if g, ok := m.Goal(MaintenanceGoal); ok && g != nil {
		last, _ := g.Uint("last_maintained")
		interval, _ := g.Uint("maintenance_interval_ticks")
		digestWriteU64(h, tmp, last)
		digestWriteU64(h, tmp, interval)
	}
}

// digestOptRates distinguishes a nil map from an empty one.
func digestOptRates(h hashWriter, tmp *[8]byte, m map[string]float64) {
	if m == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	digestRates(h, tmp, m)
}

func digestRates(h hashWriter, tmp *[8]byte, m map[string]float64) {
	keys := SortedKeys(m)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		digestString(h, tmp, k)
		digestFloat(h, tmp, m[k])
	}
}

func digestString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestFloat(h hashWriter, tmp *[8]byte, f float64) {
	digestWriteU64(h, tmp, math.Float64bits(f))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

// digestOptBool writes 0 for absent, 1 for false and 2 for true.
func digestOptBool(h hashWriter, b *bool) {
	switch {
	case b == nil:
		h.Write([]byte{0})
	case *b:
		h.Write([]byte{2})
	default:
		h.Write([]byte{1})
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
