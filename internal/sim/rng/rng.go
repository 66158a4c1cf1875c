// Package rng provides the reproducible random stream used by the tick engine.
//
// A generator's output depends only on its 64-bit seed. The engine derives a
// fresh generator for every tick with FromTick, so the randomness of tick N
// does not depend on how many draws earlier ticks made.
package rng

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"math/rand/v2"
)

// TickMix spreads consecutive tick numbers across the seed space.
const TickMix uint64 = 2654435761

type SeededRNG struct {
	seed  uint64
	src   *rand.Rand
	calls uint64
}

func New(seed uint64) *SeededRNG {
	return &SeededRNG{
		seed: seed,
		src:  rand.New(rand.NewChaCha8(expandSeed(seed))),
	}
}

// FromTick derives the generator for one tick: base + tick*TickMix (wrapping).
func FromTick(base, tick uint64) *SeededRNG {
	return New(base + tick*TickMix)
}

// expandSeed stretches a u64 into a ChaCha8 key with a PCG32 step per word.
func expandSeed(state uint64) [32]byte {
	const (
		mul uint64 = 6364136223846793005
		inc uint64 = 11634580027462260723
	)
	var key [32]byte
	for i := 0; i < len(key); i += 4 {
		state = state*mul + inc
		xorshifted := uint32(((state >> 18) ^ state) >> 27)
		rot := int(state >> 59)
		binary.LittleEndian.PutUint32(key[i:], bits.RotateLeft32(xorshifted, -rot))
	}
	return key
}

func (r *SeededRNG) Seed() uint64  { return r.seed }
func (r *SeededRNG) Calls() uint64 { return r.calls }

// Chance reports true with probability p, clamped to [0,1].
func (r *SeededRNG) Chance(p float64) bool {
	r.calls++
	switch {
	case p <= 0:
		_ = r.src.Uint64()
		return false
	case p >= 1:
		_ = r.src.Uint64()
		return true
	}
	return r.src.Float64() < p
}

// Float returns a uniform value in [0,1).
func (r *SeededRNG) Float() float64 {
	r.calls++
	return r.src.Float64()
}

// Range returns a uniform integer in [min, max]. Reversed bounds yield min.
func (r *SeededRNG) Range(min, max uint64) uint64 {
	r.calls++
	if max <= min {
		_ = r.src.Uint64()
		return min
	}
	span := max - min + 1
	if span == 0 {
		return r.src.Uint64()
	}
	return min + r.src.Uint64N(span)
}

// ChooseIndex picks an index in [0, n). ok is false when n is zero.
func (r *SeededRNG) ChooseIndex(n int) (idx int, ok bool) {
	if n <= 0 {
		return 0, false
	}
	r.calls++
	return r.src.IntN(n), true
}

// EntityID returns eight lowercase hex digits.
func (r *SeededRNG) EntityID() string {
	r.calls++
	return fmt.Sprintf("%08x", r.src.Uint32())
}

// VisitorID returns "v_" followed by six lowercase hex digits.
func (r *SeededRNG) VisitorID() string {
	r.calls++
	return fmt.Sprintf("v_%06x", r.src.Uint32()&0xFFFFFF)
}
