// Package rng provides the seedable xorshift generator that drives all procedural
// generation. Output is fully determined by the seed.
package rng

import (
	"math"
	"time"
)

// zeroStateReplacement stands in for a seed that folds to zero, the fixed point of xorshift.
const zeroStateReplacement uint32 = 0x9E3779B9

// Rand is a 32-bit xorshift generator.
//
// Invariant: state is never zero.
type Rand struct {
	seed  int64
	state uint32
}

// New returns a generator seeded with seed.
//
// Postcondition: Two generators created with the same seed produce identical sequences.
func New(seed int64) *Rand {
	r := &Rand{}
	r.SetSeed(seed)
	return r
}

// NewFromTime returns a generator seeded with the current time.
func NewFromTime() *Rand {
	return New(time.Now().UnixNano())
}

// SetSeed resets the generator so subsequent output depends only on seed.
func (r *Rand) SetSeed(seed int64) {
	r.seed = seed
	s := uint32(seed) ^ uint32(uint64(seed)>>32)
	if s == 0 {
		s = zeroStateReplacement
	}
	r.state = s
}

// Seed returns the seed last passed to New or SetSeed.
func (r *Rand) Seed() int64 {
	return r.seed
}

func (r *Rand) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Int32 returns the next raw output as a signed 32-bit integer.
func (r *Rand) Int32() int32 {
	return int32(r.next())
}

// Float returns a value in [0, 1).
func (r *Rand) Float() float64 {
	return float64(r.next()) / (math.MaxUint32 + 1.0)
}

// Range returns floor(Float()*(max-min))+min, a value in [min, max) when max > min.
func (r *Rand) Range(min, max int) int {
	return int(math.Floor(r.Float()*float64(max-min))) + min
}

// Intn returns a value in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" otherwise.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	return r.Range(0, n)
}

// Bool returns true with probability one half.
func (r *Rand) Bool() bool {
	return r.Float() < 0.5
}

// Chance returns true with probability p. Exactly one value is consumed.
func (r *Rand) Chance(p float64) bool {
	return r.Float() < p
}

// Element returns a uniformly chosen element of list.
//
// Precondition: len(list) > 0. Panics with "rng: Element called with empty list" otherwise.
func Element[T any](r *Rand, list []T) T {
	if len(list) == 0 {
		panic("rng: Element called with empty list")
	}
	return list[r.Range(0, len(list))]
}

// WeightedIndex picks an index with probability proportional to its weight. The roll is
// scanned in order, subtracting each weight; the first index whose remainder drops to
// zero or below wins, so ties favor earlier entries.
//
// Precondition: weights must be non-negative with a positive sum. Panics otherwise.
// Postcondition: Returns an index whose weight is positive.
func (r *Rand) WeightedIndex(weights []float64) int {
	sum := 0.0
	last := -1
	for i, w := range weights {
		if w < 0 {
			panic("rng: WeightedIndex called with a negative weight")
		}
		if w > 0 {
			sum += w
			last = i
		}
	}
	if last < 0 {
		panic("rng: WeightedIndex called without positive weight")
	}

	remaining := r.Float() * sum
	for i, w := range weights {
		if w == 0 {
			continue
		}
		remaining -= w
		if remaining <= 0 {
			return i
		}
	}
	// Floating-point residue can leave a sliver above zero.
	return last
}
