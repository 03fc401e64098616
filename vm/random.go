package vm

import (
	"math/rand/v2"
	"time"
)

// random is the generator behind the random opcode. A nonzero seed gives
// a reproducible sequence.
type random struct {
	src *rand.Rand
}

func (r *random) seed(s uint32) {
	seed := uint64(s)
	if s == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r.src = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// next implements random: 0 gives any word, a positive range gives
// [0, n) and a negative range gives (n, 0].
func (r *random) next(n uint32) uint32 {
	v := r.src.Uint32()
	switch rng := int32(n); {
	case rng == 0:
		return v
	case rng > 0:
		return v % n
	default:
		return -(v % -n)
	}
}
