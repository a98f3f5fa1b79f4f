package tuning

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniform samples in [0, 1).
type RandomSource interface {
	Float64() float64
}

// NewRand returns a deterministic PCG-backed source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedSource serializes access to a RandomSource shared across requests.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
