package ports

import (
	"math/rand"
	"sync"
)

// Random is the only source of chance in the engine: response rolls,
// persona draws and fallback picks all go through it.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// NewSeededRandom returns a deterministic source for the given seed. It is
// safe for concurrent use.
func NewSeededRandom(seed int64) Random {
	return &lockedRandom{rng: rand.New(rand.NewSource(seed))}
}

type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
