package simulation

import (
	"math/rand"
	"time"
)

// PositionSource produces in-bounds spawn/respawn coordinates. Implementations
// need not be deterministic, but must be safe for the single worker goroutine
// that owns the simulation — it is never called concurrently.
type PositionSource interface {
	NextPosition(bounds Bounds) (x, y float32)
}

// randomPositionSource places entities uniformly within bounds using a
// per-worker PRNG. The spec explicitly allows substituting any uniform
// in-bounds strategy (see SPEC_FULL.md Open Questions).
type randomPositionSource struct {
	rng *rand.Rand
}

// NewRandomPositionSource returns a PositionSource seeded from the current time.
func NewRandomPositionSource() PositionSource {
	return &randomPositionSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *randomPositionSource) NextPosition(bounds Bounds) (float32, float32) {
	x := bounds.MinX + s.rng.Float32()*(bounds.MaxX-bounds.MinX)
	y := bounds.MinY + s.rng.Float32()*(bounds.MaxY-bounds.MinY)
	return x, y
}
