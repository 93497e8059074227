// Package simulation implements the per-lobby authoritative fixed-step
// world simulation: ship movement, shooting, projectile collision, and
// match lifecycle.
package simulation

import "github.com/mantasimb/jetraiders/pkg/protocol"

// PlayerInput is a single player's sanitized control intent for one tick.
type PlayerInput struct {
	Thrust float32
	Turn   float32
	Shoot  bool
}

// Entity is a living (or respawning) ship owned exclusively by the worker
// goroutine that steps it.
type Entity struct {
	ID            uint64
	X, Y          float32
	Rot           float32
	HP            int32
	Alive         bool
	RespawnTimer  float32
	Throttle      float32
	LastInput     PlayerInput
	ShootCooldown float32
}

// Projectile is a single shot in flight, owned exclusively by the worker.
type Projectile struct {
	ID      uint64
	OwnerID uint64
	X, Y    float32
	Rot     float32
	VX, VY  float32
	TTL     float32
}

// EventKind tags a GameEvent's payload.
type EventKind uint8

const (
	EventJoin EventKind = iota
	EventLeave
	EventInput
)

// GameEvent is one item on a lobby's input sink, processed in FIFO order.
type GameEvent struct {
	Kind     EventKind
	PlayerID uint64
	Input    PlayerInput
}

// WorldSnapshot is one tick's published view of the world.
type WorldSnapshot struct {
	Tick        uint64
	Entities    []EntitySnapshot
	Projectiles []ProjectileSnapshot
}

// EntitySnapshot is the externally visible subset of a living Entity.
type EntitySnapshot struct {
	ID  uint64
	X   float32
	Y   float32
	Rot float32
	HP  int32
}

// ProjectileSnapshot is the externally visible subset of a live Projectile.
type ProjectileSnapshot struct {
	ID      uint64
	OwnerID uint64
	X       float32
	Y       float32
	Rot     float32
}

// ToWire converts a WorldSnapshot into its JSON wire representation.
func (w WorldSnapshot) ToWire() protocol.WorldUpdateData {
	entities := make([]protocol.EntityUpdate, len(w.Entities))
	for i, e := range w.Entities {
		entities[i] = protocol.EntityUpdate{ID: e.ID, X: e.X, Y: e.Y, Rot: e.Rot, HP: e.HP}
	}
	projectiles := make([]protocol.ProjectileUpdate, len(w.Projectiles))
	for i, p := range w.Projectiles {
		projectiles[i] = protocol.ProjectileUpdate{ID: p.ID, OwnerID: p.OwnerID, X: p.X, Y: p.Y, Rot: p.Rot}
	}
	return protocol.WorldUpdateData{Tick: w.Tick, Entities: entities, Projectiles: projectiles}
}
