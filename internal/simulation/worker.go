package simulation

import (
	"time"

	"github.com/mantasimb/jetraiders/pkg/protocol"
)

// Config bundles everything a lobby needs to parameterize its worker beyond
// the stdlib defaults — primarily so tests can run a worker at an
// accelerated tick rate or with a fixed PositionSource.
type Config struct {
	TickInterval    time.Duration
	MatchTimeLimit  time.Duration // zero means no time limit
	Player          PlayerTuning
	Projectile      ProjectileTuning
	Bounds          Bounds
	Positions       PositionSource
	StartingCountdown time.Duration
}

// DefaultConfig returns the spec's default tuning at the default tick rate.
func DefaultConfig() Config {
	return Config{
		TickInterval:      TickInterval,
		Player:            DefaultPlayerTuning(),
		Projectile:        DefaultProjectileTuning(),
		Bounds:            DefaultBounds(),
		Positions:         NewRandomPositionSource(),
		StartingCountdown: MatchStartingCountdown,
	}
}

// Worker drives one lobby's fixed-step authoritative simulation.
type Worker struct {
	cfg   Config
	state *StateSlot

	entities    []*Entity
	entityIndex map[uint64]int
	projectiles []*Projectile
	nextProjID  uint64
	tick        uint64
	matchElapsed time.Duration
	matchEnded   bool
}

// NewWorker constructs a Worker bound to the given lobby state slot.
func NewWorker(cfg Config, state *StateSlot) *Worker {
	return &Worker{
		cfg:         cfg,
		state:       state,
		entityIndex: make(map[uint64]int),
		nextProjID:  1, // zero is never a valid projectile id
	}
}

// Run executes the worker's lifecycle: MatchStarting countdown, MatchRunning
// tick loop, until done is closed. It never returns an error — every
// invariant is maintained by construction (spec.md §4.3 "Failure semantics").
func (w *Worker) Run(events <-chan GameEvent, snapshots chan<- WorldSnapshot, done <-chan struct{}) {
	w.state.Set(protocol.StateMatchStarting(uint32(w.cfg.StartingCountdown / time.Second)))

	select {
	case <-done:
		return
	case <-time.After(w.cfg.StartingCountdown):
	}

	w.state.Set(protocol.StateMatchRunning())

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.step(events, snapshots)
		}
	}
}

// step advances the simulation by exactly one tick.
func (w *Worker) step(events <-chan GameEvent, snapshots chan<- WorldSnapshot) {
	dt := float32(w.cfg.TickInterval.Seconds())

	if !w.matchEnded && w.cfg.MatchTimeLimit > 0 {
		w.matchElapsed += w.cfg.TickInterval
		if w.matchElapsed >= w.cfg.MatchTimeLimit {
			w.state.Set(protocol.StateMatchEnded())
			w.matchEnded = true
		}
	}

	w.drainEvents(events)

	for _, e := range w.entities {
		if !e.Alive {
			e.RespawnTimer -= dt
			if e.RespawnTimer <= 0 {
				x, y := w.cfg.Positions.NextPosition(w.cfg.Bounds)
				respawnEntity(e, x, y, w.cfg.Player)
			}
			continue
		}
		stepShip(e, dt, w.cfg.Player, w.cfg.Bounds)
		if p := maybeShoot(e, dt, w.cfg.Player, w.cfg.Projectile, &w.nextProjID); p != nil {
			w.projectiles = append(w.projectiles, p)
		}
	}

	integrateProjectiles(w.projectiles, dt)
	resolveHits(w.entities, w.projectiles, w.cfg.Player, w.cfg.Projectile)
	w.projectiles = compactProjectiles(w.projectiles)

	w.tick++
	snap := w.buildSnapshot()
	select {
	case snapshots <- snap:
	default:
		// No subscriber keeping up (or an empty lobby); expected per spec.
	}
}

func (w *Worker) drainEvents(events <-chan GameEvent) {
	for {
		select {
		case ev := <-events:
			w.applyEvent(ev)
		default:
			return
		}
	}
}

func (w *Worker) applyEvent(ev GameEvent) {
	switch ev.Kind {
	case EventJoin:
		if _, exists := w.entityIndex[ev.PlayerID]; exists {
			return // duplicate Join is idempotent
		}
		x, y := w.cfg.Positions.NextPosition(w.cfg.Bounds)
		e := &Entity{
			ID:    ev.PlayerID,
			X:     x,
			Y:     y,
			HP:    w.cfg.Player.MaxHP,
			Alive: true,
		}
		w.entityIndex[ev.PlayerID] = len(w.entities)
		w.entities = append(w.entities, e)

	case EventLeave:
		idx, exists := w.entityIndex[ev.PlayerID]
		if !exists {
			return
		}
		w.removeEntityAt(idx)
		w.projectiles = compactProjectilesOwnedBy(w.projectiles, ev.PlayerID)

	case EventInput:
		idx, exists := w.entityIndex[ev.PlayerID]
		if !exists {
			return
		}
		w.entities[idx].LastInput = PlayerInput{
			Thrust: ev.Input.Thrust,
			Turn:   ev.Input.Turn,
			Shoot:  ev.Input.Shoot,
		}
	}
}

// removeEntityAt deletes the entity at idx, preserving the relative
// insertion order of the remaining entities — hit resolution depends on
// stable, deterministic scan order (see SPEC_FULL.md §9).
func (w *Worker) removeEntityAt(idx int) {
	removedID := w.entities[idx].ID
	w.entities = append(w.entities[:idx], w.entities[idx+1:]...)
	delete(w.entityIndex, removedID)
	for i := idx; i < len(w.entities); i++ {
		w.entityIndex[w.entities[i].ID] = i
	}
}

func (w *Worker) buildSnapshot() WorldSnapshot {
	entitySnaps := make([]EntitySnapshot, 0, len(w.entities))
	for _, e := range w.entities {
		if !e.Alive {
			continue
		}
		entitySnaps = append(entitySnaps, EntitySnapshot{ID: e.ID, X: e.X, Y: e.Y, Rot: e.Rot, HP: e.HP})
	}
	projSnaps := make([]ProjectileSnapshot, 0, len(w.projectiles))
	for _, p := range w.projectiles {
		if p.TTL <= 0 {
			continue
		}
		projSnaps = append(projSnaps, ProjectileSnapshot{ID: p.ID, OwnerID: p.OwnerID, X: p.X, Y: p.Y, Rot: p.Rot})
	}
	return WorldSnapshot{Tick: w.tick, Entities: entitySnaps, Projectiles: projSnaps}
}
