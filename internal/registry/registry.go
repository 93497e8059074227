// Package registry is the process-wide lobby registry: the single source of
// truth for the set of live lobbies, generalized from the teacher's
// models.LobbyManager (map[string]*Lobby behind sync.RWMutex) to the arena
// game's LobbyHandle shape.
package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mantasimb/jetraiders/internal/broadcast"
	"github.com/mantasimb/jetraiders/internal/simulation"
	"github.com/mantasimb/jetraiders/pkg/logger"
)

// ErrAlreadyExists is returned by CreateLobby when id is already registered.
var ErrAlreadyExists = errors.New("registry: lobby already exists")

// Lobby is the externally shared handle for one lobby. It carries only
// channel endpoints, atomic counters, and slot pointers — the registry alone
// owns the worker/serializer goroutine lifetime (SPEC_FULL.md §9).
type Lobby struct {
	ID             string
	AllowedPlayers map[uint64]struct{}
	Pinned         bool

	activeConnections atomic.Int64

	events    chan simulation.GameEvent
	snapshots chan simulation.WorldSnapshot
	bytesOut  *broadcast.Broadcaster
	state     *simulation.StateSlot
	done      chan struct{}
	doneOnce  sync.Once

	connMu          sync.Mutex
	playerConns     map[uint64]uint64
	playerShutdowns map[uint64]chan struct{}
}

// IsAllowed reports whether playerID may spawn an entity in this lobby. An
// empty AllowedPlayers set means "open lobby" — everyone is allowed.
func (l *Lobby) IsAllowed(playerID uint64) bool {
	if len(l.AllowedPlayers) == 0 {
		return true
	}
	_, ok := l.AllowedPlayers[playerID]
	return ok
}

// ActiveConnections returns the current connection count.
func (l *Lobby) ActiveConnections() int64 { return l.activeConnections.Load() }

// Events returns the send side of the lobby's bounded input sink.
func (l *Lobby) Events() chan<- simulation.GameEvent { return l.events }

// State returns the lobby's server-state slot.
func (l *Lobby) State() *simulation.StateSlot { return l.state }

// SubscribeBytes subscribes to the serialized snapshot broadcast.
func (l *Lobby) SubscribeBytes() *broadcast.Subscription { return l.bytesOut.Subscribe() }

// LatestBytes returns the most recently broadcast snapshot bytes, for lag recovery.
func (l *Lobby) LatestBytes() []byte { return l.bytesOut.Latest() }

// Done returns the lobby's shutdown signal.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// RegisterOrReplacePlayerConnection installs (playerID -> newToken). If a
// previous token existed, its shutdown channel is closed so the older
// connection self-terminates. Returns the channel the new connection must
// watch.
func (l *Lobby) RegisterOrReplacePlayerConnection(playerID, newToken uint64) <-chan struct{} {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if oldShutdown, ok := l.playerShutdowns[playerID]; ok {
		close(oldShutdown)
	}
	shutdown := make(chan struct{})
	l.playerConns[playerID] = newToken
	l.playerShutdowns[playerID] = shutdown
	return shutdown
}

// UnregisterPlayerConnectionIfOwner removes the mapping only if token is
// still the current owner — a late disconnect must not evict a newer,
// already-registered connection.
func (l *Lobby) UnregisterPlayerConnectionIfOwner(playerID, token uint64) {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if current, ok := l.playerConns[playerID]; ok && current == token {
		delete(l.playerConns, playerID)
		delete(l.playerShutdowns, playerID)
	}
}

func (l *Lobby) closeDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

// Registry is the process-wide mapping from lobby id to active lobby.
type Registry struct {
	log logger.Logger

	mu      sync.RWMutex
	lobbies map[string]*Lobby
}

// New returns an empty Registry. Constructed once in cmd/server/main.go and
// injected into handlers — not a package-level singleton (SPEC_FULL.md §9
// "Global state" calls out avoiding hidden globals; this is the one place we
// deliberately diverge from the teacher's init()-singleton idiom).
func New(log logger.Logger) *Registry {
	return &Registry{log: log, lobbies: make(map[string]*Lobby)}
}

// CreateLobby allocates a new lobby, spawns its simulation worker and
// snapshot serializer, and registers it. Returns ErrAlreadyExists if id is
// already registered.
func (r *Registry) CreateLobby(id string, allowedPlayers []uint64, pinned bool, matchTimeLimit time.Duration) (*Lobby, error) {
	r.mu.Lock()
	if _, exists := r.lobbies[id]; exists {
		r.mu.Unlock()
		return nil, ErrAlreadyExists
	}

	allowed := make(map[uint64]struct{}, len(allowedPlayers))
	for _, p := range allowedPlayers {
		allowed[p] = struct{}{}
	}

	lobby := &Lobby{
		ID:              id,
		AllowedPlayers:  allowed,
		Pinned:          pinned,
		events:          make(chan simulation.GameEvent, 1024),
		snapshots:       make(chan simulation.WorldSnapshot, 128),
		bytesOut:        broadcast.New(),
		state:           simulation.NewStateSlot(),
		done:            make(chan struct{}),
		playerConns:     make(map[uint64]uint64),
		playerShutdowns: make(map[uint64]chan struct{}),
	}

	cfg := simulation.DefaultConfig()
	cfg.MatchTimeLimit = matchTimeLimit
	worker := simulation.NewWorker(cfg, lobby.state)

	go worker.Run(lobby.events, lobby.snapshots, lobby.done)
	go simulation.RunSerializer(r.log, lobby.snapshots, lobby.bytesOut, lobby.done)
	go r.spawnMatchEndWatcher(lobby)

	// Entry only becomes visible to readers after the worker/serializer are
	// spawned and the handle is fully initialized (SPEC_FULL.md §4.2 invariant).
	r.lobbies[id] = lobby
	r.mu.Unlock()

	r.log.Info("registry: created lobby %s (pinned=%v, allowed=%d)", id, pinned, len(allowed))
	return lobby, nil
}

// GetLobby looks up a lobby by id.
func (r *Registry) GetLobby(id string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	return l, ok
}

// RegisterConnection atomically increments active_connections. Returns false
// if the lobby vanished between lookup and registration; the caller must
// then compensate (leave, close).
func (r *Registry) RegisterConnection(id string) (*Lobby, bool) {
	r.mu.RLock()
	l, ok := r.lobbies[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	l.activeConnections.Add(1)
	return l, true
}

// RegisterDisconnect atomically decrements active_connections, saturating at
// zero against races. If the resulting count is 0, the lobby is not pinned,
// and the current state is MatchEnded, the entry is removed and its
// shutdown signal fired.
func (r *Registry) RegisterDisconnect(id string) {
	r.mu.RLock()
	l, ok := r.lobbies[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	for {
		cur := l.activeConnections.Load()
		if cur <= 0 {
			break
		}
		if l.activeConnections.CompareAndSwap(cur, cur-1) {
			break
		}
	}

	if l.activeConnections.Load() == 0 && !l.Pinned && l.state.Get().IsMatchEnded() {
		r.removeIfPresent(id, l)
	}
}

// spawnMatchEndWatcher waits for lobby's state to reach MatchEnded; on
// transition, if connections are 0 and the lobby is not pinned, removes the
// entry and signals shutdown.
func (r *Registry) spawnMatchEndWatcher(lobby *Lobby) {
	ch, cancel := lobby.state.Subscribe()
	defer cancel()

	if lobby.state.Get().IsMatchEnded() {
		r.maybeCleanupEnded(lobby)
		return
	}

	for {
		select {
		case <-lobby.done:
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			if st.IsMatchEnded() {
				r.maybeCleanupEnded(lobby)
				return
			}
		}
	}
}

func (r *Registry) maybeCleanupEnded(lobby *Lobby) {
	if lobby.activeConnections.Load() == 0 && !lobby.Pinned {
		r.removeIfPresent(lobby.ID, lobby)
	}
}

// removeIfPresent removes id from the map exactly once and fires its
// shutdown signal. Safe to call concurrently from multiple paths
// (RegisterDisconnect and the match-end watcher can race harmlessly).
func (r *Registry) removeIfPresent(id string, expect *Lobby) {
	r.mu.Lock()
	cur, ok := r.lobbies[id]
	if ok && cur == expect {
		delete(r.lobbies, id)
	}
	r.mu.Unlock()

	if ok && cur == expect {
		expect.closeDone()
		r.log.Info("registry: removed lobby %s", id)
	}
}
