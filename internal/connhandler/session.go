package connhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mantasimb/jetraiders/internal/broadcast"
	"github.com/mantasimb/jetraiders/internal/identity"
	"github.com/mantasimb/jetraiders/internal/registry"
	"github.com/mantasimb/jetraiders/internal/simulation"
	"github.com/mantasimb/jetraiders/internal/throttle"
	"github.com/mantasimb/jetraiders/pkg/logger"
	"github.com/mantasimb/jetraiders/pkg/protocol"
)

// bootstrapState names the connection's position in the strict one-way
// bootstrap sequence (SPEC_FULL.md §4.5).
type bootstrapState int

const (
	stateAwaitingJoin bootstrapState = iota
	stateAuthenticating
	stateRegistering
	stateRunning
	stateTerminating
)

// connSession owns one socket exclusively end to end: bootstrap handshake,
// main loop multiplexing, and disconnect cleanup.
type connSession struct {
	conn     *websocket.Conn
	lobby    *registry.Lobby
	registry *registry.Registry
	verifier identity.Verifier
	log      logger.Logger
	cfg      Config
	limiter  *throttle.Limiter

	state bootstrapState

	playerID      uint64
	connToken     uint64
	joined        bool // a Join event was sent into the worker
	registered    bool // registry.RegisterConnection succeeded
	invalidJSON   int
	bytesForward  int
	messagesIn    int
	bytesLagged   uint64 // total broadcast messages missed and resynced from Latest

	bytesSub    *broadcast.Subscription
	stateCh     <-chan protocol.ServerState
	cancelState func()
	shutdownCh  <-chan struct{}
	frames      chan wsFrame
}

// run drives the full connection lifecycle: bootstrap, main loop, cleanup.
func (s *connSession) run() {
	defer s.conn.Close()

	s.conn.SetReadLimit(s.cfg.ReadLimitBytes)

	// Subscribe to every fan-out source before any blocking read, so no
	// snapshots or state transitions can be missed during the handshake
	// (SPEC_FULL.md §4.5 step 1).
	s.bytesSub = s.lobby.SubscribeBytes()
	s.stateCh, s.cancelState = s.lobby.State().Subscribe()
	defer s.cancelState()
	defer s.bytesSub.Unsubscribe()

	s.frames = make(chan wsFrame, 1)
	go readLoop(s.conn, s.frames)

	if err := s.bootstrap(); err != nil {
		s.state = stateTerminating
		s.closeWithError(err)
		s.cleanup()
		return
	}

	s.state = stateRunning
	s.mainLoop()

	s.state = stateTerminating
	s.cleanup()
}

// bootstrap performs the strict-order handshake: join read, identity
// verification, connection-token registration, Identity/Join/GameState
// send, and registry registration. Errors from the join read or identity
// verification return before any lobby state is touched. Later errors can
// follow the player-connection claim and the Join event; the caller's
// cleanup then sends Leave if Join was sent and releases the slot if this
// connection still owns it.
func (s *connSession) bootstrap() error {
	s.state = stateAwaitingJoin
	joinData, err := s.awaitJoin()
	if err != nil {
		return err
	}

	s.state = stateAuthenticating
	ident, err := s.authenticate(joinData.SessionToken)
	if err != nil {
		return err
	}
	s.playerID = ident.UserID

	s.state = stateRegistering
	s.connToken = nextConnToken()
	s.shutdownCh = s.lobby.RegisterOrReplacePlayerConnection(s.playerID, s.connToken)

	if err := s.sendEnvelope(protocol.TypeIdentity, protocol.IdentityData{PlayerID: s.playerID}); err != nil {
		return fmt.Errorf("%w: send identity: %v", ErrSerialization, err)
	}

	if s.lobby.IsAllowed(s.playerID) {
		select {
		case s.lobby.Events() <- simulation.GameEvent{Kind: simulation.EventJoin, PlayerID: s.playerID}:
			s.joined = true
		default:
			s.log.Warn("connhandler: lobby %s input sink full, dropping Join for player %d", s.lobby.ID, s.playerID)
		}
	}

	if err := s.sendEnvelope(protocol.TypeGameState, s.lobby.State().Get()); err != nil {
		return fmt.Errorf("%w: send game state: %v", ErrSerialization, err)
	}

	if _, ok := s.registry.RegisterConnection(s.lobby.ID); !ok {
		return ErrLobbyUnavailable
	}
	s.registered = true

	return nil
}

// awaitJoin reads exactly one text frame, bounded by the handshake timeout,
// and parses it as a Join envelope.
func (s *connSession) awaitJoin() (protocol.JoinData, error) {
	select {
	case <-time.After(s.cfg.HandshakeTimeout):
		return protocol.JoinData{}, ErrJoinTimeout
	case frame, ok := <-s.frames:
		if !ok || frame.err != nil {
			return protocol.JoinData{}, ErrJoinRequired
		}
		if frame.msgType != websocket.TextMessage {
			return protocol.JoinData{}, ErrJoinRequired
		}
		var env protocol.Envelope
		if err := json.Unmarshal(frame.data, &env); err != nil || env.Type != protocol.TypeJoin {
			return protocol.JoinData{}, ErrJoinRequired
		}
		var data protocol.JoinData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return protocol.JoinData{}, ErrJoinRequired
		}
		return data, nil
	}
}

// authenticate validates and trims the session token, then verifies it
// against the identity service, mapping identity.* errors to this
// package's sentinels.
func (s *connSession) authenticate(rawToken string) (identity.VerifiedIdentity, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" || len(token) > s.cfg.MaxTokenLength {
		return identity.VerifiedIdentity{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandshakeTimeout)
	defer cancel()

	ident, err := s.verifier.VerifyToken(ctx, token)
	switch {
	case err == nil:
		return ident, nil
	case errors.Is(err, identity.ErrSessionExpired):
		return identity.VerifiedIdentity{}, ErrSessionExpired
	case errors.Is(err, identity.ErrInvalidToken):
		return identity.VerifiedIdentity{}, ErrInvalidToken
	default:
		return identity.VerifiedIdentity{}, ErrUpstreamUnavailable
	}
}

func (s *connSession) sendEnvelope(t protocol.MessageType, payload interface{}) error {
	encoded, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}
	return s.writeText(encoded)
}

func (s *connSession) writeText(data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// closeWithError sends a close frame carrying the reason derived from err
// and the appropriate close code, matching SPEC_FULL.md §6's table.
func (s *connSession) closeWithError(err error) {
	code := closeCode(err)
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, closeReason(err)))
}

func closeReason(err error) string {
	switch {
	case errors.Is(err, ErrJoinRequired):
		return "join required"
	case errors.Is(err, ErrJoinTimeout):
		return "join timeout"
	case errors.Is(err, ErrInvalidToken):
		return "invalid token"
	case errors.Is(err, ErrSessionExpired):
		return "session expired"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream unavailable"
	case errors.Is(err, ErrLobbyUnavailable):
		return "lobby unavailable"
	case errors.Is(err, ErrTooManyInvalidJSON):
		return "too many invalid messages"
	case errors.Is(err, ErrSerialization):
		return "serialization error"
	default:
		if _, ok := err.(unsupportedData); ok {
			return "unsupported data"
		}
		return "connection replaced"
	}
}
