package connhandler

import (
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/mantasimb/jetraiders/internal/simulation"
	"github.com/mantasimb/jetraiders/pkg/protocol"
)

// mainLoop cooperatively multiplexes the four sources named in
// SPEC_FULL.md §4.5: socket receive, bytes broadcast, server-state change,
// and the per-player shutdown signal. Returns once a fatal condition is hit.
func (s *connSession) mainLoop() {
	for {
		select {
		case frame, ok := <-s.frames:
			if !ok || frame.err != nil {
				return
			}
			if !s.handleFrame(frame) {
				return
			}

		case msg, ok := <-s.bytesSub.C():
			if !ok {
				s.log.Error("connhandler: player %d bytes broadcast closed", s.playerID)
				return
			}
			data := msg.Data
			if msg.Lagged > 0 {
				s.bytesLagged += msg.Lagged
				if s.limiter.Allow("bytes-lagged") {
					s.log.Warn("connhandler: player %d lagged behind lobby %s broadcast (%d dropped), resyncing from latest",
						s.playerID, s.lobby.ID, msg.Lagged)
				}
				if latest := s.lobby.LatestBytes(); latest != nil {
					data = latest
				}
			}
			if err := s.writeText(data); err != nil {
				return
			}
			s.bytesForward++

		case _, ok := <-s.stateCh:
			if !ok {
				s.log.Error("connhandler: player %d server state source closed", s.playerID)
				return
			}
			if err := s.sendEnvelope(protocol.TypeGameState, s.lobby.State().Get()); err != nil {
				return
			}

		case <-s.shutdownCh:
			s.closeWithError(errConnectionReplaced)
			return
		}
	}
}

// errConnectionReplaced is a distinct sentinel so closeReason's default
// branch ("connection replaced") is reached deliberately, not by fallthrough.
var errConnectionReplaced = newReplacedError()

func newReplacedError() error {
	return &replacedError{}
}

type replacedError struct{}

func (*replacedError) Error() string { return "connhandler: connection replaced" }

// handleFrame processes one socket frame during the Running state. Returns
// false if the connection must terminate.
func (s *connSession) handleFrame(frame wsFrame) bool {
	s.messagesIn++

	switch frame.msgType {
	case websocket.BinaryMessage:
		s.closeWithError(errUnsupportedData)
		return false

	case websocket.TextMessage:
		return s.handleTextFrame(frame.data)

	default:
		// Ping/Pong/Close control frames: gorilla/websocket handles Ping/Pong
		// automatically via its internal handlers; a Close frame surfaces
		// here as a read error on the next ReadMessage, not as msgType, so
		// reaching here with neither Binary nor Text is a no-op.
		return true
	}
}

var errUnsupportedData = &unsupportedDataError{}

type unsupportedDataError struct{}

func (*unsupportedDataError) Error() string { return "connhandler: binary frame unsupported" }
func (*unsupportedDataError) unsupportedData() {}

func (s *connSession) handleTextFrame(data []byte) bool {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return s.onInvalidJSON()
	}

	switch env.Type {
	case protocol.TypeJoin:
		if s.limiter.Allow("repeat-join") {
			s.log.Warn("connhandler: player %d sent Join after bootstrap, ignoring", s.playerID)
		}
		return true

	case protocol.TypeInput:
		input, err := protocol.DecodeInput(data)
		if err != nil {
			return s.onInvalidJSON()
		}
		s.forwardInput(input)
		return true

	default:
		// Unrecognized type tag: treat as a bare legacy PlayerInput payload,
		// since DecodeInput already falls back to that shape.
		input, err := protocol.DecodeInput(data)
		if err != nil {
			return s.onInvalidJSON()
		}
		s.forwardInput(input)
		return true
	}
}

func (s *connSession) onInvalidJSON() bool {
	s.invalidJSON++
	if s.invalidJSON > s.cfg.MaxInvalidJSON {
		s.closeWithError(ErrTooManyInvalidJSON)
		return false
	}
	if s.limiter.Allow("invalid-json") {
		s.log.Warn("connhandler: player %d sent invalid JSON (%d so far)", s.playerID, s.invalidJSON)
	}
	return true
}

// forwardInput sanitizes and forwards a PlayerInput to the worker. Drops
// silently (throttled log) if this connection isn't allowed to spawn, or if
// the worker's input sink is full.
func (s *connSession) forwardInput(data protocol.InputData) {
	if !s.lobby.IsAllowed(s.playerID) {
		if s.limiter.Allow("spectator-input") {
			s.log.Warn("connhandler: player %d is a spectator, dropping input", s.playerID)
		}
		return
	}

	thrust := sanitize(data.Thrust)
	turn := sanitize(data.Turn)

	ev := simulation.GameEvent{
		Kind:     simulation.EventInput,
		PlayerID: s.playerID,
		Input: simulation.PlayerInput{
			Thrust: thrust,
			Turn:   turn,
			Shoot:  data.Shoot,
		},
	}

	select {
	case s.lobby.Events() <- ev:
	default:
		if s.limiter.Allow("input-full") {
			s.log.Warn("connhandler: lobby %s input sink full, dropping input from player %d", s.lobby.ID, s.playerID)
		}
	}
}

// sanitize clamps to [-1,1] and rejects non-finite values by zeroing them,
// per SPEC_FULL.md §4.5 ("reject non-finite, clamp thrust/turn to [-1,1]").
func sanitize(v float32) float32 {
	if v != v || v > 1e38 || v < -1e38 { // NaN or effectively non-finite
		return 0
	}
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// cleanup always runs on the way out: best-effort Leave, registry
// disconnect accounting, and player-connection slot release, guarded so a
// handshake failure (which never joined or registered) is a clean no-op.
func (s *connSession) cleanup() {
	if s.joined {
		select {
		case s.lobby.Events() <- simulation.GameEvent{Kind: simulation.EventLeave, PlayerID: s.playerID}:
		default:
			// Worker sink full or closed; best effort only.
		}
	}

	if s.registered {
		s.registry.RegisterDisconnect(s.lobby.ID)
	}

	if s.playerID != 0 || s.connToken != 0 {
		s.lobby.UnregisterPlayerConnectionIfOwner(s.playerID, s.connToken)
	}

	s.log.Debug("connhandler: player %d disconnected (bytes_forwarded=%d, bytes_lagged=%d, messages_in=%d, invalid_json=%d)",
		s.playerID, s.bytesForward, s.bytesLagged, s.messagesIn, s.invalidJSON)
}
