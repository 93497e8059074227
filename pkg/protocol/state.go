package protocol

import (
	"encoding/json"
	"fmt"
)

// ServerState is the closed sum type tagging a lobby's match lifecycle:
// Lobby -> MatchStarting{in_seconds} -> MatchRunning -> MatchEnded.
type ServerState struct {
	kind      serverStateKind
	inSeconds uint32
}

type serverStateKind uint8

const (
	stateLobby serverStateKind = iota
	stateMatchStarting
	stateMatchRunning
	stateMatchEnded
)

// StateLobby is the initial state of every newly created lobby.
func StateLobby() ServerState { return ServerState{kind: stateLobby} }

// StateMatchStarting carries the countdown, in seconds, until the match begins.
func StateMatchStarting(inSeconds uint32) ServerState {
	return ServerState{kind: stateMatchStarting, inSeconds: inSeconds}
}

// StateMatchRunning is the steady-state tick-driven simulation phase.
func StateMatchRunning() ServerState { return ServerState{kind: stateMatchRunning} }

// StateMatchEnded is the terminal state; only further disconnects follow it.
func StateMatchEnded() ServerState { return ServerState{kind: stateMatchEnded} }

// IsMatchEnded reports whether the state has reached MatchEnded.
func (s ServerState) IsMatchEnded() bool { return s.kind == stateMatchEnded }

// InSeconds returns the MatchStarting countdown (zero for any other state).
func (s ServerState) InSeconds() uint32 { return s.inSeconds }

func (s ServerState) String() string {
	switch s.kind {
	case stateLobby:
		return "Lobby"
	case stateMatchStarting:
		return fmt.Sprintf("MatchStarting{in_seconds:%d}", s.inSeconds)
	case stateMatchRunning:
		return "MatchRunning"
	case stateMatchEnded:
		return "MatchEnded"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders "Lobby"/"MatchRunning"/"MatchEnded" as bare strings and
// MatchStarting as {"MatchStarting":{"in_seconds":N}}, per the wire contract.
func (s ServerState) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case stateLobby:
		return json.Marshal("Lobby")
	case stateMatchRunning:
		return json.Marshal("MatchRunning")
	case stateMatchEnded:
		return json.Marshal("MatchEnded")
	case stateMatchStarting:
		return json.Marshal(struct {
			MatchStarting struct {
				InSeconds uint32 `json:"in_seconds"`
			} `json:"MatchStarting"`
		}{
			MatchStarting: struct {
				InSeconds uint32 `json:"in_seconds"`
			}{InSeconds: s.inSeconds},
		})
	default:
		return nil, fmt.Errorf("protocol: unknown server state kind %d", s.kind)
	}
}

// UnmarshalJSON accepts both the bare-string and tagged-object forms.
func (s *ServerState) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		switch bare {
		case "Lobby":
			*s = StateLobby()
			return nil
		case "MatchRunning":
			*s = StateMatchRunning()
			return nil
		case "MatchEnded":
			*s = StateMatchEnded()
			return nil
		default:
			return fmt.Errorf("protocol: unknown server state %q", bare)
		}
	}

	var tagged struct {
		MatchStarting *struct {
			InSeconds uint32 `json:"in_seconds"`
		} `json:"MatchStarting"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("protocol: decode server state: %w", err)
	}
	if tagged.MatchStarting == nil {
		return fmt.Errorf("protocol: unrecognized server state payload %s", data)
	}
	*s = StateMatchStarting(tagged.MatchStarting.InSeconds)
	return nil
}
