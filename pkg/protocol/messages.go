// Package protocol defines the JSON wire format exchanged between the
// game service and its WebSocket clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType tags the envelope of every client<->server frame.
type MessageType string

const (
	// Client-to-server
	TypeJoin  MessageType = "Join"
	TypeInput MessageType = "Input"

	// Server-to-client
	TypeIdentity    MessageType = "Identity"
	TypeGameState   MessageType = "GameState"
	TypeWorldUpdate MessageType = "WorldUpdate"
)

// Envelope is the outer shape of every text frame: {"type": "...", "data": {...}}.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinData is the payload of a client Join frame.
type JoinData struct {
	SessionToken string `json:"session_token"`
	GuestID      string `json:"guest_id,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
}

// InputData is the payload of a client Input frame.
//
// A legacy client may send this object directly at the top level instead of
// wrapped in an Envelope; callers decode both shapes (see DecodeInput).
type InputData struct {
	Thrust float32 `json:"thrust"`
	Turn   float32 `json:"turn"`
	Shoot  bool    `json:"shoot"`
}

// IdentityData is the payload of the server's Identity frame.
type IdentityData struct {
	PlayerID uint64 `json:"player_id"`
}

// EntityUpdate is one entity's contribution to a WorldUpdate frame.
type EntityUpdate struct {
	ID  uint64  `json:"id"`
	X   float32 `json:"x"`
	Y   float32 `json:"y"`
	Rot float32 `json:"rot"`
	HP  int32   `json:"hp"`
}

// ProjectileUpdate is one projectile's contribution to a WorldUpdate frame.
type ProjectileUpdate struct {
	ID      uint64  `json:"id"`
	OwnerID uint64  `json:"owner_id"`
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Rot     float32 `json:"rot"`
}

// WorldUpdateData is the payload of a server WorldUpdate frame.
type WorldUpdateData struct {
	Tick        uint64             `json:"tick"`
	Entities    []EntityUpdate     `json:"entities"`
	Projectiles []ProjectileUpdate `json:"projectiles"`
}

// NewEnvelope marshals payload and wraps it in an Envelope of the given type.
func NewEnvelope(t MessageType, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Data: raw}, nil
}

// Encode marshals an Envelope carrying payload into wire bytes.
func Encode(t MessageType, payload interface{}) ([]byte, error) {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeInput accepts either an Envelope{"type":"Input","data":{...}} frame or
// a bare legacy PlayerInput object and returns the sanitized-free InputData.
func DecodeInput(raw []byte) (InputData, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Type == TypeInput {
		var data InputData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return InputData{}, fmt.Errorf("protocol: decode input data: %w", err)
		}
		return data, nil
	}

	var legacy InputData
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return InputData{}, fmt.Errorf("protocol: decode legacy input: %w", err)
	}
	return legacy, nil
}
