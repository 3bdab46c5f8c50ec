// Package engine defines the contract between a game's rules implementation
// and the generic client/server machinery. The server owns the authoritative
// state S; each client mirrors a redacted view CS and keeps it current by
// applying the effects the server fans out.
package engine

import (
	"encoding/json"
	"fmt"
)

// UserID identifies a user within one room. IDs are assigned by the room and
// never reused for its lifetime.
type UserID int

// TxID identifies one client's update attempt. IDs are scoped to the issuing
// client; the server only ever echoes them back to their source.
type TxID int64

// User is a room roster entry.
type User struct {
	ID   UserID `json:"id"`
	Nick string `json:"nick"`
}

// Protocol action verbs. These are roster-level events that exist outside any
// particular game's rules but still flow through the engine so it can react
// to membership changes.
const (
	UserJoin = "user:join"
	UserPart = "user:part"
)

// ProtocolAction is a roster event. Who is set for user:join, ID for
// user:part.
type ProtocolAction struct {
	Verb string `json:"verb"`
	Who  *User  `json:"who,omitempty"`
	ID   UserID `json:"id,omitempty"`
}

// JoinAction builds the roster event announcing u.
func JoinAction(u User) ProtocolAction {
	return ProtocolAction{Verb: UserJoin, Who: &u}
}

// PartAction builds the roster event retiring the given user id.
func PartAction(id UserID) ProtocolAction {
	return ProtocolAction{Verb: UserPart, ID: id}
}

// CommandKind discriminates the two sources of state transitions.
type CommandKind string

const (
	KindEngine   CommandKind = "engine"
	KindProtocol CommandKind = "protocol"
)

// Command wraps either an engine-level effect or a protocol action for
// transmission and application. The type parameter is the engine's action
// type on the server and its effect type on clients.
type Command[E any] struct {
	Kind     CommandKind
	Effect   E
	Protocol ProtocolAction
}

// EngineCmd wraps an engine effect.
func EngineCmd[E any](effect E) Command[E] {
	return Command[E]{Kind: KindEngine, Effect: effect}
}

// ProtocolCmd wraps a protocol action. The effect slot stays zero.
func ProtocolCmd[E any](pa ProtocolAction) Command[E] {
	return Command[E]{Kind: KindProtocol, Protocol: pa}
}

type commandWire struct {
	Kind   CommandKind     `json:"kind"`
	Effect json.RawMessage `json:"effect"`
}

func (c Command[E]) MarshalJSON() ([]byte, error) {
	var effect any
	switch c.Kind {
	case KindEngine:
		effect = c.Effect
	case KindProtocol:
		effect = c.Protocol
	default:
		return nil, fmt.Errorf("command: unknown kind %q", c.Kind)
	}
	raw, err := json.Marshal(effect)
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandWire{Kind: c.Kind, Effect: raw})
}

func (c *Command[E]) UnmarshalJSON(data []byte) error {
	var wire commandWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case KindEngine:
		c.Kind = KindEngine
		return json.Unmarshal(wire.Effect, &c.Effect)
	case KindProtocol:
		c.Kind = KindProtocol
		return json.Unmarshal(wire.Effect, &c.Protocol)
	}
	return fmt.Errorf("command: unknown kind %q", wire.Kind)
}

// Prediction is the outcome of a client-side dry run of an intent. Either
// Err is set (the intent is known-invalid and should be rejected without a
// round trip) or State and Effect hold the optimistically-applied result.
type Prediction[CS, E, UE any] struct {
	State  CS
	Effect E
	Err    *UE
}

// Engine is the rules contract. Type parameters:
//
//	C  - room configuration
//	I  - client intent, what a user asks to do
//	S  - authoritative state, server only
//	A  - action, a validated intent bound to full state
//	CS - client state, a per-user redaction of S
//	E  - effect, a per-user redaction of A
//	UE - update error
//
// Listen, Apply and friends return *UE rather than error so an engine can
// carry structured rejection data; nil means success.
//
// State values are treated as immutable by the caller: Apply and ApplyClient
// return the successor state and must not mutate their argument in ways that
// are observable after an error return.
type Engine[C, I, S, A, CS, E, UE any] interface {
	// Init creates the authoritative state for a fresh room.
	Init(cfg C) S

	// Listen validates a user's intent against the authoritative state and
	// binds it into an action.
	Listen(s S, intent I, who User) (A, *UE)

	// Apply executes an action or protocol event against the authoritative
	// state.
	Apply(s S, cmd Command[A]) (S, *UE)

	// Predict dry-runs an intent against a client's view. A nil return means
	// the outcome cannot be determined locally and the client must wait for
	// the server; a Prediction with Err set means the intent is invalid.
	Predict(cs CS, intent I, who User) *Prediction[CS, E, UE]

	// ApplyClient executes a received effect or protocol event against a
	// client's view.
	ApplyClient(cs CS, cmd Command[E], who User) (CS, *UE)

	// Redact produces who's view of the authoritative state.
	Redact(s S, who User) CS

	// RedactAction produces who's view of an applied action.
	RedactAction(s S, act A, who User) E
}
