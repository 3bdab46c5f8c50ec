// Package protocol defines the wire messages between game clients and the
// room server. Messages are verb-tagged JSON objects; the engine-specific
// payloads (intents, states, commands, rejection reasons) travel as raw JSON
// and are interpreted by the layer that knows the engine's types.
package protocol

import (
	"encoding/json"
	"fmt"

	"tractor-game/internal/engine"
)

// Client-to-server verbs.
const (
	VerbReqHello  = "req:hello"
	VerbReqReset  = "req:reset"
	VerbReqUpdate = "req:update"
	VerbReqBye    = "req:bye"
)

// Server-to-client verbs.
const (
	VerbHello  = "hello"
	VerbReset  = "reset"
	VerbUpdate = "update"
	VerbReject = "reject"
	VerbBye    = "bye"
)

// ClientMessage is the closed set of messages a client may send. Decoding
// anything outside the set fails, and the server hangs up on the sender.
type ClientMessage interface {
	clientMessage()
}

// RequestHello announces a client and asks for an identity.
type RequestHello struct {
	Verb string `json:"verb"`
	Nick string `json:"nick"`
}

// RequestReset asks for a full snapshot. Until it is sent (and answered) the
// client receives no updates.
type RequestReset struct {
	Verb string `json:"verb"`
}

// RequestUpdate submits an intent under a client-chosen transaction id.
type RequestUpdate struct {
	Verb   string          `json:"verb"`
	Tx     engine.TxID     `json:"tx"`
	Intent json.RawMessage `json:"intent"`
}

// RequestBye asks to leave the room.
type RequestBye struct {
	Verb string `json:"verb"`
}

func (RequestHello) clientMessage()  {}
func (RequestReset) clientMessage()  {}
func (RequestUpdate) clientMessage() {}
func (RequestBye) clientMessage()    {}

// ServerMessage is the closed set of messages the server may send.
type ServerMessage interface {
	serverMessage()
}

// Hello assigns the client its user identity.
type Hello struct {
	Verb string      `json:"verb"`
	You  engine.User `json:"you"`
}

// Reset carries a full redacted state snapshot plus the room roster. It also
// marks the client as synchronized: updates flow only after a reset.
type Reset struct {
	Verb  string          `json:"verb"`
	State json.RawMessage `json:"state"`
	Who   []engine.User   `json:"who"`
}

// Update fans out one applied command. Tx is set only on the copy sent to
// the client whose request produced the command.
type Update struct {
	Verb    string          `json:"verb"`
	Tx      *engine.TxID    `json:"tx"`
	Command json.RawMessage `json:"command"`
}

// Reject answers a failed RequestUpdate. Only the requester sees it.
type Reject struct {
	Verb   string          `json:"verb"`
	Tx     engine.TxID     `json:"tx"`
	Reason json.RawMessage `json:"reason"`
}

// Bye acknowledges a departure (or announces an eviction). The connection
// closes after it.
type Bye struct {
	Verb string `json:"verb"`
}

func (Hello) serverMessage()  {}
func (Reset) serverMessage()  {}
func (Update) serverMessage() {}
func (Reject) serverMessage() {}
func (Bye) serverMessage()    {}

type verbTag struct {
	Verb string `json:"verb"`
}

// DecodeClient parses a client-to-server message. Unknown verbs and malformed
// payloads are errors; there is no open-ended fallback.
func DecodeClient(data []byte) (ClientMessage, error) {
	var tag verbTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("protocol: malformed message: %w", err)
	}
	switch tag.Verb {
	case VerbReqHello:
		var m RequestHello
		return m, json.Unmarshal(data, &m)
	case VerbReqReset:
		var m RequestReset
		return m, json.Unmarshal(data, &m)
	case VerbReqUpdate:
		var m RequestUpdate
		return m, json.Unmarshal(data, &m)
	case VerbReqBye:
		var m RequestBye
		return m, json.Unmarshal(data, &m)
	}
	return nil, fmt.Errorf("protocol: unknown client verb %q", tag.Verb)
}

// DecodeServer parses a server-to-client message.
func DecodeServer(data []byte) (ServerMessage, error) {
	var tag verbTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("protocol: malformed message: %w", err)
	}
	switch tag.Verb {
	case VerbHello:
		var m Hello
		return m, json.Unmarshal(data, &m)
	case VerbReset:
		var m Reset
		return m, json.Unmarshal(data, &m)
	case VerbUpdate:
		var m Update
		return m, json.Unmarshal(data, &m)
	case VerbReject:
		var m Reject
		return m, json.Unmarshal(data, &m)
	case VerbBye:
		var m Bye
		return m, json.Unmarshal(data, &m)
	}
	return nil, fmt.Errorf("protocol: unknown server verb %q", tag.Verb)
}

// Encode marshals a message for the wire. The verb field must already be
// set; the typed constructors below take care of that.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// NewRequestHello builds a req:hello message.
func NewRequestHello(nick string) RequestHello {
	return RequestHello{Verb: VerbReqHello, Nick: nick}
}

// NewRequestReset builds a req:reset message.
func NewRequestReset() RequestReset {
	return RequestReset{Verb: VerbReqReset}
}

// NewRequestUpdate builds a req:update message around an engine intent.
func NewRequestUpdate(tx engine.TxID, intent any) (RequestUpdate, error) {
	raw, err := json.Marshal(intent)
	if err != nil {
		return RequestUpdate{}, err
	}
	return RequestUpdate{Verb: VerbReqUpdate, Tx: tx, Intent: raw}, nil
}

// NewRequestBye builds a req:bye message.
func NewRequestBye() RequestBye {
	return RequestBye{Verb: VerbReqBye}
}

// NewHello builds a hello reply.
func NewHello(you engine.User) Hello {
	return Hello{Verb: VerbHello, You: you}
}

// NewReset builds a reset snapshot around a redacted engine state.
func NewReset(state any, who []engine.User) (Reset, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return Reset{}, err
	}
	return Reset{Verb: VerbReset, State: raw, Who: who}, nil
}

// NewUpdate builds an update broadcast around an engine command. tx is nil
// for every recipient except the source of the triggering request.
func NewUpdate(tx *engine.TxID, command any) (Update, error) {
	raw, err := json.Marshal(command)
	if err != nil {
		return Update{}, err
	}
	return Update{Verb: VerbUpdate, Tx: tx, Command: raw}, nil
}

// NewReject builds a rejection reply around an engine update error.
func NewReject(tx engine.TxID, reason any) (Reject, error) {
	raw, err := json.Marshal(reason)
	if err != nil {
		return Reject{}, err
	}
	return Reject{Verb: VerbReject, Tx: tx, Reason: raw}, nil
}

// NewBye builds a bye message.
func NewBye() Bye {
	return Bye{Verb: VerbBye}
}
