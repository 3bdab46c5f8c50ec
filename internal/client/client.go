// Package client implements the optimistic game client: a redacted replica
// of a room's state that applies its own intents locally when their outcome
// is predictable and reconciles against the server's update stream.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tractor-game/internal/engine"
	"tractor-game/internal/protocol"
)

// Status is the replica's synchronization state.
type Status string

const (
	// StatusPendingReset: connected, waiting for the first snapshot.
	StatusPendingReset Status = "pending-reset"
	// StatusSync: the replica mirrors the server modulo in-flight updates.
	StatusSync Status = "sync"
	// StatusPendingUpdate: an unpredictable intent is in flight; the replica
	// lags the server until its update arrives.
	StatusPendingUpdate Status = "pending-update"
	// StatusDisconnected: the connection is gone or the replica diverged.
	StatusDisconnected Status = "disconnected"
)

// ErrDesynced is returned by Attempt when the replica is not in sync.
var ErrDesynced = errors.New("client: not synchronized")

// UpdateHook observes a command applied on behalf of an attempt.
type UpdateHook[E any] func(cmd engine.Command[E], ctx any)

// RejectHook observes an attempt's rejection.
type RejectHook[UE any] func(reason *UE, ctx any)

type pendingUpdate[E, UE any] struct {
	predicted bool
	ctx       any
	onUpdate  UpdateHook[E]
	onReject  RejectHook[UE]
}

// GameClient mirrors one user's view of a room. It is safe for concurrent
// use; in practice one goroutine feeds HandleMessage from the connection's
// read loop while the UI goroutine calls Attempt.
type GameClient[C, I, S, A, CS, E, UE any] struct {
	eng  engine.Engine[C, I, S, A, CS, E, UE]
	conn protocol.Conn
	log  *zap.SugaredLogger

	// OnReset fires after each snapshot is installed. OnUpdate fires for
	// updates that no attempt claimed. OnClose fires once on teardown.
	OnReset  func()
	OnUpdate func(cmd engine.Command[E])
	OnClose  func()

	mu       sync.Mutex
	me       engine.User
	state    CS
	hasState bool
	users    []engine.User
	status   Status
	nextTx   engine.TxID
	pending  map[engine.TxID]*pendingUpdate[E, UE]
}

// NewGameClient starts a session over an established connection by sending
// req:hello. The replica is usable once the server's reset lands.
func NewGameClient[C, I, S, A, CS, E, UE any](
	eng engine.Engine[C, I, S, A, CS, E, UE],
	conn protocol.Conn,
	nick string,
	log *zap.SugaredLogger,
) (*GameClient[C, I, S, A, CS, E, UE], error) {
	cl := &GameClient[C, I, S, A, CS, E, UE]{
		eng:     eng,
		conn:    conn,
		log:     log,
		status:  StatusPendingReset,
		pending: make(map[engine.TxID]*pendingUpdate[E, UE]),
	}
	if err := cl.send(protocol.NewRequestHello(nick)); err != nil {
		return nil, err
	}
	return cl, nil
}

// Me returns the identity the server assigned.
func (cl *GameClient[C, I, S, A, CS, E, UE]) Me() engine.User {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.me
}

// Users returns a copy of the room roster.
func (cl *GameClient[C, I, S, A, CS, E, UE]) Users() []engine.User {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]engine.User(nil), cl.users...)
}

// State returns the current replica state; ok is false before the first
// reset.
func (cl *GameClient[C, I, S, A, CS, E, UE]) State() (CS, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.state, cl.hasState
}

// Status returns the replica's synchronization state.
func (cl *GameClient[C, I, S, A, CS, E, UE]) Status() Status {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.status
}

// MarkDisconnected flags the replica after transport teardown. It is
// idempotent; OnClose fires at most once.
func (cl *GameClient[C, I, S, A, CS, E, UE]) MarkDisconnected() {
	cl.mu.Lock()
	if cl.status == StatusDisconnected {
		cl.mu.Unlock()
		return
	}
	cl.status = StatusDisconnected
	cl.mu.Unlock()
	if cl.OnClose != nil {
		cl.OnClose()
	}
}

// Leave requests a clean departure. The server answers with bye and closes.
func (cl *GameClient[C, I, S, A, CS, E, UE]) Leave() error {
	return cl.send(protocol.NewRequestBye())
}

func (cl *GameClient[C, I, S, A, CS, E, UE]) send(msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return cl.conn.Send(data)
}

// HandleMessage processes one server-to-client message. The connection's
// read loop feeds it in order.
func (cl *GameClient[C, I, S, A, CS, E, UE]) HandleMessage(data []byte) error {
	msg, err := protocol.DecodeServer(data)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case protocol.Hello:
		cl.mu.Lock()
		cl.me = m.You
		cl.mu.Unlock()
		return cl.send(protocol.NewRequestReset())

	case protocol.Reset:
		var state CS
		if err := json.Unmarshal(m.State, &state); err != nil {
			return fmt.Errorf("client: bad reset state: %w", err)
		}
		cl.mu.Lock()
		cl.state = state
		cl.hasState = true
		cl.users = m.Who
		cl.status = StatusSync
		cl.mu.Unlock()
		if cl.OnReset != nil {
			cl.OnReset()
		}
		return nil

	case protocol.Update:
		var cmd engine.Command[E]
		if err := json.Unmarshal(m.Command, &cmd); err != nil {
			return fmt.Errorf("client: bad update command: %w", err)
		}
		return cl.update(m.Tx, cmd)

	case protocol.Reject:
		var reason UE
		if err := json.Unmarshal(m.Reason, &reason); err != nil {
			return fmt.Errorf("client: bad reject reason: %w", err)
		}
		cl.mu.Lock()
		pu := cl.pending[m.Tx]
		delete(cl.pending, m.Tx)
		if cl.status == StatusPendingUpdate {
			cl.status = StatusSync
		}
		cl.mu.Unlock()
		if pu != nil && pu.onReject != nil {
			pu.onReject(&reason, pu.ctx)
		}
		return nil

	case protocol.Bye:
		_ = cl.conn.Close()
		cl.MarkDisconnected()
		return nil
	}
	return fmt.Errorf("client: unhandled message %T", msg)
}

// update reconciles one fanned-out command against the replica. Commands
// whose outcome was already predicted locally are dropped; everything else
// is applied, with protocol commands additionally updating the roster.
func (cl *GameClient[C, I, S, A, CS, E, UE]) update(
	tx *engine.TxID, cmd engine.Command[E]) error {

	cl.mu.Lock()

	if tx != nil {
		if pu := cl.pending[*tx]; pu != nil && pu.predicted {
			delete(cl.pending, *tx)
			cl.mu.Unlock()
			return nil
		}
	}

	if cmd.Kind == engine.KindProtocol {
		switch cmd.Protocol.Verb {
		case engine.UserJoin:
			cl.users = append(cl.users, *cmd.Protocol.Who)
		case engine.UserPart:
			kept := cl.users[:0]
			for _, u := range cl.users {
				if u.ID != cmd.Protocol.ID {
					kept = append(kept, u)
				}
			}
			cl.users = kept
		}
	}

	state, ue := cl.eng.ApplyClient(cl.state, cmd, cl.me)
	if ue != nil {
		// the server accepted what we cannot apply: the replica is wrong
		cl.mu.Unlock()
		cl.log.Errorw("replica diverged from server", "error", ue)
		_ = cl.conn.Close()
		cl.MarkDisconnected()
		return fmt.Errorf("client: replica diverged: %v", ue)
	}
	cl.state = state
	cl.status = StatusSync

	var pu *pendingUpdate[E, UE]
	if tx != nil {
		pu = cl.pending[*tx]
		delete(cl.pending, *tx)
	}
	cl.mu.Unlock()

	if pu != nil {
		if pu.onUpdate != nil {
			pu.onUpdate(cmd, pu.ctx)
		}
	} else if cl.OnUpdate != nil {
		cl.OnUpdate(cmd)
	}
	return nil
}

// Attempt submits an intent. If the engine can predict the outcome locally
// the replica applies it immediately and the server's echo is dropped on
// arrival; if the prediction is an error the attempt is rejected without a
// round trip; otherwise the replica stalls until the server answers.
// Hooks run inline and must not call back into the client.
func (cl *GameClient[C, I, S, A, CS, E, UE]) Attempt(
	intent I, onUpdate UpdateHook[E], onReject RejectHook[UE], ctx any) error {

	cl.mu.Lock()
	if cl.status != StatusSync || !cl.hasState {
		cl.mu.Unlock()
		return ErrDesynced
	}

	tx := cl.nextTx
	cl.nextTx++

	pred := cl.eng.Predict(cl.state, intent, cl.me)

	switch {
	case pred == nil:
		cl.status = StatusPendingUpdate

	case pred.Err != nil:
		cl.mu.Unlock()
		if onReject != nil {
			onReject(pred.Err, ctx)
		}
		return nil

	default:
		cl.state = pred.State
		if onUpdate != nil {
			onUpdate(engine.EngineCmd(pred.Effect), ctx)
		}
	}

	cl.pending[tx] = &pendingUpdate[E, UE]{
		predicted: pred != nil,
		ctx:       ctx,
		onUpdate:  onUpdate,
		onReject:  onReject,
	}
	cl.mu.Unlock()

	req, err := protocol.NewRequestUpdate(tx, intent)
	if err != nil {
		return err
	}
	return cl.send(req)
}
