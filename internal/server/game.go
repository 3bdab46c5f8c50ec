// Package server hosts authoritative game rooms behind a websocket endpoint.
// Each room is a single goroutine that owns its engine state; connections
// feed it messages over channels and it fans out redacted updates.
package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"tractor-game/internal/engine"
	"tractor-game/internal/protocol"
)

// Client is one connection's standing in a room. user is nil until the
// client says hello; sync is false until it requests a reset, and no updates
// flow to it before then.
type Client struct {
	principal string
	user      *engine.User
	sync      bool
	conn      protocol.Conn
}

type inbound struct {
	client *Client
	data   []byte
}

type join struct {
	principal string
	conn      protocol.Conn
	reply     chan *Client
}

// Game is one authoritative room.
type Game[C, I, S, A, CS, E, UE any] struct {
	eng   engine.Engine[C, I, S, A, CS, E, UE]
	log   *zap.SugaredLogger
	owner string

	state   S
	clients []*Client
	nextID  engine.UserID

	joins chan join
	inbox chan inbound
	parts chan *Client
	quit  chan struct{}
}

// NewGame creates a room with a fresh engine state. Run must be started for
// the room to make progress.
func NewGame[C, I, S, A, CS, E, UE any](
	eng engine.Engine[C, I, S, A, CS, E, UE],
	owner string,
	cfg C,
	log *zap.SugaredLogger,
) *Game[C, I, S, A, CS, E, UE] {
	return &Game[C, I, S, A, CS, E, UE]{
		eng:   eng,
		log:   log,
		owner: owner,
		state: eng.Init(cfg),
		joins: make(chan join),
		inbox: make(chan inbound, 64),
		parts: make(chan *Client),
		quit:  make(chan struct{}),
	}
}

// Owner returns the principal that opened the room.
func (g *Game[C, I, S, A, CS, E, UE]) Owner() string {
	return g.owner
}

// Run is the room loop. It exits when Stop is called.
func (g *Game[C, I, S, A, CS, E, UE]) Run() {
	for {
		select {
		case j := <-g.joins:
			rc := &Client{principal: j.principal, conn: j.conn}
			g.clients = append(g.clients, rc)
			j.reply <- rc

		case in := <-g.inbox:
			g.handle(in.client, in.data)

		case rc := <-g.parts:
			g.dispose(rc)

		case <-g.quit:
			for _, rc := range g.clients {
				rc.conn.Close()
			}
			g.clients = nil
			return
		}
	}
}

// Stop shuts the room down and closes every connection.
func (g *Game[C, I, S, A, CS, E, UE]) Stop() {
	close(g.quit)
}

// Connect registers a connection with the room. The room takes ownership of
// conn; the caller keeps feeding inbound data via Receive.
func (g *Game[C, I, S, A, CS, E, UE]) Connect(principal string, conn protocol.Conn) *Client {
	reply := make(chan *Client)
	select {
	case g.joins <- join{principal: principal, conn: conn, reply: reply}:
		return <-reply
	case <-g.quit:
		conn.Close()
		return nil
	}
}

// Receive hands one inbound message to the room loop.
func (g *Game[C, I, S, A, CS, E, UE]) Receive(rc *Client, data []byte) {
	select {
	case g.inbox <- inbound{client: rc, data: data}:
	case <-g.quit:
	}
}

// Disconnect removes a dropped connection from the room.
func (g *Game[C, I, S, A, CS, E, UE]) Disconnect(rc *Client) {
	select {
	case g.parts <- rc:
	case <-g.quit:
	}
}

func (g *Game[C, I, S, A, CS, E, UE]) handle(c *Client, data []byte) {
	msg, err := protocol.DecodeClient(data)
	if err != nil {
		g.kick(c, "invalid msg")
		return
	}
	switch m := msg.(type) {
	case protocol.RequestHello:
		g.hello(c, m.Nick)
	case protocol.RequestReset:
		g.reset(c)
	case protocol.RequestUpdate:
		g.update(c, m.Tx, m.Intent)
	case protocol.RequestBye:
		g.bye(c)
	}
}

// hello admits the client: assigns an id, announces the join to every synced
// client, and replies with the new identity.
func (g *Game[C, I, S, A, CS, E, UE]) hello(c *Client, nick string) {
	if c.user != nil {
		g.kick(c, "duplicate hello")
		return
	}
	user := engine.User{ID: g.nextID, Nick: nick}
	g.nextID++

	if ue := g.processUpdate(engine.ProtocolCmd[A](engine.JoinAction(user)), c, nil); ue != nil {
		g.log.Errorw("engine refused user:join", "user", user, "error", ue)
		g.kick(c, "join refused")
		return
	}
	c.user = &user
	g.send(c, protocol.NewHello(user))
}

// reset replies with the client's redacted snapshot and the roster, and
// starts streaming updates to it.
func (g *Game[C, I, S, A, CS, E, UE]) reset(c *Client) {
	if c.user == nil {
		g.kick(c, "reset before hello")
		return
	}
	cs := g.eng.Redact(g.state, *c.user)
	msg, err := protocol.NewReset(cs, g.roster())
	if err != nil {
		g.log.Errorw("cannot encode snapshot", "error", err)
		return
	}
	c.sync = true
	g.send(c, msg)
}

// update validates an intent, applies the resulting action, and fans it out.
// Failures at either stage go back to the requester alone.
func (g *Game[C, I, S, A, CS, E, UE]) update(c *Client, tx engine.TxID, raw json.RawMessage) {
	if c.user == nil {
		g.kick(c, "update before hello")
		return
	}
	var intent I
	if err := json.Unmarshal(raw, &intent); err != nil {
		g.kick(c, "malformed intent")
		return
	}

	act, ue := g.eng.Listen(g.state, intent, *c.user)
	if ue != nil {
		g.reject(c, tx, ue)
		return
	}
	if ue := g.processUpdate(engine.EngineCmd(act), c, &tx); ue != nil {
		g.reject(c, tx, ue)
	}
}

// bye acknowledges the departure and drops the client.
func (g *Game[C, I, S, A, CS, E, UE]) bye(c *Client) {
	g.send(c, protocol.NewBye())
	g.dispose(c)
}

func (g *Game[C, I, S, A, CS, E, UE]) kick(c *Client, reason string) {
	g.log.Infow("kicking client", "principal", c.principal, "reason", reason)
	g.bye(c)
}

// processUpdate applies a command to the authoritative state and fans the
// per-client redaction out to every synced client. The copy sent to source
// carries tx; everyone else sees a null tx.
func (g *Game[C, I, S, A, CS, E, UE]) processUpdate(
	cmd engine.Command[A], source *Client, tx *engine.TxID) *UE {

	newstate, ue := g.eng.Apply(g.state, cmd)
	if ue != nil {
		return ue
	}
	g.state = newstate

	for _, cli := range g.clients {
		if !cli.sync {
			continue
		}
		var out engine.Command[E]
		if cmd.Kind == engine.KindProtocol {
			out = engine.ProtocolCmd[E](cmd.Protocol)
		} else {
			out = engine.EngineCmd(g.eng.RedactAction(g.state, cmd.Effect, *cli.user))
		}
		var forTx *engine.TxID
		if cli == source {
			forTx = tx
		}
		msg, err := protocol.NewUpdate(forTx, out)
		if err != nil {
			g.log.Errorw("cannot encode update", "error", err)
			continue
		}
		g.send(cli, msg)
	}
	return nil
}

func (g *Game[C, I, S, A, CS, E, UE]) reject(c *Client, tx engine.TxID, reason *UE) {
	msg, err := protocol.NewReject(tx, reason)
	if err != nil {
		g.log.Errorw("cannot encode rejection", "error", err)
		return
	}
	g.send(c, msg)
}

func (g *Game[C, I, S, A, CS, E, UE]) roster() []engine.User {
	users := make([]engine.User, 0, len(g.clients))
	for _, cli := range g.clients {
		if cli.user != nil {
			users = append(users, *cli.user)
		}
	}
	return users
}

// dispose removes the client and closes its connection.
//
// TODO broadcast user:part here so remaining rosters shrink on departure;
// today clients only learn about joins.
func (g *Game[C, I, S, A, CS, E, UE]) dispose(c *Client) {
	c.sync = false
	c.conn.Close()
	for i, cli := range g.clients {
		if cli == c {
			g.clients = append(g.clients[:i], g.clients[i+1:]...)
			break
		}
	}
}

func (g *Game[C, I, S, A, CS, E, UE]) send(c *Client, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		g.log.Errorw("cannot encode message", "error", err)
		return
	}
	if err := c.conn.Send(data); err != nil {
		g.log.Warnw("send failed", "principal", c.principal, "error", err)
	}
}
