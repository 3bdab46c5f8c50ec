package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tractor-game/internal/engine"
)

// wsConn adapts a websocket to the protocol.Conn seam. Writes are serialized
// because gorilla permits only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// Dial connects to a room endpoint, starts the session handshake, and spawns
// the read loop. The returned client begins in StatusPendingReset and
// transitions to StatusSync once the server's snapshot lands.
func Dial[C, I, S, A, CS, E, UE any](
	ctx context.Context,
	url string,
	nick string,
	eng engine.Engine[C, I, S, A, CS, E, UE],
	log *zap.SugaredLogger,
) (*GameClient[C, I, S, A, CS, E, UE], error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			if reason := resp.Header.Get("X-Reason"); reason != "" {
				return nil, fmt.Errorf("client: dial %s: %s: %w", url, reason, err)
			}
		}
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}

	cl, err := NewGameClient(eng, &wsConn{conn: conn}, nick, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	go func() {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warnw("read error", "error", err)
				}
				cl.MarkDisconnected()
				return
			}
			if err := cl.HandleMessage(data); err != nil {
				log.Warnw("bad server message", "error", err)
			}
		}
	}()

	return cl, nil
}
