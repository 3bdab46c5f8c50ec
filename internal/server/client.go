package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// rooms are gated by the session cookie check, not by origin
		return true
	},
}

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

// readPump forwards inbound messages from one connection into the room loop
// until the connection dies.
func readPump[C, I, S, A, CS, E, UE any](
	g *Game[C, I, S, A, CS, E, UE],
	rc *Client,
	conn *websocket.Conn,
	log *zap.SugaredLogger,
) {
	defer g.Disconnect(rc)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnw("read error", "principal", rc.principal, "error", err)
			}
			return
		}
		g.Receive(rc, data)
	}
}
