package server

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tractor-game/internal/engine"
	"tractor-game/internal/session"
)

// GameServer hosts many rooms for one engine behind a websocket upgrade
// endpoint at /<prefix>/<room-id>/.
type GameServer[C, I, S, A, CS, E, UE any] struct {
	eng      engine.Engine[C, I, S, A, CS, E, UE]
	log      *zap.SugaredLogger
	sessions *session.Store
	path     *regexp.Regexp

	mu    sync.RWMutex
	games map[string]*Game[C, I, S, A, CS, E, UE]
}

// NewGameServer builds a server whose upgrade endpoint lives under prefix.
func NewGameServer[C, I, S, A, CS, E, UE any](
	eng engine.Engine[C, I, S, A, CS, E, UE],
	sessions *session.Store,
	prefix string,
	log *zap.SugaredLogger,
) *GameServer[C, I, S, A, CS, E, UE] {
	return &GameServer[C, I, S, A, CS, E, UE]{
		eng:      eng,
		log:      log,
		sessions: sessions,
		path:     regexp.MustCompile(`^/` + regexp.QuoteMeta(prefix) + `/([^/]+)/$`),
		games:    make(map[string]*Game[C, I, S, A, CS, E, UE]),
	}
}

// BeginGame opens a room with the given config and owner and returns its id.
func (s *GameServer[C, I, S, A, CS, E, UE]) BeginGame(cfg C, owner string) string {
	id := uuid.NewString()
	g := NewGame(s.eng, owner, cfg, s.log.With("room", id))
	s.mu.Lock()
	s.games[id] = g
	s.mu.Unlock()
	go g.Run()
	s.log.Infow("room opened", "room", id, "owner", owner)
	return id
}

// Lookup finds a live room.
func (s *GameServer[C, I, S, A, CS, E, UE]) Lookup(id string) (*Game[C, I, S, A, CS, E, UE], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// EndGame stops a room and forgets it.
func (s *GameServer[C, I, S, A, CS, E, UE]) EndGame(id string) {
	s.mu.Lock()
	g, ok := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if ok {
		g.Stop()
		s.log.Infow("room closed", "room", id)
	}
}

// ServeWs vets and upgrades a websocket request. Every precondition failure
// is a 400 whose X-Reason header says why, so clients can surface it.
func (s *GameServer[C, I, S, A, CS, E, UE]) ServeWs(w http.ResponseWriter, r *http.Request) {
	bail := func(reason string) {
		s.log.Infow("refusing upgrade", "url", r.URL.Path, "reason", reason)
		w.Header().Set("X-Reason", reason)
		http.Error(w, reason, http.StatusBadRequest)
	}

	matches := s.path.FindStringSubmatch(r.URL.Path)
	if matches == nil {
		bail("invalid uri")
		return
	}
	game, ok := s.Lookup(matches[1])
	if !ok {
		bail("no such game: " + matches[1])
		return
	}

	idCookie, err := r.Cookie("id")
	if err != nil {
		bail("no principal provided (log in first)")
		return
	}
	tokenCookie, err := r.Cookie("token")
	if err != nil {
		bail("no principal provided (log in first)")
		return
	}
	sess, err := s.sessions.Validate(idCookie.Value, tokenCookie.Value)
	if err != nil {
		bail(err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade failed", "error", err)
		return
	}

	rc := game.Connect(sess.ID, &wsConn{conn: conn})
	if rc == nil {
		conn.Close()
		return
	}
	go readPump(game, rc, conn, s.log)
}
