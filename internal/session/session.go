// Package session issues and validates the browser credentials that gate
// websocket upgrades: a session id cookie plus a signed token cookie.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSession    = errors.New("session: no such session")
	ErrInvalidToken = errors.New("session: invalid token")
)

// Session is one authenticated principal.
type Session struct {
	ID    string
	Nick  string
	Token string
}

// Store holds live sessions. Tokens are HS256 JWTs bound to the session id,
// so validation survives without any per-request state beyond the store
// entry itself.
type Store struct {
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(secret []byte, ttl time.Duration) *Store {
	return &Store{
		secret:   secret,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create mints a new session for the given nick.
func (s *Store) Create(nick string) (*Session, error) {
	id := uuid.NewString()

	claims := jwt.MapClaims{
		"sid": id,
		"exp": time.Now().Add(s.ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	sess := &Session{ID: id, Nick: nick, Token: token}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get looks up a session by id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Validate checks an (id, token) pair: the session must exist and the token
// must be a live signature over that session id.
func (s *Store) Validate(id, token string) (*Session, error) {
	sess, ok := s.Get(id)
	if !ok {
		return nil, ErrNoSession
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if sid, _ := claims["sid"].(string); sid != id {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Drop forgets a session.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
