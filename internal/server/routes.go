package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tractor-game/internal/database"
	"tractor-game/internal/session"
)

type loginRequest struct {
	Nick string `json:"nick"`
}

type loginResponse struct {
	ID   string `json:"id"`
	Nick string `json:"nick"`
}

// CreateRoomRequest is the lobby API's room-creation body. The config hook
// passed to HandleRoutes turns it into the engine's config type.
type CreateRoomRequest struct {
	NPlayers int    `json:"nplayers"`
	NDecks   int    `json:"ndecks"`
	Rank     string `json:"rank"`
}

type createRoomResponse struct {
	ID string `json:"id"`
}

// HandleRoutes registers the lobby HTTP API: login, room creation, and room
// listing. Room creation requires a session; the room is opened live and
// recorded in the registry.
func HandleRoutes[C, I, S, A, CS, E, UE any](
	srv *GameServer[C, I, S, A, CS, E, UE],
	db *database.Service,
	sessions *session.Store,
	makeCfg func(req CreateRoomRequest) (C, error),
) {
	http.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		LoginHandler(sessions, w, r)
	})

	http.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		CreateRoomHandler(srv, db, sessions, makeCfg, w, r)
	})

	http.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		GetRoomsHandler(db, w, r)
	})

	http.HandleFunc("GET /api/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		GetRoomByIDHandler(db, w, r)
	})
}

// LoginHandler mints a session and hands its credentials back as cookies.
func LoginHandler(sessions *session.Store, w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nick == "" {
		http.Error(w, "Nick is required", http.StatusBadRequest)
		return
	}

	sess, err := sessions.Create(req.Nick)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "id", Value: sess.ID, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "token", Value: sess.Token, Path: "/"})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{ID: sess.ID, Nick: sess.Nick})
}

// CreateRoomHandler opens a live room owned by the caller's session and
// records it in the registry.
func CreateRoomHandler[C, I, S, A, CS, E, UE any](
	srv *GameServer[C, I, S, A, CS, E, UE],
	db *database.Service,
	sessions *session.Store,
	makeCfg func(req CreateRoomRequest) (C, error),
	w http.ResponseWriter,
	r *http.Request,
) {
	sess := authed(sessions, r)
	if sess == nil {
		http.Error(w, "Log in first", http.StatusUnauthorized)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}
	cfg, err := makeCfg(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := srv.BeginGame(cfg, sess.ID)
	room := database.Room{
		ID:        id,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Owner:     sess.ID,
		NPlayers:  req.NPlayers,
		NDecks:    req.NDecks,
		Rank:      req.Rank,
	}
	if err := db.Insert(room); err != nil {
		srv.EndGame(id)
		http.Error(w, "Failed to record room", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createRoomResponse{ID: id})
}

// GetRoomsHandler lists every registered room.
func GetRoomsHandler(db *database.Service, w http.ResponseWriter, r *http.Request) {
	rooms, err := db.GetAll()
	if err != nil {
		http.Error(w, "Failed to fetch rooms", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

// GetRoomByIDHandler fetches one registered room.
func GetRoomByIDHandler(db *database.Service, w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Room id is required", http.StatusBadRequest)
		return
	}

	room, err := db.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "No such room", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch room", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

// authed resolves the caller's session from the id/token cookies.
func authed(sessions *session.Store, r *http.Request) *session.Session {
	idCookie, err := r.Cookie("id")
	if err != nil {
		return nil
	}
	tokenCookie, err := r.Cookie("token")
	if err != nil {
		return nil
	}
	sess, err := sessions.Validate(idCookie.Value, tokenCookie.Value)
	if err != nil {
		return nil
	}
	return sess
}
