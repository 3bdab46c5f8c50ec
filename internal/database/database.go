package database

import (
	"database/sql"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/mattn/go-sqlite3"
)

// Service is the room registry. Active rooms live in memory inside the game
// server; the registry is what survives restarts and feeds the lobby listing.
type Service struct {
	db         *sql.DB
	m          *sync.Mutex
	table_name string
}

var (
	tableName  = "rooms"
	dbInstance *Service
)

func New(path string) Service {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		panic(err)
	}

	sqlStmt := `
	create table if not exists rooms (
		id string not null primary key,
		created_at string,
		owner string,
		nplayers integer,
		ndecks integer,
		rank string
	);
	`
	_, err = db.Exec(sqlStmt)
	if err != nil {
		panic(err)
	}

	dbInstance = &Service{
		db:         db,
		table_name: tableName,
		m:          &sync.Mutex{},
	}

	return *dbInstance
}

func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) TableName() string {
	return s.table_name
}

func (s *Service) GetAll() ([]Room, error) {
	s.m.Lock()
	defer s.m.Unlock()
	rows, err := s.db.Query("SELECT * FROM " + s.table_name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(
			&room.ID,
			&room.CreatedAt,
			&room.Owner,
			&room.NPlayers,
			&room.NDecks,
			&room.Rank); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (s *Service) GetByID(id string) (Room, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var room Room
	err := s.db.QueryRow("SELECT * FROM "+s.table_name+" WHERE id = ?", id).Scan(
		&room.ID,
		&room.CreatedAt,
		&room.Owner,
		&room.NPlayers,
		&room.NDecks,
		&room.Rank)
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

func (s *Service) Insert(room Room) error {
	s.m.Lock()
	defer s.m.Unlock()
	_, err := s.db.Exec("INSERT INTO "+s.table_name+
		" (id, created_at, owner, nplayers, ndecks, rank) VALUES (?, ?, ?, ?, ?, ?)",
		room.ID,
		room.CreatedAt,
		room.Owner,
		room.NPlayers,
		room.NDecks,
		room.Rank)

	if err != nil {
		return err
	}

	return nil
}

func (s *Service) GetByOwner(owner string) ([]Room, error) {
	s.m.Lock()
	defer s.m.Unlock()
	rows, err := s.db.Query("SELECT * FROM "+s.table_name+" WHERE owner = ?", owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(
			&room.ID,
			&room.CreatedAt,
			&room.Owner,
			&room.NPlayers,
			&room.NDecks,
			&room.Rank); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if len(rooms) == 0 {
		return nil, sql.ErrNoRows
	}

	return rooms, nil
}

func (s *Service) Delete(id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	_, err := s.db.Exec("DELETE FROM "+s.table_name+" WHERE id = ?", id)
	return err
}
