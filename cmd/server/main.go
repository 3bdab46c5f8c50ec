package main

import (
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"tractor-game/internal/cards"
	"tractor-game/internal/database"
	"tractor-game/internal/game"
	"tractor-game/internal/server"
	"tractor-game/internal/session"
)

// config is read from the environment; the database package's godotenv
// autoload import pulls in a .env file first when one exists.
type config struct {
	Addr   string
	DBPath string
	Secret string
}

func loadConfig() config {
	return config{
		Addr:   envOr("ADDR", ":8080"),
		DBPath: envOr("DB_PATH", "tractor.db"),
		Secret: os.Getenv("SESSION_SECRET"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func makeConfig(req server.CreateRoomRequest) (game.Config, error) {
	rank := cards.Two
	if req.Rank != "" {
		var err error
		rank, err = cards.ParseRank(req.Rank)
		if err != nil {
			return game.Config{}, err
		}
	}
	return game.Config{
		NPlayers: req.NPlayers,
		NDecks:   req.NDecks,
		Trump:    cards.NewTrumpMeta(cards.Spades, rank),
	}, nil
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg := loadConfig()
	if cfg.Secret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}

	db := database.New(cfg.DBPath)
	defer db.Close()

	sessions := session.NewStore([]byte(cfg.Secret), 24*time.Hour)

	srv := server.NewGameServer[
		game.Config, game.Intent, game.State, game.Action,
		game.ClientState, game.Effect, game.UpdateError,
	](game.TractorEngine{}, sessions, "zpy", log)

	http.HandleFunc("/zpy/", srv.ServeWs)
	server.HandleRoutes(srv, &db, sessions, makeConfig)

	fs := http.FileServer(http.Dir("web/static"))
	http.Handle("/", fs)

	log.Infow("starting tractor server", "addr", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, nil))
}
