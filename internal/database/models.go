package database

type Room struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Owner     string `json:"owner"`
	NPlayers  int    `json:"nplayers"`
	NDecks    int    `json:"ndecks"`
	Rank      string `json:"rank"`
}
