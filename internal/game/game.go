package game

import (
	"fmt"
	"slices"

	"tractor-game/internal/cards"
	"tractor-game/internal/engine"
	"tractor-game/internal/trick"
)

// Phase is the lifecycle stage of a round.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseDone    Phase = "done"
)

// Config fixes the shape of a round before anyone joins.
type Config struct {
	NPlayers int             `json:"nplayers"`
	NDecks   int             `json:"ndecks"`
	Trump    cards.TrumpMeta `json:"trump"`
}

func (c Config) withDefaults() Config {
	if c.NPlayers <= 0 {
		c.NPlayers = 4
	}
	if c.NDecks <= 0 {
		c.NDecks = c.NPlayers / 2
		if c.NDecks == 0 {
			c.NDecks = 1
		}
	}
	return c
}

// SeatPlay is one player's contribution to the trick in progress.
type SeatPlay struct {
	Seat  int              `json:"seat"`
	Cards []cards.CardBase `json:"cards"`
}

// Player is a seated user together with the server's view of their hand.
// Hand is nil until the round is dealt.
type Player struct {
	User engine.User
	Hand *trick.Hand
}

// State is the authoritative round state.  It never crosses the wire;
// clients see the ClientState that Redact produces from it.
type State struct {
	Config  Config
	Phase   Phase
	Players []Player
	Kitty   []cards.CardBase
	Leader  int
	Turn    int
	Current []SeatPlay
	Points  []int
	Tricks  []int
	Winner  int
}

// ClientPlayer is a seat as a client sees it.  Hand is populated only
// for the client's own seat; everyone else is a count.
type ClientPlayer struct {
	User     engine.User      `json:"user"`
	HandSize int              `json:"hand_size"`
	Hand     []cards.CardBase `json:"hand,omitempty"`
}

// ClientState is the redacted mirror of State.  It has to round-trip
// through JSON, so hands are plain card slices rather than piles.
type ClientState struct {
	Config    Config         `json:"config"`
	Phase     Phase          `json:"phase"`
	Players   []ClientPlayer `json:"players"`
	KittySize int            `json:"kitty_size"`
	Leader    int            `json:"leader"`
	Turn      int            `json:"turn"`
	Current   []SeatPlay     `json:"current"`
	Points    []int          `json:"points"`
	Tricks    []int          `json:"tricks"`
	Winner    int            `json:"winner"`
}

// IntentKind discriminates player requests and the actions they
// validate into.
type IntentKind string

const (
	IntentStart IntentKind = "start"
	IntentPlay  IntentKind = "play"
)

// Intent is what a client asks to do.
type Intent struct {
	Kind  IntentKind       `json:"kind"`
	Cards []cards.CardBase `json:"cards,omitempty"`
}

// Action is a validated intent with all nondeterminism resolved, so
// applying it is a pure function of state.  A start action carries the
// entire deal.
type Action struct {
	Kind  IntentKind         `json:"kind"`
	Seat  int                `json:"seat"`
	Cards []cards.CardBase   `json:"cards,omitempty"`
	Deal  [][]cards.CardBase `json:"deal,omitempty"`
	Kitty []cards.CardBase   `json:"kitty,omitempty"`
}

// Effect is an action redacted for one recipient.  A start effect
// carries only that recipient's cards; a play is public.  The kitty is
// revealed on the play that ends the round.
type Effect struct {
	Kind     IntentKind       `json:"kind"`
	Seat     int              `json:"seat"`
	Cards    []cards.CardBase `json:"cards,omitempty"`
	Hand     []cards.CardBase `json:"hand,omitempty"`
	HandSize int              `json:"hand_size,omitempty"`
	Kitty    []cards.CardBase `json:"kitty,omitempty"`
}

// UpdateError is the rejection payload for invalid intents.
type UpdateError struct {
	Msg string `json:"msg"`
}

func (e *UpdateError) Error() string { return e.Msg }

func errf(format string, args ...any) *UpdateError {
	return &UpdateError{Msg: fmt.Sprintf(format, args...)}
}

func (s *State) seatOf(id engine.UserID) int {
	for i, p := range s.Players {
		if p.User.ID == id {
			return i
		}
	}
	return -1
}

func (cs *ClientState) seatOf(id engine.UserID) int {
	for i, p := range cs.Players {
		if p.User.ID == id {
			return i
		}
	}
	return -1
}

func (cs ClientState) clone() ClientState {
	out := cs
	out.Players = make([]ClientPlayer, len(cs.Players))
	for i, p := range cs.Players {
		p.Hand = slices.Clone(p.Hand)
		out.Players[i] = p
	}
	out.Current = make([]SeatPlay, len(cs.Current))
	for i, sp := range cs.Current {
		sp.Cards = slices.Clone(sp.Cards)
		out.Current[i] = sp
	}
	out.Points = slices.Clone(cs.Points)
	out.Tricks = slices.Clone(cs.Tricks)
	return out
}

// cardPoints is the score value one card contributes to a trick.
func cardPoints(cb cards.CardBase) int {
	switch cb.Rank {
	case 5:
		return 5
	case 10, cards.King:
		return 10
	}
	return 0
}

func pilePoints(bases []cards.CardBase) int {
	total := 0
	for _, cb := range bases {
		total += cardPoints(cb)
	}
	return total
}

func trickPoints(plays []SeatPlay) int {
	total := 0
	for _, sp := range plays {
		total += pilePoints(sp.Cards)
	}
	return total
}

// resolveTrick returns the seat that takes a completed trick.  Every
// play is public, so both sides of the wire run the same resolution.
func resolveTrick(plays []SeatPlay, tr cards.TrumpMeta) int {
	best := extractPlay(plays[0].Cards, tr)
	winner := plays[0].Seat
	for _, sp := range plays[1:] {
		p := extractPlay(sp.Cards, tr)
		if !best.Beats(p) {
			best = p
			winner = sp.Seat
		}
	}
	return winner
}

func extractPlay(bases []cards.CardBase, tr cards.TrumpMeta) trick.Play {
	cs := make([]cards.Card, len(bases))
	for i, cb := range bases {
		cs[i] = cards.NewCardFrom(cb, tr)
	}
	return trick.Extract(cs, tr)
}

// removeBases deletes each played base from the slice once, reporting
// whether every base was present.  The input slice is not modified.
func removeBases(hand []cards.CardBase, played []cards.CardBase) ([]cards.CardBase, bool) {
	out := slices.Clone(hand)
	for _, cb := range played {
		i := slices.Index(out, cb)
		if i < 0 {
			return hand, false
		}
		out = slices.Delete(out, i, i+1)
	}
	return out, true
}
