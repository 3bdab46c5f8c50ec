package cards

import (
	"fmt"
	"strconv"
)

// Suit represents the suit of a card. The four natural suits are ordered
// clubs < diamonds < spades < hearts; Trump is the virtual bucket that all
// trump-relative cards canonicalize into and always sorts last.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Spades
	Hearts
	Trump

	NumSuits = 5
)

var suitGlyphs = [NumSuits]string{"♣", "♦", "♠", "♥", "☉"}

func (s Suit) String() string {
	if s < 0 || s >= NumSuits {
		return "?"
	}
	return suitGlyphs[s]
}

// Rank represents the rank of a card. Natural ranks run 2..10, J, Q, K, A.
// The remaining values only ever appear as virtual ranks or as joker ranks:
// NOff (off-suit trump-rank card), NOn (on-suit trump-rank card), and the two
// jokers. Small and big joker are adjacent to each other but deliberately not
// adjacent to NOn; only natural trump-rank cards extend a trump-suit run past
// the ace.
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14

	NOff Rank = 15
	NOn  Rank = 16

	SmallJoker Rank = 18
	BigJoker   Rank = 19
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	case SmallJoker:
		return "w"
	case BigJoker:
		return "W"
	}
	if r >= Two && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// ParseRank inverts String for the natural ranks. It rejects jokers
// and virtual ranks, which cannot be named as a trump rank.
func ParseRank(s string) (Rank, error) {
	switch s {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(Two) || n > int(Ten) {
		return 0, fmt.Errorf("%w: bad rank %q", ErrInvariant, s)
	}
	return Rank(n), nil
}

// IsJoker reports whether r is one of the two joker ranks.
func (r Rank) IsJoker() bool {
	return r == SmallJoker || r == BigJoker
}

// IsNatural reports whether r is a rank a physical non-joker card can carry.
func (r Rank) IsNatural() bool {
	return r >= Two && r <= Ace
}

// TrumpMeta fixes the trump suit and trump rank for a round. It is the
// canonicalization function: every card's virtual suit and rank are derived
// relative to it. A meta with Suit == Trump declares a round with no natural
// trump suit (only jokers are trump); a joker Rank declares no trump rank.
type TrumpMeta struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewTrumpMeta builds the trump context for a round.
func NewTrumpMeta(suit Suit, rank Rank) TrumpMeta {
	return TrumpMeta{Suit: suit, Rank: rank}
}

// Canonicalize maps a raw card to its trump-relative (virtual suit, virtual
// rank) pair. The virtual rank ordering inside the trump bucket is:
// natural ranks ascending, then NOff, then NOn, then the jokers.
func (tr TrumpMeta) Canonicalize(cb CardBase) (Suit, Rank) {
	switch {
	case cb.Rank.IsJoker():
		return Trump, cb.Rank
	case cb.Suit == tr.Suit && cb.Rank == tr.Rank:
		return Trump, NOn
	case cb.Rank == tr.Rank:
		return Trump, NOff
	case cb.Suit == tr.Suit:
		return Trump, cb.Rank
	default:
		return cb.Suit, cb.Rank
	}
}

// NextRank returns the virtual rank directly above r within the given virtual
// suit, or 0 when no such rank exists. Natural sequences skip the trump rank
// (with trump rank J, 10 and Q are adjacent), the trump bucket chains
// A → NOff → NOn, and the jokers chain to each other only.
func (tr TrumpMeta) NextRank(vsuit Suit, r Rank) Rank {
	switch r {
	case NOff:
		return NOn
	case NOn:
		return 0
	case SmallJoker:
		return BigJoker
	case BigJoker:
		return 0
	}
	n := r + 1
	if n == tr.Rank {
		n++
	}
	if n > Ace {
		if vsuit == Trump {
			return NOff
		}
		return 0
	}
	return n
}

// CardBase is the round-independent identity of a physical card. Duplicates
// across decks are equal by value. Jokers carry Suit == Trump and a joker
// rank.
type CardBase struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func NewCardBase(suit Suit, rank Rank) CardBase {
	return CardBase{Suit: suit, Rank: rank}
}

func (cb CardBase) String() string {
	return cb.Rank.String() + cb.Suit.String()
}

// Card is a CardBase canonicalized against a TrumpMeta.
type Card struct {
	CardBase
	VSuit Suit
	VRank Rank
}

// NewCard canonicalizes a raw (suit, rank) pair under tr.
func NewCard(suit Suit, rank Rank, tr TrumpMeta) Card {
	return NewCardFrom(CardBase{Suit: suit, Rank: rank}, tr)
}

// NewCardFrom canonicalizes an existing CardBase under tr.
func NewCardFrom(cb CardBase, tr TrumpMeta) Card {
	vs, vr := tr.Canonicalize(cb)
	return Card{CardBase: cb, VSuit: vs, VRank: vr}
}

// Compare orders two cards by virtual rank. The second return is false when
// the cards are incomparable, which happens exactly when they sit in two
// different natural suits; trump always compares above non-trump.
func Compare(a, b Card) (int, bool) {
	if a.VSuit == b.VSuit {
		switch {
		case a.VRank < b.VRank:
			return -1, true
		case a.VRank > b.VRank:
			return 1, true
		}
		return 0, true
	}
	if a.VSuit == Trump {
		return 1, true
	}
	if b.VSuit == Trump {
		return -1, true
	}
	return 0, false
}

// less is the canonical pile ordering: virtual suit bucket, then virtual
// rank, then natural suit and rank to keep off-suit trump-rank cards stable.
func less(a, b Card) bool {
	if a.VSuit != b.VSuit {
		return a.VSuit < b.VSuit
	}
	if a.VRank != b.VRank {
		return a.VRank < b.VRank
	}
	if a.Suit != b.Suit {
		return a.Suit < b.Suit
	}
	return a.Rank < b.Rank
}
