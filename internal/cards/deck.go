package cards

import "math/rand/v2"

// Deck is a collection of raw cards ready to be dealt.
type Deck struct {
	Cards []CardBase
}

// NewDeck creates n shuffled-ready 54-card decks: the four natural suits with
// ranks 2..A plus both jokers, repeated n times.
func NewDeck(n int) *Deck {
	var out []CardBase
	for i := 0; i < n; i++ {
		for suit := Clubs; suit <= Hearts; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				out = append(out, CardBase{Suit: suit, Rank: rank})
			}
		}
		out = append(out,
			CardBase{Suit: Trump, Rank: SmallJoker},
			CardBase{Suit: Trump, Rank: BigJoker},
		)
	}
	return &Deck{Cards: out}
}

// Shuffle randomizes the order of cards in the deck.
func (d *Deck) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rand.Shuffle(len(d.Cards), func(i, j int) {
			d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
		})
		return
	}
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Deal distributes cardsPerPlayer cards to each of numPlayers players,
// leaving the remainder (the kitty) in the deck. Returns nil if the deck is
// too small.
func (d *Deck) Deal(numPlayers, cardsPerPlayer int) [][]CardBase {
	need := numPlayers * cardsPerPlayer
	if len(d.Cards) < need {
		return nil
	}
	dealt := make([][]CardBase, numPlayers)
	start := 0
	for i := 0; i < numPlayers; i++ {
		hand := make([]CardBase, cardsPerPlayer)
		copy(hand, d.Cards[start:start+cardsPerPlayer])
		dealt[i] = hand
		start += cardsPerPlayer
	}
	d.Cards = d.Cards[start:]
	return dealt
}
