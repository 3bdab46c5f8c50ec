package trick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tractor-game/internal/cards"
)

func pile(bases []cards.CardBase, tr cards.TrumpMeta) *cards.CardPile {
	return cards.NewCardPile(bases, tr)
}

func mustLead(t *testing.T, bases []cards.CardBase, tr cards.TrumpMeta) *Flight {
	t.Helper()
	fl := extract(bases, tr).Fl()
	require.NotNil(t, fl)
	return fl
}

func TestFollowWithSingletons(t *testing.T) {
	tr := cards.NewTrumpMeta(cards.Hearts, cards.Jack)
	hand := NewHand([]cards.CardBase{
		cb(cards.Diamonds, cards.Four),
		cb(cards.Diamonds, cards.Four),
		cb(cards.Spades, cards.Eight),
		cb(cards.Spades, cards.Nine),
		cb(cards.Clubs, cards.Jack),
		cb(cards.Hearts, cards.Jack),
	}, tr)

	lead := mustLead(t, []cards.CardBase{cb(cards.Diamonds, cards.King)}, tr)

	// play not covered by hand
	_, _, err := hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Diamonds, cards.King),
	}, tr))
	require.ErrorIs(t, err, cards.ErrInvariant)

	// on-suit follow
	legal, _, err := hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Diamonds, cards.Four),
	}, tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t, "♦: 4♦\n♠: 8♠ 9♠\n☉: J♣ J♥", hand.String())

	// basic renege
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Spades, cards.Nine),
	}, tr))
	require.NoError(t, err)
	assert.False(t, legal)
	assert.Equal(t, "♦: 4♦\n♠: 8♠\n☉: J♣ J♥", hand.String())

	// void-of-suit follow
	lead = mustLead(t, []cards.CardBase{cb(cards.Clubs, cards.King)}, tr)
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Spades, cards.Eight),
	}, tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t, "♦: 4♦\n☉: J♣ J♥", hand.String())

	// natural trump follow
	lead = mustLead(t, []cards.CardBase{cb(cards.Hearts, cards.Four)}, tr)
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Clubs, cards.Jack),
	}, tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t, "♦: 4♦\n☉: J♥", hand.String())
}

func TestFollowWithTuples(t *testing.T) {
	tr := cards.NewTrumpMeta(cards.Hearts, cards.Queen)
	hand := NewHand(concat(
		repeat(2, cb(cards.Diamonds, cards.Three)),
		repeat(3, cb(cards.Diamonds, cards.Four)),
		repeat(3, cb(cards.Diamonds, cards.Six)),
		repeat(3, cb(cards.Diamonds, cards.Nine)),
		repeat(2, cb(cards.Diamonds, cards.Ten)),
		repeat(2, cb(cards.Spades, cards.Two)),
		repeat(3, cb(cards.Spades, cards.Three)),
		repeat(3, cb(cards.Spades, cards.Four)),
		repeat(2, cb(cards.Spades, cards.Five)),
		repeat(1, cb(cards.Clubs, cards.Seven)),
		repeat(1, cb(cards.Clubs, cards.Jack)),
		repeat(2, cb(cards.Hearts, cards.Two)),
		repeat(2, cb(cards.Hearts, cards.King)),
		repeat(3, cb(cards.Hearts, cards.Ace)),
		repeat(2, cb(cards.Hearts, cards.Queen)),
	), tr)

	lead := mustLead(t, repeat(2, cb(cards.Diamonds, cards.King)), tr)

	// play too small
	_, _, err := hand.FollowWith(lead, pile(
		repeat(1, cb(cards.Diamonds, cards.Three)), tr))
	require.ErrorIs(t, err, cards.ErrInvariant)

	// play too large
	_, _, err = hand.FollowWith(lead, pile(concat(
		repeat(2, cb(cards.Diamonds, cards.Three)),
		repeat(1, cb(cards.Diamonds, cards.Four)),
	), tr))
	require.ErrorIs(t, err, cards.ErrInvariant)

	// matching follow
	legal, _, err := hand.FollowWith(lead, pile(
		repeat(2, cb(cards.Diamonds, cards.Three)), tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t,
		"♣: 7♣ J♣\n"+
			"♦: 4♦ 4♦ 4♦ 6♦ 6♦ 6♦ 9♦ 9♦ 9♦ 10♦ 10♦\n"+
			"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// pair led, no pair held: exhausting the suit is legal
	lead = mustLead(t, repeat(2, cb(cards.Clubs, cards.Jack)), tr)
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Clubs, cards.Seven),
		cb(cards.Clubs, cards.Jack),
	}, tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t,
		"♦: 4♦ 4♦ 4♦ 6♦ 6♦ 6♦ 9♦ 9♦ 9♦ 10♦ 10♦\n"+
			"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// failure to match triple
	lead = mustLead(t, repeat(3, cb(cards.Diamonds, cards.King)), tr)
	legal, _, err = hand.FollowWith(lead, pile(concat(
		repeat(2, cb(cards.Diamonds, cards.Four)),
		repeat(1, cb(cards.Diamonds, cards.Nine)),
	), tr))
	require.NoError(t, err)
	assert.False(t, legal)
	assert.Equal(t,
		"♦: 4♦ 6♦ 6♦ 6♦ 9♦ 9♦ 10♦ 10♦\n"+
			"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// failure to match double
	lead = mustLead(t, repeat(2, cb(cards.Diamonds, cards.King)), tr)
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Diamonds, cards.Four),
		cb(cards.Diamonds, cards.Ten),
	}, tr))
	require.NoError(t, err)
	assert.False(t, legal)
	assert.Equal(t,
		"♦: 6♦ 6♦ 6♦ 9♦ 9♦ 10♦\n"+
			"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// best-effort follow of a quad
	lead = mustLead(t, repeat(4, cb(cards.Diamonds, cards.King)), tr)
	legal, _, err = hand.FollowWith(lead, pile(concat(
		repeat(3, cb(cards.Diamonds, cards.Six)),
		repeat(1, cb(cards.Diamonds, cards.Ten)),
	), tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t,
		"♦: 9♦ 9♦\n"+
			"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// partial void follow
	lead = mustLead(t, repeat(3, cb(cards.Diamonds, cards.King)), tr)
	legal, _, err = hand.FollowWith(lead, pile(concat(
		repeat(2, cb(cards.Diamonds, cards.Nine)),
		repeat(1, cb(cards.Hearts, cards.Two)),
	), tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t,
		"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: 2♥ K♥ K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())

	// total void follow
	lead = mustLead(t, repeat(2, cb(cards.Diamonds, cards.King)), tr)
	legal, _, err = hand.FollowWith(lead, pile([]cards.CardBase{
		cb(cards.Hearts, cards.Two),
		cb(cards.Hearts, cards.King),
	}, tr))
	require.NoError(t, err)
	assert.True(t, legal)
	assert.Equal(t,
		"♠: 2♠ 2♠ 3♠ 3♠ 3♠ 4♠ 4♠ 4♠ 5♠ 5♠\n"+
			"☉: K♥ A♥ A♥ A♥ Q♥ Q♥",
		hand.String())
}

func TestFollowWithComplicatedFlights(t *testing.T) {
	tr := cards.NewTrumpMeta(cards.Hearts, cards.Queen)
	holding := concat(
		repeat(2, cb(cards.Clubs, cards.Three)),
		repeat(2, cb(cards.Clubs, cards.Four)),
		repeat(2, cb(cards.Clubs, cards.Five)),
		repeat(3, cb(cards.Clubs, cards.Seven)),
		repeat(3, cb(cards.Clubs, cards.Eight)),
		repeat(2, cb(cards.Clubs, cards.Ten)),
		repeat(3, cb(cards.Clubs, cards.Jack)),
		repeat(3, cb(cards.Clubs, cards.King)),
		repeat(2, cb(cards.Clubs, cards.Ace)),
	)

	lead := mustLead(t, concat(
		repeat(3, cb(cards.Clubs, cards.Nine)),
		repeat(3, cb(cards.Clubs, cards.Ten)),
		repeat(2, cb(cards.Clubs, cards.Four)),
		repeat(2, cb(cards.Clubs, cards.Five)),
		repeat(2, cb(cards.Clubs, cards.Six)),
		repeat(2, cb(cards.Clubs, cards.Seven)),
		repeat(2, cb(cards.Clubs, cards.Ace)),
		repeat(1, cb(cards.Clubs, cards.King)),
		repeat(1, cb(cards.Clubs, cards.Jack)),
	), tr)
	require.Equal(t,
		"[9♣9♣9♣10♣10♣10♣][4♣4♣5♣5♣6♣6♣7♣7♣][A♣A♣][K♣][J♣]",
		lead.String())

	// ambiguous misplay: the triples parse as the 3x2 tractor, but the hand
	// could still have produced the 2x4, so the response reneges
	hand1 := NewHand(holding, tr)
	handStr := "♣: 3♣ 3♣ 4♣ 4♣ 5♣ 5♣ 7♣ 7♣ 7♣ 8♣ 8♣ 8♣ 10♣ 10♣ J♣ J♣ J♣ K♣ K♣ K♣ A♣ A♣"
	require.Equal(t, handStr, hand1.String())

	misplay := pile(concat(
		repeat(3, cb(cards.Clubs, cards.Jack)),
		repeat(3, cb(cards.Clubs, cards.King)),
		repeat(2, cb(cards.Clubs, cards.Three)),
		repeat(2, cb(cards.Clubs, cards.Four)),
		repeat(2, cb(cards.Clubs, cards.Five)),
		repeat(2, cb(cards.Clubs, cards.Ten)),
		repeat(2, cb(cards.Clubs, cards.Ace)),
		repeat(1, cb(cards.Clubs, cards.Eight)),
		repeat(1, cb(cards.Clubs, cards.Seven)),
	), tr)
	legal, undo, err := hand1.FollowWith(lead, misplay)
	require.NoError(t, err)
	assert.False(t, legal)
	assert.Equal(t, "♣: 7♣ 7♣ 8♣ 8♣", hand1.String())

	hand1.Undo(undo)
	assert.Equal(t, handStr, hand1.String())

	// ambiguous follow: the same shapes are satisfiable when the response
	// spends its triples on 777888
	hand2 := NewHand(holding, tr)
	follow := pile(concat(
		repeat(3, cb(cards.Clubs, cards.Seven)),
		repeat(3, cb(cards.Clubs, cards.Eight)),
		repeat(2, cb(cards.Clubs, cards.Ten)),
		repeat(2, cb(cards.Clubs, cards.Jack)),
		repeat(2, cb(cards.Clubs, cards.King)),
		repeat(2, cb(cards.Clubs, cards.Ace)),
		repeat(2, cb(cards.Clubs, cards.Three)),
		repeat(1, cb(cards.Clubs, cards.King)),
		repeat(1, cb(cards.Clubs, cards.Jack)),
	), tr)
	legal, _, err = hand2.FollowWith(lead, follow)
	require.NoError(t, err)
	assert.True(t, legal)
}
