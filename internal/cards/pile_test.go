package cards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func TestCardPile(t *testing.T) {
	tr := NewTrumpMeta(Spades, Seven)

	pile := NewCardPile([]CardBase{
		{Clubs, King},
		{Clubs, King},
		{Clubs, Three},
		{Clubs, Seven},
		{Clubs, Seven},
		{Diamonds, Jack},
		{Diamonds, Ace},
		{Diamonds, Two},
		{Spades, Two},
		{Spades, Two},
		{Spades, Ace},
		{Diamonds, Seven},
		{Diamonds, Seven},
		{Diamonds, Seven},
		{Hearts, Two},
		{Hearts, Ten},
		{Hearts, Nine},
		{Hearts, Ace},
		{Spades, Seven},
		{Hearts, Eight},
		{Trump, BigJoker},
		{Trump, SmallJoker},
		{Trump, BigJoker},
	}, tr)

	assert.Equal(t, trimmed(`
♣[3]: 3♣ K♣ K♣
♦[3]: 2♦ J♦ A♦
♥[5]: 2♥ 8♥ 9♥ 10♥ A♥
☉[12]: 2♠ 2♠ A♠ 7♣ 7♣ 7♦ 7♦ 7♦ 7♠ w☉ W☉ W☉
`), pile.String())

	king := NewCardBase(Clubs, King)
	assert.Equal(t, 2, pile.Count(king))
	require.NoError(t, pile.Remove(king, 2))
	assert.Equal(t, 0, pile.Count(king))
	pile.Insert(king, 3)
	assert.Equal(t, 3, pile.Count(king))

	assert.Equal(t, trimmed(`
♣[4]: 3♣ K♣ K♣ K♣
♦[3]: 2♦ J♦ A♦
♥[5]: 2♥ 8♥ 9♥ 10♥ A♥
☉[12]: 2♠ 2♠ A♠ 7♣ 7♣ 7♦ 7♦ 7♦ 7♠ w☉ W☉ W☉
`), pile.String())

	assert.Equal(t, 4, pile.CountSuit(Clubs))
	assert.Equal(t, 3, pile.CountSuit(Diamonds))
	assert.Equal(t, 0, pile.CountSuit(Spades))
	assert.Equal(t, 5, pile.CountSuit(Hearts))
	assert.Equal(t, 12, pile.CountSuit(Trump))

	subpile := NewCardPile([]CardBase{
		{Clubs, King},
		{Clubs, Seven},
		{Diamonds, Jack},
		{Diamonds, Seven},
		{Diamonds, Seven},
		{Diamonds, Seven},
		{Hearts, Two},
		{Hearts, Ten},
		{Trump, SmallJoker},
		{Trump, BigJoker},
	}, tr)

	assert.True(t, pile.Contains(subpile.GenCounts()))

	pile.Rehash(NewTrumpMeta(Diamonds, Ace))
	assert.Equal(t, trimmed(`
♣[6]: 3♣ 7♣ 7♣ K♣ K♣ K♣
♠[3]: 2♠ 2♠ 7♠
♥[4]: 2♥ 8♥ 9♥ 10♥
☉[11]: 2♦ 7♦ 7♦ 7♦ J♦ A♠ A♥ A♦ w☉ W☉ W☉
`), pile.String())

	pile.Rehash(NewTrumpMeta(Trump, BigJoker))
	assert.Equal(t, trimmed(`
♣[6]: 3♣ 7♣ 7♣ K♣ K♣ K♣
♦[6]: 2♦ 7♦ 7♦ 7♦ J♦ A♦
♠[4]: 2♠ 2♠ 7♠ A♠
♥[5]: 2♥ 8♥ 9♥ 10♥ A♥
☉[3]: w☉ W☉ W☉
`), pile.String())

	pile.Rehash(NewTrumpMeta(Spades, Seven))
	assert.Equal(t, trimmed(`
♣[4]: 3♣ K♣ K♣ K♣
♦[3]: 2♦ J♦ A♦
♥[5]: 2♥ 8♥ 9♥ 10♥ A♥
☉[12]: 2♠ 2♠ A♠ 7♣ 7♣ 7♦ 7♦ 7♦ 7♠ w☉ W☉ W☉
`), pile.String())

	pile.Rehash(NewTrumpMeta(Clubs, Seven))
	assert.Equal(t, trimmed(`
♦[3]: 2♦ J♦ A♦
♠[3]: 2♠ 2♠ A♠
♥[5]: 2♥ 8♥ 9♥ 10♥ A♥
☉[13]: 3♣ K♣ K♣ K♣ 7♦ 7♦ 7♦ 7♠ 7♣ 7♣ w☉ W☉ W☉
`), pile.String())
}

func TestPileConservation(t *testing.T) {
	tr := NewTrumpMeta(Hearts, Two)
	pile := NewCardPile(nil, tr)

	c := NewCardBase(Clubs, Nine)
	pile.Insert(c, 4)
	require.NoError(t, pile.Remove(c, 1))
	assert.Equal(t, 3, pile.Count(c))
	assert.Equal(t, 3, pile.Size())

	// Over-removal is a contract violation and leaves the pile untouched.
	err := pile.Remove(c, 5)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, 3, pile.Count(c))

	// Rehash preserves the multiset exactly.
	before := 0
	for range pile.GenCards() {
		before++
	}
	pile.Rehash(NewTrumpMeta(Clubs, Nine))
	after := 0
	for range pile.GenCards() {
		after++
	}
	assert.Equal(t, before, after)
	assert.Equal(t, 3, pile.Count(c))
	assert.Equal(t, 3, pile.CountSuit(Trump))
}

func TestDeck(t *testing.T) {
	d := NewDeck(2)
	assert.Len(t, d.Cards, 108)

	d.Shuffle(nil)
	hands := d.Deal(4, 25)
	require.NotNil(t, hands)
	for _, h := range hands {
		assert.Len(t, h, 25)
	}
	assert.Len(t, d.Cards, 8)

	short := NewDeck(1)
	assert.Nil(t, short.Deal(4, 20))
}
