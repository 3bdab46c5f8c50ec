package trick

import (
	"fmt"
	"sort"

	"tractor-game/internal/cards"
)

// Hand is a player's holding with follow-suit validation. All mutation goes
// through FollowWith and Undo so a caller can speculatively validate a play
// and roll it back.
type Hand struct {
	pile *cards.CardPile
}

// NewHand builds a hand from raw cards under the given trump context.
func NewHand(bases []cards.CardBase, tr cards.TrumpMeta) *Hand {
	return &Hand{pile: cards.NewCardPile(bases, tr)}
}

// NewHandFromPile wraps an existing pile. The hand takes ownership.
func NewHandFromPile(pile *cards.CardPile) *Hand {
	return &Hand{pile: pile}
}

// Pile exposes the underlying holding.
func (h *Hand) Pile() *cards.CardPile {
	return h.pile
}

// Rehash re-buckets the holding under a new trump context.
func (h *Hand) Rehash(tr cards.TrumpMeta) {
	h.pile.Rehash(tr)
}

func (h *Hand) String() string {
	return h.pile.Format(false)
}

// UndoToken records the cards a FollowWith call removed, so the removal can
// be rolled back.
type UndoToken struct {
	removed map[cards.CardBase]int
}

// Undo reinserts the cards removed by the FollowWith call that produced tok.
// A token must be applied at most once.
func (h *Hand) Undo(tok *UndoToken) {
	if tok == nil {
		return
	}
	for cb, n := range tok.removed {
		h.pile.Insert(cb, n)
	}
	tok.removed = nil
}

// FollowWith removes play from the hand and reports whether it is a legal
// response to lead. The removal happens whether or not the play is legal;
// the returned token rolls it back. Plays that are not even well-formed
// responses (wrong card count, cards not held) fail with ErrInvariant and
// leave the hand untouched.
//
// Legality follows the usual follow-suit ladder. A hand void in the led suit
// may play anything. A hand holding fewer led-suit cards than the lead must
// exhaust them. A hand holding enough must play entirely in suit and match
// the lead's tractor structure; when no exact structural match exists the
// play is still legal if, shape by shape from largest to smallest, the hand
// could not have done better.
func (h *Hand) FollowWith(lead *Flight, play *cards.CardPile) (bool, *UndoToken, error) {
	if play.Size() != lead.Count {
		return false, nil, fmt.Errorf(
			"%w: play of %d cards to a lead of %d", cards.ErrInvariant, play.Size(), lead.Count)
	}
	if !h.pile.Contains(play.GenCounts()) {
		return false, nil, fmt.Errorf("%w: play not covered by hand", cards.ErrInvariant)
	}

	tr := h.pile.TrumpMeta()
	have := h.pile.CountSuit(lead.VSuit)
	handSuit := suitCounts(h.pile, lead.VSuit)

	tok := &UndoToken{removed: make(map[cards.CardBase]int)}
	for c, n := range play.GenCounts() {
		if err := h.pile.Remove(c.CardBase, n); err != nil {
			h.Undo(tok)
			return false, nil, err
		}
		tok.removed[c.CardBase] = n
	}

	if have == 0 {
		return true, tok, nil
	}

	inSuit := 0
	for c, n := range play.GenCounts() {
		if c.VSuit == lead.VSuit {
			inSuit += n
		}
	}
	if have < lead.Count {
		return inSuit == have, tok, nil
	}
	if inSuit != lead.Count {
		return false, tok, nil
	}

	playSuit := suitCounts(play, lead.VSuit)
	reqs := lead.Shapes()
	if matchShapes(reqs, cloneCounts(playSuit), tr, lead.VSuit) {
		return true, tok, nil
	}
	return bestEffort(reqs, playSuit, handSuit, tr, lead.VSuit), tok, nil
}

// suitCounts snapshots the pile's holdings in one virtual suit.
func suitCounts(p *cards.CardPile, vsuit cards.Suit) map[cards.CardBase]int {
	out := make(map[cards.CardBase]int)
	for c, n := range p.GenCounts() {
		if c.VSuit == vsuit {
			out[c.CardBase] = n
		}
	}
	return out
}

func cloneCounts(m map[cards.CardBase]int) map[cards.CardBase]int {
	out := make(map[cards.CardBase]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// eachChain enumerates every tractor of the given shape that counts can
// form, lowest-ranked candidates first, and hands each to fn as a run of
// CardBases in rank order. Enumeration stops when fn returns true.
func eachChain(counts map[cards.CardBase]int, tr cards.TrumpMeta, vsuit cards.Suit,
	sh Shape, fn func(chain []cards.CardBase) bool) bool {

	elig := make([]cards.Card, 0, len(counts))
	for cb, n := range counts {
		if n >= sh.Arity {
			elig = append(elig, cards.NewCardFrom(cb, tr))
		}
	}
	sort.Slice(elig, func(i, j int) bool {
		a, b := elig[i], elig[j]
		if a.VRank != b.VRank {
			return a.VRank < b.VRank
		}
		if a.Suit != b.Suit {
			return a.Suit < b.Suit
		}
		return a.Rank < b.Rank
	})

	chain := make([]cards.CardBase, 0, sh.Length)
	var extend func(prev cards.Card) bool
	extend = func(prev cards.Card) bool {
		if len(chain) == sh.Length {
			return fn(chain)
		}
		next := tr.NextRank(vsuit, prev.VRank)
		if next == 0 {
			return false
		}
		for _, c := range elig {
			if c.VRank != next {
				continue
			}
			chain = append(chain, c.CardBase)
			if extend(c) {
				return true
			}
			chain = chain[:len(chain)-1]
		}
		return false
	}
	for _, c := range elig {
		chain = append(chain[:0], c.CardBase)
		if extend(c) {
			return true
		}
	}
	return false
}

// firstChain returns the lowest-ranked tractor of the given shape formable
// from counts, or nil.
func firstChain(counts map[cards.CardBase]int, tr cards.TrumpMeta, vsuit cards.Suit,
	sh Shape) []cards.CardBase {

	var out []cards.CardBase
	eachChain(counts, tr, vsuit, sh, func(chain []cards.CardBase) bool {
		out = append([]cards.CardBase(nil), chain...)
		return true
	})
	return out
}

func consumeChain(counts map[cards.CardBase]int, chain []cards.CardBase, arity int) {
	for _, cb := range chain {
		counts[cb] -= arity
		if counts[cb] <= 0 {
			delete(counts, cb)
		}
	}
}

func restoreChain(counts map[cards.CardBase]int, chain []cards.CardBase, arity int) {
	for _, cb := range chain {
		counts[cb] += arity
	}
}

// matchShapes reports whether counts parses exactly into the given shape
// sequence. Backtracking search; counts is consumed on success.
func matchShapes(reqs []Shape, counts map[cards.CardBase]int, tr cards.TrumpMeta,
	vsuit cards.Suit) bool {

	if len(reqs) == 0 {
		return true
	}
	sh := reqs[0]
	ok := false
	eachChain(counts, tr, vsuit, sh, func(chain []cards.CardBase) bool {
		consumeChain(counts, chain, sh.Arity)
		if matchShapes(reqs[1:], counts, tr, vsuit) {
			ok = true
			return true
		}
		restoreChain(counts, chain, sh.Arity)
		return false
	})
	return ok
}

// bestEffort decides legality when no exact structural match exists. Working
// through the lead's shapes from largest to smallest, each shape is either
// satisfied from the play, proven impossible for the whole pre-play holding
// (in which case the response was as good as it could be for that shape), or
// exposed as a renege because the holding could have formed it. Unsatisfiable
// shapes break down into smaller obligations that re-enter the queue.
func bestEffort(reqs []Shape, play, hand map[cards.CardBase]int, tr cards.TrumpMeta,
	vsuit cards.Suit) bool {

	queue := append([]Shape(nil), reqs...)
	playLeft := cloneCounts(play)
	for len(queue) > 0 {
		sh := queue[0]
		queue = queue[1:]
		if chain := firstChain(playLeft, tr, vsuit, sh); chain != nil {
			consumeChain(playLeft, chain, sh.Arity)
			continue
		}
		if firstChain(hand, tr, vsuit, sh) != nil {
			return false
		}
		switch {
		case sh.Length > 1:
			for i := 0; i < sh.Length; i++ {
				queue = append(queue, Shape{Arity: sh.Arity, Length: 1})
			}
		case sh.Arity > 1:
			queue = append(queue,
				Shape{Arity: sh.Arity - 1, Length: 1},
				Shape{Arity: 1, Length: 1})
		}
		sort.SliceStable(queue, func(i, j int) bool {
			if queue[i].Arity != queue[j].Arity {
				return queue[i].Arity > queue[j].Arity
			}
			return queue[i].Length > queue[j].Length
		})
	}
	return true
}
