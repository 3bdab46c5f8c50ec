package cards

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
)

// ErrInvariant marks a violated local contract: removing cards that are not
// present, mismatched response counts, and similar programming defects. It is
// never a recoverable game outcome.
var ErrInvariant = errors.New("invariant violated")

// CardPile is a multiset of raw cards, materialized as counts bucketed by
// virtual suit under a current TrumpMeta. Rehashing to a new meta re-buckets
// every card without creating or destroying any.
type CardPile struct {
	tr         TrumpMeta
	counts     map[CardBase]int
	suitCounts [NumSuits]int
	total      int
}

// NewCardPile builds a pile from raw cards under the given trump context.
func NewCardPile(bases []CardBase, tr TrumpMeta) *CardPile {
	p := &CardPile{tr: tr, counts: make(map[CardBase]int)}
	for _, cb := range bases {
		p.Insert(cb, 1)
	}
	return p
}

// TrumpMeta returns the trump context the pile is currently bucketed under.
func (p *CardPile) TrumpMeta() TrumpMeta {
	return p.tr
}

// Size returns the multiset cardinality.
func (p *CardPile) Size() int {
	return p.total
}

// Insert adds n copies of cb to the pile.
func (p *CardPile) Insert(cb CardBase, n int) {
	if n <= 0 {
		return
	}
	vs, _ := p.tr.Canonicalize(cb)
	p.counts[cb] += n
	p.suitCounts[vs] += n
	p.total += n
}

// Remove takes n copies of cb out of the pile. Removing more copies than are
// present is a contract violation and fails with ErrInvariant, leaving the
// pile untouched.
func (p *CardPile) Remove(cb CardBase, n int) error {
	if n <= 0 {
		return nil
	}
	have := p.counts[cb]
	if n > have {
		return fmt.Errorf("%w: remove %d of %s, have %d", ErrInvariant, n, cb, have)
	}
	vs, _ := p.tr.Canonicalize(cb)
	if n == have {
		delete(p.counts, cb)
	} else {
		p.counts[cb] = have - n
	}
	p.suitCounts[vs] -= n
	p.total -= n
	return nil
}

// Count returns the number of copies of cb in the pile.
func (p *CardPile) Count(cb CardBase) int {
	return p.counts[cb]
}

// CountSuit returns the number of cards bucketed into the given virtual suit.
func (p *CardPile) CountSuit(vs Suit) int {
	if vs < 0 || vs >= NumSuits {
		return 0
	}
	return p.suitCounts[vs]
}

// Contains reports whether every (card, count) entry of the sequence is
// covered by this pile.
func (p *CardPile) Contains(counts iter.Seq2[Card, int]) bool {
	for c, n := range counts {
		if p.counts[c.CardBase] < n {
			return false
		}
	}
	return true
}

// Rehash re-derives every card's bucket under a new trump context. The
// multiset membership is unchanged.
func (p *CardPile) Rehash(tr TrumpMeta) {
	p.tr = tr
	p.suitCounts = [NumSuits]int{}
	for cb, n := range p.counts {
		vs, _ := tr.Canonicalize(cb)
		p.suitCounts[vs] += n
	}
}

// Clone returns an independent copy of the pile.
func (p *CardPile) Clone() *CardPile {
	c := &CardPile{tr: p.tr, counts: make(map[CardBase]int, len(p.counts)), suitCounts: p.suitCounts, total: p.total}
	for cb, n := range p.counts {
		c.counts[cb] = n
	}
	return c
}

// sorted returns the distinct cards of the pile in canonical order.
func (p *CardPile) sorted() []Card {
	out := make([]Card, 0, len(p.counts))
	for cb := range p.counts {
		out = append(out, NewCardFrom(cb, p.tr))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// GenCounts yields each distinct (card, count) pair in canonical order. The
// sequence is finite and restartable.
func (p *CardPile) GenCounts() iter.Seq2[Card, int] {
	return func(yield func(Card, int) bool) {
		for _, c := range p.sorted() {
			if !yield(c, p.counts[c.CardBase]) {
				return
			}
		}
	}
}

// GenCards yields every card of the pile in canonical order, repeating
// duplicates. The sequence is finite and restartable.
func (p *CardPile) GenCards() iter.Seq[Card] {
	return func(yield func(Card) bool) {
		for _, c := range p.sorted() {
			for i := 0; i < p.counts[c.CardBase]; i++ {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// String renders the pile one line per non-empty bucket with bucket sizes,
// e.g. "♣[3]: 3♣ K♣ K♣".
func (p *CardPile) String() string {
	return p.format(true)
}

// Format renders the pile one line per non-empty bucket, optionally including
// the bucket sizes.
func (p *CardPile) Format(withCounts bool) string {
	return p.format(withCounts)
}

func (p *CardPile) format(withCounts bool) string {
	lines := make([]string, 0, NumSuits)
	var cur Suit = -1
	var sb strings.Builder
	flush := func() {
		if cur >= 0 {
			lines = append(lines, sb.String())
			sb.Reset()
		}
	}
	for c := range p.GenCards() {
		if c.VSuit != cur {
			flush()
			cur = c.VSuit
			if withCounts {
				fmt.Fprintf(&sb, "%s[%d]:", cur, p.suitCounts[cur])
			} else {
				fmt.Fprintf(&sb, "%s:", cur)
			}
		}
		sb.WriteString(" ")
		sb.WriteString(c.String())
	}
	flush()
	return strings.Join(lines, "\n")
}
