// Package trick implements the structural card-play machinery: decomposing a
// same-suit pile into tuples, tractors and flights, comparing candidate plays
// for dominance, and validating follow-suit responses against a hand.
package trick

import (
	"sort"
	"strings"

	"tractor-game/internal/cards"
)

// Shape is the (arity, length) signature of a tractor: a pair is {2, 1}, two
// adjacent pairs are {2, 2}, a singleton is {1, 1}.
type Shape struct {
	Arity  int
	Length int
}

// tuple is a run of n identical cards within one virtual suit.
type tuple struct {
	card  cards.Card
	arity int
}

// Tractor is a consecutive-rank run of same-arity tuples. Tuples is ordered
// by ascending virtual rank and holds one representative card per rank.
type Tractor struct {
	Arity  int
	Tuples []cards.Card
}

// Length returns the number of ranks the tractor spans.
func (t Tractor) Length() int {
	return len(t.Tuples)
}

// CardCount returns the total number of cards in the tractor.
func (t Tractor) CardCount() int {
	return t.Arity * len(t.Tuples)
}

// Top returns the highest-ranked constituent card.
func (t Tractor) Top() cards.Card {
	return t.Tuples[len(t.Tuples)-1]
}

// Shape returns the tractor's structural signature.
func (t Tractor) Shape() Shape {
	return Shape{Arity: t.Arity, Length: len(t.Tuples)}
}

func (t Tractor) String() string {
	var sb strings.Builder
	for _, c := range t.Tuples {
		for i := 0; i < t.Arity; i++ {
			sb.WriteString(c.String())
		}
	}
	return sb.String()
}

// Flight is an ordered list of tractors belonging to one virtual suit.
// Tractors are kept in canonical order: arity descending, then length
// descending, then top rank descending. The first tractor is the dominant
// component for comparisons.
type Flight struct {
	VSuit    cards.Suit
	Tractors []Tractor
	Count    int
}

// Shapes returns the ordered tractor signatures of the flight.
func (f *Flight) Shapes() []Shape {
	out := make([]Shape, len(f.Tractors))
	for i, t := range f.Tractors {
		out[i] = t.Shape()
	}
	return out
}

func (f *Flight) String() string {
	if len(f.Tractors) == 1 {
		return f.Tractors[0].String()
	}
	var sb strings.Builder
	for _, t := range f.Tractors {
		sb.WriteString("[")
		sb.WriteString(t.String())
		sb.WriteString("]")
	}
	return sb.String()
}

// Play is the result of structural extraction from a pile of cards: a
// well-formed Flight when every card shares one virtual suit, or a degenerate
// toss when the cards span suits.
type Play struct {
	flight *Flight
	count  int
}

// Fl returns the extracted flight, or nil for a toss.
func (p Play) Fl() *Flight {
	return p.flight
}

// Count returns the total number of cards consumed by the extraction.
func (p Play) Count() int {
	return p.count
}

func (p Play) String() string {
	if p.flight == nil {
		return "(toss)"
	}
	return p.flight.String()
}

// Extract decomposes cs into its unique maximal tractor structure under tr.
// Every input card is consumed exactly once. If the cards span more than one
// virtual suit the result is a toss with no flight.
//
// The decomposition splits the sorted tuple sequence into runs of adjacent
// ranks, breaking wherever the next tuple is not the rank successor of the
// previous one (distinct cards sharing a virtual rank break the run too), and
// covers each run greedily by the largest (arity, then length, then rank)
// tractor. Greedy cover is not a minimal cover; ambiguous trump piles keep
// the greedy answer.
func Extract(cs []cards.Card, tr cards.TrumpMeta) Play {
	if len(cs) == 0 {
		return Play{}
	}
	vsuit := cs[0].VSuit
	for _, c := range cs[1:] {
		if c.VSuit != vsuit {
			return Play{count: len(cs)}
		}
	}

	counts := make(map[cards.CardBase]int)
	for _, c := range cs {
		counts[c.CardBase]++
	}
	tuples := make([]tuple, 0, len(counts))
	for cb, n := range counts {
		tuples = append(tuples, tuple{card: cards.NewCardFrom(cb, tr), arity: n})
	}
	sort.Slice(tuples, func(i, j int) bool {
		a, b := tuples[i].card, tuples[j].card
		if a.VRank != b.VRank {
			return a.VRank < b.VRank
		}
		if a.Suit != b.Suit {
			return a.Suit < b.Suit
		}
		return a.Rank < b.Rank
	})

	var tractors []Tractor
	start := 0
	for i := 1; i <= len(tuples); i++ {
		if i < len(tuples) &&
			tuples[i].card.VRank == tr.NextRank(vsuit, tuples[i-1].card.VRank) {
			continue
		}
		tractors = append(tractors, decompose(tuples[start:i], tr, vsuit)...)
		start = i
	}

	sortTractors(tractors)
	return Play{
		flight: &Flight{VSuit: vsuit, Tractors: tractors, Count: len(cs)},
		count:  len(cs),
	}
}

// decompose covers one adjacent-rank run of tuples. It repeatedly carves out
// the best tractor (highest arity, then longest, then highest-ranked) and
// recurses on what remains; tuples that never join a multi-rank tractor come
// out as length-1 tractors of their own arity.
func decompose(run []tuple, tr cards.TrumpMeta, vsuit cards.Suit) []Tractor {
	heights := make([]int, len(run))
	maxH := 0
	for i, t := range run {
		heights[i] = t.arity
		if t.arity > maxH {
			maxH = t.arity
		}
	}

	bestStart, bestLen, bestArity := -1, 0, 0
	for a := maxH; a >= 2 && bestStart < 0; a-- {
		i := 0
		for i < len(run) {
			if heights[i] < a {
				i++
				continue
			}
			j := i
			for j < len(run) && heights[j] >= a {
				j++
			}
			if j-i >= 2 && j-i >= bestLen {
				bestStart, bestLen, bestArity = i, j-i, a
			}
			i = j
		}
	}

	if bestStart < 0 {
		out := make([]Tractor, 0, len(run))
		for _, t := range run {
			out = append(out, Tractor{Arity: t.arity, Tuples: []cards.Card{t.card}})
		}
		return out
	}

	picked := Tractor{Arity: bestArity}
	for i := bestStart; i < bestStart+bestLen; i++ {
		picked.Tuples = append(picked.Tuples, run[i].card)
		heights[i] -= bestArity
	}

	out := []Tractor{picked}
	sub := make([]tuple, 0, len(run))
	flush := func() {
		if len(sub) > 0 {
			out = append(out, decompose(sub, tr, vsuit)...)
			sub = sub[:0]
		}
	}
	for i, t := range run {
		if heights[i] == 0 {
			flush()
			continue
		}
		sub = append(sub, tuple{card: t.card, arity: heights[i]})
	}
	flush()
	return out
}

// Beats reports whether p, as the current trick winner, holds against the
// challenger. A toss never wins. A challenger from another suit only takes
// the trick when it is trump and matches the incumbent's structure exactly;
// within one suit a structure mismatch also fails, and an exact-structure
// challenge is decided on the top card of the dominant tractor, ties going
// to the incumbent.
func (p Play) Beats(other Play) bool {
	fl, ofl := p.flight, other.flight
	if ofl == nil {
		return true
	}
	if fl == nil {
		return false
	}
	same := shapesEqual(fl.Shapes(), ofl.Shapes())
	if fl.VSuit != ofl.VSuit {
		return !(ofl.VSuit == cards.Trump && same)
	}
	if !same {
		return true
	}
	return fl.Tractors[0].Top().VRank >= ofl.Tractors[0].Top().VRank
}

// Beats reports whether the flight, as the current trick winner, holds
// against the challenger.
func (f *Flight) Beats(other Play) bool {
	return Play{flight: f, count: f.Count}.Beats(other)
}

func shapesEqual(a, b []Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortTractors(ts []Tractor) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.Arity != b.Arity {
			return a.Arity > b.Arity
		}
		if a.Length() != b.Length() {
			return a.Length() > b.Length()
		}
		at, bt := a.Top(), b.Top()
		if at.VRank != bt.VRank {
			return at.VRank > bt.VRank
		}
		return at.Suit > bt.Suit
	})
}
