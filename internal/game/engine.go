package game

import (
	"slices"
	"sort"

	"tractor-game/internal/cards"
	"tractor-game/internal/engine"
	"tractor-game/internal/trick"
)

// TractorEngine plays a single round of tractor: seats fill as users
// join, any seated player starts the deal, and play proceeds in tricks
// until hands are empty. The seat taking the last trick also collects
// the kitty.
type TractorEngine struct{}

var _ engine.Engine[
	Config, Intent, State, Action, ClientState, Effect, UpdateError,
] = TractorEngine{}

func (TractorEngine) Init(cfg Config) State {
	return State{
		Config: cfg.withDefaults(),
		Phase:  PhaseWaiting,
		Winner: -1,
	}
}

// Listen validates an intent against the authoritative state and
// resolves any nondeterminism, so that Apply is a pure function. The
// state is not modified.
func (TractorEngine) Listen(s State, in Intent, who engine.User) (Action, *UpdateError) {
	seat := s.seatOf(who.ID)

	switch in.Kind {
	case IntentStart:
		if s.Phase != PhaseWaiting {
			return Action{}, errf("round already started")
		}
		if seat < 0 {
			return Action{}, errf("%s is not seated", who.Nick)
		}
		if len(s.Players) < s.Config.NPlayers {
			return Action{}, errf("waiting for %d more player(s)",
				s.Config.NPlayers-len(s.Players))
		}
		deck := cards.NewDeck(s.Config.NDecks)
		deck.Shuffle(nil)
		per, _ := dealShape(s.Config)
		deal := deck.Deal(s.Config.NPlayers, per)
		return Action{
			Kind:  IntentStart,
			Seat:  seat,
			Deal:  deal,
			Kitty: deck.Cards,
		}, nil

	case IntentPlay:
		if s.Phase != PhasePlaying {
			return Action{}, errf("no trick in progress")
		}
		if seat < 0 {
			return Action{}, errf("%s is not seated", who.Nick)
		}
		if seat != s.Turn {
			return Action{}, errf("not your turn")
		}
		if len(in.Cards) == 0 {
			return Action{}, errf("empty play")
		}
		if ue := vetPlay(s.Players[seat].Hand, s.Current, in.Cards, s.Config.Trump); ue != nil {
			return Action{}, ue
		}
		return Action{Kind: IntentPlay, Seat: seat, Cards: in.Cards}, nil
	}
	return Action{}, errf("unknown intent %q", in.Kind)
}

// vetPlay checks a play against a hand without leaving the hand
// modified. A lead must form a single flight; a follow must satisfy
// the led structure as far as the hand allows.
func vetPlay(hand *trick.Hand, current []SeatPlay,
	play []cards.CardBase, tr cards.TrumpMeta) *UpdateError {

	pile := cards.NewCardPile(play, tr)
	if len(current) == 0 {
		if !hand.Pile().Contains(pile.GenCounts()) {
			return errf("play not in hand")
		}
		if extractPlay(play, tr).Fl() == nil {
			return errf("a lead must stay in one suit")
		}
		return nil
	}
	lead := extractPlay(current[0].Cards, tr).Fl()
	legal, tok, err := hand.FollowWith(lead, pile)
	if tok != nil {
		hand.Undo(tok)
	}
	if err != nil {
		return errf("%s", err.Error())
	}
	if !legal {
		return errf("play reneges on the led suit")
	}
	return nil
}

func (TractorEngine) Apply(s State, cmd engine.Command[Action]) (State, *UpdateError) {
	if cmd.Kind == engine.KindProtocol {
		return applyProtocol(s, cmd.Protocol)
	}

	act := cmd.Effect
	switch act.Kind {
	case IntentStart:
		return applyStart(s, act)
	case IntentPlay:
		return applyPlay(s, act)
	}
	return s, errf("unknown action %q", act.Kind)
}

func applyProtocol(s State, pa engine.ProtocolAction) (State, *UpdateError) {
	switch pa.Verb {
	case engine.UserJoin:
		if pa.Who == nil {
			return s, errf("join without a user")
		}
		if s.Phase == PhaseWaiting && len(s.Players) < s.Config.NPlayers {
			s.Players = append(slices.Clone(s.Players), Player{User: *pa.Who})
		}
		return s, nil
	case engine.UserPart:
		// Seats are only released before the deal. Once cards are
		// out a departed player keeps their seat and the round
		// stalls on their turn until they reconnect.
		if s.Phase == PhaseWaiting {
			if i := s.seatOf(pa.ID); i >= 0 {
				s.Players = slices.Delete(slices.Clone(s.Players), i, i+1)
			}
		}
		return s, nil
	}
	return s, errf("unknown protocol verb %q", pa.Verb)
}

func applyStart(s State, act Action) (State, *UpdateError) {
	if s.Phase != PhaseWaiting {
		return s, errf("round already started")
	}
	if len(act.Deal) != len(s.Players) || len(s.Players) != s.Config.NPlayers {
		return s, errf("deal does not match the table")
	}
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Hand = trick.NewHand(act.Deal[i], s.Config.Trump)
		players[i] = p
	}
	s.Players = players
	s.Kitty = act.Kitty
	s.Phase = PhasePlaying
	s.Leader = act.Seat
	s.Turn = act.Seat
	s.Points = make([]int, s.Config.NPlayers)
	s.Tricks = make([]int, s.Config.NPlayers)
	return s, nil
}

func applyPlay(s State, act Action) (State, *UpdateError) {
	if s.Phase != PhasePlaying {
		return s, errf("no trick in progress")
	}
	if act.Seat != s.Turn {
		return s, errf("not your turn")
	}
	hand := s.Players[act.Seat].Hand
	tr := s.Config.Trump

	if len(s.Current) == 0 {
		if ue := vetPlay(hand, nil, act.Cards, tr); ue != nil {
			return s, ue
		}
		for _, cb := range act.Cards {
			if err := hand.Pile().Remove(cb, 1); err != nil {
				return s, errf("%s", err.Error())
			}
		}
	} else {
		lead := extractPlay(s.Current[0].Cards, tr).Fl()
		legal, tok, err := hand.FollowWith(lead, cards.NewCardPile(act.Cards, tr))
		if err != nil {
			return s, errf("%s", err.Error())
		}
		if !legal {
			hand.Undo(tok)
			return s, errf("play reneges on the led suit")
		}
	}

	s.Current = append(slices.Clone(s.Current), SeatPlay{Seat: act.Seat, Cards: act.Cards})
	if len(s.Current) < s.Config.NPlayers {
		s.Turn = (s.Turn + 1) % s.Config.NPlayers
		return s, nil
	}

	winner := resolveTrick(s.Current, tr)
	s.Points = slices.Clone(s.Points)
	s.Tricks = slices.Clone(s.Tricks)
	s.Points[winner] += trickPoints(s.Current)
	s.Tricks[winner]++
	s.Current = nil
	s.Leader = winner
	s.Turn = winner

	if s.Players[winner].Hand.Pile().Size() == 0 {
		s.Points[winner] += pilePoints(s.Kitty)
		s.Phase = PhaseDone
		s.Winner = winner
	}
	return s, nil
}

// Predict speculatively applies a client's own play. Starts are never
// predicted since the deal is random, and neither is a round-ending
// play, whose effect carries the kitty reveal only the server knows.
func (TractorEngine) Predict(cs ClientState, in Intent, me engine.User) *engine.Prediction[ClientState, Effect, UpdateError] {
	if in.Kind != IntentPlay {
		return nil
	}
	seat := cs.seatOf(me.ID)
	if seat < 0 {
		return &engine.Prediction[ClientState, Effect, UpdateError]{
			Err: errf("%s is not seated", me.Nick),
		}
	}
	if cs.Phase != PhasePlaying || seat != cs.Turn {
		return &engine.Prediction[ClientState, Effect, UpdateError]{
			Err: errf("not your turn"),
		}
	}
	if len(in.Cards) == 0 {
		return &engine.Prediction[ClientState, Effect, UpdateError]{
			Err: errf("empty play"),
		}
	}
	hand := trick.NewHand(cs.Players[seat].Hand, cs.Config.Trump)
	if ue := vetPlay(hand, cs.Current, in.Cards, cs.Config.Trump); ue != nil {
		return &engine.Prediction[ClientState, Effect, UpdateError]{Err: ue}
	}
	if len(in.Cards) == len(cs.Players[seat].Hand) {
		return nil
	}

	eff := Effect{Kind: IntentPlay, Seat: seat, Cards: in.Cards}
	next := cs.clone()
	if ue := applyEffect(&next, eff, me); ue != nil {
		return &engine.Prediction[ClientState, Effect, UpdateError]{Err: ue}
	}
	return &engine.Prediction[ClientState, Effect, UpdateError]{
		State:  next,
		Effect: eff,
	}
}

func (TractorEngine) ApplyClient(cs ClientState, cmd engine.Command[Effect], me engine.User) (ClientState, *UpdateError) {
	next := cs.clone()
	if cmd.Kind == engine.KindProtocol {
		if ue := applyProtocolClient(&next, cmd.Protocol); ue != nil {
			return cs, ue
		}
		return next, nil
	}
	if ue := applyEffect(&next, cmd.Effect, me); ue != nil {
		return cs, ue
	}
	return next, nil
}

func applyProtocolClient(cs *ClientState, pa engine.ProtocolAction) *UpdateError {
	switch pa.Verb {
	case engine.UserJoin:
		if pa.Who == nil {
			return errf("join without a user")
		}
		if cs.Phase == PhaseWaiting && len(cs.Players) < cs.Config.NPlayers {
			cs.Players = append(cs.Players, ClientPlayer{User: *pa.Who})
		}
		return nil
	case engine.UserPart:
		if cs.Phase == PhaseWaiting {
			if i := cs.seatOf(pa.ID); i >= 0 {
				cs.Players = slices.Delete(cs.Players, i, i+1)
			}
		}
		return nil
	}
	return errf("unknown protocol verb %q", pa.Verb)
}

func applyEffect(cs *ClientState, eff Effect, me engine.User) *UpdateError {
	switch eff.Kind {
	case IntentStart:
		if cs.Phase != PhaseWaiting {
			return errf("round already started")
		}
		if len(cs.Players) != cs.Config.NPlayers {
			return errf("deal does not match the table")
		}
		mine := cs.seatOf(me.ID)
		for i := range cs.Players {
			cs.Players[i].HandSize = eff.HandSize
			cs.Players[i].Hand = nil
			if i == mine {
				cs.Players[i].Hand = slices.Clone(eff.Hand)
			}
		}
		cs.KittySize = 54*cs.Config.NDecks - cs.Config.NPlayers*eff.HandSize
		cs.Phase = PhasePlaying
		cs.Leader = eff.Seat
		cs.Turn = eff.Seat
		cs.Points = make([]int, cs.Config.NPlayers)
		cs.Tricks = make([]int, cs.Config.NPlayers)
		return nil

	case IntentPlay:
		if cs.Phase != PhasePlaying {
			return errf("no trick in progress")
		}
		if eff.Seat != cs.Turn {
			return errf("play out of turn")
		}
		p := &cs.Players[eff.Seat]
		if p.HandSize < len(eff.Cards) {
			return errf("play exceeds hand")
		}
		if p.Hand != nil {
			rest, ok := removeBases(p.Hand, eff.Cards)
			if !ok {
				return errf("play not in hand")
			}
			p.Hand = rest
		}
		p.HandSize -= len(eff.Cards)

		cs.Current = append(cs.Current, SeatPlay{Seat: eff.Seat, Cards: eff.Cards})
		if len(cs.Current) < cs.Config.NPlayers {
			cs.Turn = (cs.Turn + 1) % cs.Config.NPlayers
			return nil
		}

		winner := resolveTrick(cs.Current, cs.Config.Trump)
		cs.Points[winner] += trickPoints(cs.Current)
		cs.Tricks[winner]++
		cs.Current = nil
		cs.Leader = winner
		cs.Turn = winner

		if eff.Kitty != nil {
			cs.Points[winner] += pilePoints(eff.Kitty)
			cs.KittySize = 0
			cs.Phase = PhaseDone
			cs.Winner = winner
		}
		return nil
	}
	return errf("unknown effect %q", eff.Kind)
}

// Redact hides everything a player is not entitled to see: other
// players' hands become counts and the kitty becomes its size.
func (TractorEngine) Redact(s State, who engine.User) ClientState {
	mine := s.seatOf(who.ID)
	players := make([]ClientPlayer, len(s.Players))
	for i, p := range s.Players {
		cp := ClientPlayer{User: p.User}
		if p.Hand != nil {
			cp.HandSize = p.Hand.Pile().Size()
			if i == mine {
				cp.Hand = handBases(p.Hand)
			}
		}
		players[i] = cp
	}
	current := make([]SeatPlay, len(s.Current))
	for i, sp := range s.Current {
		sp.Cards = slices.Clone(sp.Cards)
		current[i] = sp
	}
	return ClientState{
		Config:    s.Config,
		Phase:     s.Phase,
		Players:   players,
		KittySize: len(s.Kitty),
		Leader:    s.Leader,
		Turn:      s.Turn,
		Current:   current,
		Points:    slices.Clone(s.Points),
		Tricks:    slices.Clone(s.Tricks),
		Winner:    s.Winner,
	}
}

func (TractorEngine) RedactAction(s State, act Action, who engine.User) Effect {
	switch act.Kind {
	case IntentStart:
		eff := Effect{Kind: IntentStart, Seat: act.Seat}
		if len(act.Deal) > 0 {
			eff.HandSize = len(act.Deal[0])
		}
		if seat := s.seatOf(who.ID); seat >= 0 && seat < len(act.Deal) {
			eff.Hand = slices.Clone(act.Deal[seat])
		}
		return eff
	case IntentPlay:
		eff := Effect{Kind: IntentPlay, Seat: act.Seat, Cards: act.Cards}
		// RedactAction sees the post-apply state, so a finished
		// round means this was the closing play.
		if s.Phase == PhaseDone {
			eff.Kitty = slices.Clone(s.Kitty)
		}
		return eff
	}
	return Effect{Kind: act.Kind, Seat: act.Seat}
}

// dealShape derives cards per hand and kitty size from the config. The
// kitty is always nonempty.
func dealShape(cfg Config) (perPlayer, kitty int) {
	total := 54 * cfg.NDecks
	kitty = total % cfg.NPlayers
	if kitty == 0 {
		kitty = cfg.NPlayers
	}
	return (total - kitty) / cfg.NPlayers, kitty
}

// handBases flattens a hand into a sorted card list for the wire.
func handBases(h *trick.Hand) []cards.CardBase {
	var out []cards.CardBase
	for c, n := range h.Pile().GenCounts() {
		for i := 0; i < n; i++ {
			out = append(out, c.CardBase)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Suit != out[j].Suit {
			return out[i].Suit < out[j].Suit
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}
