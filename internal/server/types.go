package server

import (
	"time"

	"lucky-seven/internal/cards"
)

const (
	statusWaiting   = "waiting"
	statusCountdown = "countdown"
	statusPlaying   = "playing"
)

// Inbound intents.
const (
	intentAuthenticate = "authenticate"
	intentPlaceBet     = "place-bet"
	intentLockBet      = "lock-bet"
	intentCancelBet    = "cancel-bet"
	intentRepeatBet    = "repeat-bet"
	intentLeave        = "leave"
)

// Outbound events.
const (
	evtRoundState      = "round-state"
	evtRoundStarting   = "round-starting"
	evtCountdownTick   = "countdown-tick"
	evtOutcomeRevealed = "outcome-revealed"
	evtRoundEnded      = "round-ended"
	evtWagerPlaced     = "wager-placed"
	evtWagersLocked    = "wagers-locked"
	evtWagersCancelled = "wagers-cancelled"
	evtBetError        = "bet-error"
	evtBalanceUpdate   = "balance-update"
	evtAuthenticated   = "authenticated"
)

// Timer names; at most one of each is live at a time.
const (
	timerTick   = "tick"
	timerFinish = "finish"
	timerNext   = "next-round"
)

// Wager is the in-memory view of a pending wager. The authoritative
// record lives behind the ledger gateway; this copy drives settlement.
type Wager struct {
	ID        string
	AccountID uint
	Handle    string
	Type      cards.BetType
	Stake     int64
	Locked    bool
}

// book holds one account's wagers for the current round, split into the
// cancel-anytime unlocked partition and the disconnect-surviving locked
// partition.
type book struct {
	unlocked []*Wager
	locked   []*Wager
}

func (b *book) empty() bool {
	return len(b.unlocked) == 0 && len(b.locked) == 0
}

// Round is the single live round. Outcome stays nil until generated and
// must not leave the process while status is countdown.
type Round struct {
	ID        string
	Sequence  int64
	Status    string
	Remaining int
	StartedAt time.Time
	Outcome   *cards.Card
	Revealed  bool
	Override  cards.Category
	books     map[uint]*book
}

// Participant is the connection-scoped view of an account. AccountID is
// zero until the connection authenticates.
type Participant struct {
	Handle    string
	Name      string
	AccountID uint
	Balance   int64
}

// HouseStats accumulates across rounds; only settlement mutates it.
type HouseStats struct {
	Rounds  int64 `json:"rounds"`
	Wagered int64 `json:"wagered"`
	PaidOut int64 `json:"paid_out"`
	Profit  int64 `json:"profit"`
}

func (h HouseStats) EdgePercent() float64 {
	if h.Wagered == 0 {
		return 0
	}
	return float64(h.Profit) / float64(h.Wagered) * 100
}

type wagerPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Stake  int64  `json:"stake"`
	Locked bool   `json:"locked"`
}

type outcomePayload struct {
	Value int    `json:"value"`
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Color string `json:"color"`
}

func outcomeView(card cards.Card) outcomePayload {
	return outcomePayload{
		Value: card.Value,
		Rank:  card.Rank(),
		Suit:  string(card.Suit),
		Color: string(card.Color()),
	}
}

func wagerView(w *Wager) wagerPayload {
	return wagerPayload{
		ID:     w.ID,
		Type:   string(w.Type),
		Stake:  w.Stake,
		Locked: w.Locked,
	}
}
