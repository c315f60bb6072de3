package server

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lucky-seven/internal/cards"
	"lucky-seven/internal/config"
	"lucky-seven/internal/ledger"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBettingClosed    = errors.New("betting window is closed")
	ErrInvalidBetType   = errors.New("invalid bet type")
	ErrInvalidStake     = errors.New("stake must be positive")
	ErrAlreadyLocked    = errors.New("wagers already locked")
	ErrNothingToCancel  = errors.New("no wagers to cancel")
	ErrPendingWagers    = errors.New("pending wagers exist")
	ErrNoPreviousBets   = errors.New("no previous round bets")
	ErrWrongRound       = errors.New("round is not current")
	ErrOverrideWindow   = errors.New("override only accepted during countdown")
	ErrOverrideSet      = errors.New("override already set")
	ErrInvalidCategory  = errors.New("invalid outcome category")
)

// Publisher is the narrow event contract the table emits through. The
// websocket layer implements it; tests substitute a recorder.
type Publisher interface {
	Broadcast(event string, payload any)
	Send(handle, event string, payload any)
}

type lastBet struct {
	Type  cards.BetType
	Stake int64
}

// Table owns the single live round and every transition it goes through.
// All round state is guarded by mu; ledger calls happen outside it, so
// operations re-validate the window after any ledger round-trip.
type Table struct {
	mu       sync.Mutex
	cfg      config.Config
	ledger   ledger.Gateway
	sched    Scheduler
	pub      Publisher
	rng      *rand.Rand
	round    *Round
	nextSeq  int64
	seats    map[string]*Participant
	handles  map[uint]string
	lastBets map[uint][]lastBet
	stats    HouseStats
	settling bool
}

func NewTable(cfg config.Config, gateway ledger.Gateway, sched Scheduler, pub Publisher, rng *rand.Rand) *Table {
	return &Table{
		cfg:      cfg,
		ledger:   gateway,
		sched:    sched,
		pub:      pub,
		rng:      rng,
		nextSeq:  1,
		seats:    make(map[string]*Participant),
		handles:  make(map[uint]string),
		lastBets: make(map[uint][]lastBet),
	}
}

// Start begins the perpetual round cycle.
func (t *Table) Start(ctx context.Context) {
	t.beginRound(ctx)
}

func (t *Table) beginRound(ctx context.Context) {
	t.mu.Lock()
	if t.settling {
		// A new round must not start while settlement is in flight.
		t.mu.Unlock()
		t.sched.Schedule(timerNext, time.Second, func() { t.beginRound(context.Background()) })
		return
	}
	round := &Round{
		ID:        uuid.NewString(),
		Sequence:  t.nextSeq,
		Status:    statusCountdown,
		Remaining: t.cfg.CountdownSeconds,
		StartedAt: time.Now().UTC(),
		books:     make(map[uint]*book),
	}
	t.nextSeq++
	t.round = round
	t.mu.Unlock()

	if err := t.ledger.CreateRound(ctx, &ledger.Round{
		ID:        round.ID,
		Sequence:  round.Sequence,
		Status:    statusCountdown,
		StartedAt: round.StartedAt,
	}); err != nil {
		log.Printf("round record create failed round_id=%s error=%v", round.ID, err)
	}
	if err := t.ledger.RecordEvent(ctx, round.ID, "round-started", map[string]any{
		"sequence":  round.Sequence,
		"countdown": round.Remaining,
	}); err != nil {
		log.Printf("event record failed round_id=%s error=%v", round.ID, err)
	}

	log.Printf("round starting round_id=%s sequence=%d", round.ID, round.Sequence)
	t.pub.Broadcast(evtRoundStarting, map[string]any{
		"round_id":  round.ID,
		"sequence":  round.Sequence,
		"countdown": round.Remaining,
	})
	t.sched.Schedule(timerTick, time.Second, func() { t.tick(context.Background()) })
}

// bettingOpenLocked reports whether the open-betting portion of the
// countdown is still running. Callers hold mu.
func (t *Table) bettingOpenLocked() bool {
	round := t.round
	if round == nil || round.Status != statusCountdown {
		return false
	}
	return round.Remaining > t.cfg.CountdownSeconds-t.cfg.BettingSeconds
}

func (t *Table) tick(ctx context.Context) {
	t.mu.Lock()
	round := t.round
	if round == nil || round.Status != statusCountdown {
		t.mu.Unlock()
		return
	}
	round.Remaining--
	remaining := round.Remaining
	closeAt := t.cfg.CountdownSeconds - t.cfg.BettingSeconds
	if remaining == closeAt && round.Outcome == nil {
		card := selectOutcome(t.pendingTotalsLocked(), round.ID, round.StartedAt, t.rng)
		round.Outcome = &card
		log.Printf("betting closed round_id=%s", round.ID)
	}
	open := remaining > closeAt
	t.mu.Unlock()

	if remaining <= 0 {
		t.reveal(ctx)
		return
	}
	// Card details never ride a countdown broadcast.
	t.pub.Broadcast(evtCountdownTick, map[string]any{
		"round_id":     round.ID,
		"remaining":    remaining,
		"betting_open": open,
	})
	t.sched.Schedule(timerTick, time.Second, func() { t.tick(context.Background()) })
}

func (t *Table) reveal(ctx context.Context) {
	t.mu.Lock()
	round := t.round
	if round == nil || round.Status != statusCountdown {
		t.mu.Unlock()
		return
	}
	if round.Override != "" {
		card := cards.Materialize(round.Override, t.rng)
		round.Outcome = &card
		round.Override = ""
		log.Printf("override applied round_id=%s", round.ID)
	}
	if round.Outcome == nil {
		log.Printf("no outcome materialized at reveal round_id=%s, synthesizing fallback", round.ID)
		card := cards.RandomNonSeven(t.rng)
		round.Outcome = &card
	}
	round.Status = statusPlaying
	round.Revealed = true
	card := *round.Outcome
	snapshot := t.settlementSnapshotLocked(round)
	t.settling = true
	t.mu.Unlock()

	log.Printf("outcome revealed round_id=%s card=%s-%s", round.ID, card.Rank(), card.Suit)
	report := t.settle(ctx, round, snapshot, card)

	t.mu.Lock()
	t.settling = false
	t.mu.Unlock()

	t.pub.Broadcast(evtOutcomeRevealed, map[string]any{
		"round_id": round.ID,
		"outcome":  outcomeView(card),
		"wagered":  report.Wagered,
		"paid_out": report.PaidOut,
	})
	t.sched.Schedule(timerFinish, time.Duration(t.cfg.RevealSeconds)*time.Second, t.finish)
}

// settlementSnapshotLocked copies every wager in the round index in a
// stable order. Settlement runs against this copy; reconnections that
// land afterwards re-key the live index only.
func (t *Table) settlementSnapshotLocked(round *Round) []*Wager {
	accountIDs := make([]uint, 0, len(round.books))
	for id := range round.books {
		accountIDs = append(accountIDs, id)
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })
	var snapshot []*Wager
	for _, id := range accountIDs {
		b := round.books[id]
		snapshot = append(snapshot, b.unlocked...)
		snapshot = append(snapshot, b.locked...)
	}
	return snapshot
}

func (t *Table) finish() {
	t.mu.Lock()
	round := t.round
	if round == nil || round.Status != statusPlaying {
		t.mu.Unlock()
		return
	}
	// Remember each account's wager set for repeat-bet next round.
	for accountID, b := range round.books {
		var memos []lastBet
		for _, w := range b.unlocked {
			memos = append(memos, lastBet{Type: w.Type, Stake: w.Stake})
		}
		for _, w := range b.locked {
			memos = append(memos, lastBet{Type: w.Type, Stake: w.Stake})
		}
		if len(memos) > 0 {
			t.lastBets[accountID] = memos
		}
	}
	round.Status = statusWaiting
	round.Outcome = nil
	round.Revealed = false
	round.books = make(map[uint]*book)
	stats := t.stats
	t.mu.Unlock()

	t.pub.Broadcast(evtRoundEnded, map[string]any{
		"round_id": round.ID,
		"sequence": round.Sequence,
		"stats":    stats,
	})
	t.sched.Schedule(timerNext, time.Duration(t.cfg.IntermissionSeconds)*time.Second, func() {
		t.beginRound(context.Background())
	})
}

// pendingTotalsLocked sums stakes per wager type across both partitions.
func (t *Table) pendingTotalsLocked() map[cards.BetType]int64 {
	totals := make(map[cards.BetType]int64)
	if t.round == nil {
		return totals
	}
	for _, b := range t.round.books {
		for _, w := range b.unlocked {
			totals[w.Type] += w.Stake
		}
		for _, w := range b.locked {
			totals[w.Type] += w.Stake
		}
	}
	return totals
}

// SetOverride records the one-shot administrative outcome for the named
// round. Countdown only; the override is consumed at reveal.
func (t *Table) SetOverride(roundID string, category cards.Category) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	round := t.round
	if round == nil || round.ID != roundID {
		return ErrWrongRound
	}
	if round.Status != statusCountdown {
		return ErrOverrideWindow
	}
	if !cards.ValidCategory(category) {
		return ErrInvalidCategory
	}
	if round.Override != "" {
		return ErrOverrideSet
	}
	round.Override = category
	log.Printf("override set round_id=%s", roundID)
	return nil
}

// Stats returns the cumulative house totals.
func (t *Table) Stats() HouseStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
