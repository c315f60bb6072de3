package server

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"lucky-seven/internal/cards"
	"lucky-seven/internal/ledger"
)

func (t *Table) bookFor(round *Round, accountID uint) *book {
	b, ok := round.books[accountID]
	if !ok {
		b = &book{}
		round.books[accountID] = b
	}
	return b
}

// PlaceBet debits the stake atomically and records an unlocked wager for
// the connection. The balance check is the ledger's; the window is
// re-checked after the debit because the countdown keeps running during
// ledger I/O.
func (t *Table) PlaceBet(ctx context.Context, handle string, betType cards.BetType, stake int64) (*Wager, error) {
	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok || seat.AccountID == 0 {
		t.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if !t.bettingOpenLocked() {
		t.mu.Unlock()
		return nil, ErrBettingClosed
	}
	if !cards.ValidBetType(betType) {
		t.mu.Unlock()
		return nil, ErrInvalidBetType
	}
	if stake <= 0 {
		t.mu.Unlock()
		return nil, ErrInvalidStake
	}
	accountID := seat.AccountID
	roundID := t.round.ID
	t.mu.Unlock()

	account, err := t.ledger.Debit(ctx, accountID, stake)
	if err != nil {
		return nil, err
	}
	wager := &Wager{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Handle:    handle,
		Type:      betType,
		Stake:     stake,
	}
	if err := t.ledger.CreateWager(ctx, &ledger.Wager{
		ID:        wager.ID,
		RoundID:   roundID,
		AccountID: accountID,
		Type:      string(betType),
		Stake:     stake,
	}); err != nil {
		if _, creditErr := t.ledger.Credit(ctx, accountID, stake); creditErr != nil {
			log.Printf("refund after failed wager create failed account_id=%d error=%v", accountID, creditErr)
		}
		return nil, err
	}

	t.mu.Lock()
	if t.round == nil || t.round.ID != roundID || !t.bettingOpenLocked() {
		// Window closed mid-flight; unwind the debit.
		t.mu.Unlock()
		if _, creditErr := t.ledger.Credit(ctx, accountID, stake); creditErr != nil {
			log.Printf("late-bet refund failed account_id=%d error=%v", accountID, creditErr)
		}
		if deleteErr := t.ledger.DeleteWager(ctx, wager.ID); deleteErr != nil {
			log.Printf("late-bet delete failed wager_id=%s error=%v", wager.ID, deleteErr)
		}
		return nil, ErrBettingClosed
	}
	b := t.bookFor(t.round, accountID)
	b.unlocked = append(b.unlocked, wager)
	if seat, ok := t.seats[handle]; ok {
		seat.Balance = account.Balance
	}
	balance := account.Balance
	t.mu.Unlock()

	t.pub.Send(handle, evtWagerPlaced, wagerView(wager))
	t.pub.Send(handle, evtBalanceUpdate, map[string]any{"balance": balance})
	return wager, nil
}

// LockBets moves every unlocked wager of the connection's account into
// the locked partition. Locks are exclusive within a round.
func (t *Table) LockBets(handle string) error {
	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok || seat.AccountID == 0 {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	if !t.bettingOpenLocked() {
		t.mu.Unlock()
		return ErrBettingClosed
	}
	b := t.bookFor(t.round, seat.AccountID)
	if len(b.locked) > 0 {
		t.mu.Unlock()
		return ErrAlreadyLocked
	}
	if len(b.unlocked) == 0 {
		t.mu.Unlock()
		return ErrNothingToCancel
	}
	locked := make([]wagerPayload, 0, len(b.unlocked))
	for _, w := range b.unlocked {
		w.Locked = true
		b.locked = append(b.locked, w)
		locked = append(locked, wagerView(w))
	}
	b.unlocked = nil
	t.mu.Unlock()

	t.pub.Send(handle, evtWagersLocked, map[string]any{"wagers": locked})
	return nil
}

// CancelBets cancels the targeted partition, refunding every stake.
// Unlocked wagers can only be cancelled while betting is open; locked
// wagers any time before reveal.
func (t *Table) CancelBets(ctx context.Context, handle string, locked bool) error {
	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok || seat.AccountID == 0 {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	round := t.round
	if round == nil || round.Status != statusCountdown {
		t.mu.Unlock()
		return ErrBettingClosed
	}
	if !locked && !t.bettingOpenLocked() {
		t.mu.Unlock()
		return ErrBettingClosed
	}
	accountID := seat.AccountID
	b := t.bookFor(round, accountID)
	var cancelled []*Wager
	if locked {
		cancelled = b.locked
		b.locked = nil
	} else {
		cancelled = b.unlocked
		b.unlocked = nil
	}
	if b.empty() {
		delete(round.books, accountID)
	}
	t.mu.Unlock()

	if len(cancelled) == 0 {
		return ErrNothingToCancel
	}
	balance, refunded := t.refund(ctx, accountID, cancelled)

	t.mu.Lock()
	if seat, ok := t.seats[handle]; ok && seat.AccountID == accountID {
		seat.Balance = balance
	}
	t.mu.Unlock()

	views := make([]wagerPayload, 0, len(refunded))
	for _, w := range refunded {
		views = append(views, wagerView(w))
	}
	t.pub.Send(handle, evtWagersCancelled, map[string]any{"wagers": views})
	t.pub.Send(handle, evtBalanceUpdate, map[string]any{"balance": balance})
	return nil
}

// refund credits stakes back and deletes the wager records, isolating
// per-wager store failures.
func (t *Table) refund(ctx context.Context, accountID uint, wagers []*Wager) (int64, []*Wager) {
	var balance int64
	refunded := make([]*Wager, 0, len(wagers))
	for _, w := range wagers {
		account, err := t.ledger.Credit(ctx, accountID, w.Stake)
		if err != nil {
			log.Printf("refund failed wager_id=%s account_id=%d error=%v", w.ID, accountID, err)
			continue
		}
		balance = account.Balance
		if err := t.ledger.DeleteWager(ctx, w.ID); err != nil && !errors.Is(err, ledger.ErrWagerNotFound) {
			log.Printf("wager delete failed wager_id=%s error=%v", w.ID, err)
		}
		refunded = append(refunded, w)
	}
	return balance, refunded
}

// RepeatBets replays the account's previous round wager set as fresh
// placements.
func (t *Table) RepeatBets(ctx context.Context, handle string) error {
	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok || seat.AccountID == 0 {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	if !t.bettingOpenLocked() {
		t.mu.Unlock()
		return ErrBettingClosed
	}
	accountID := seat.AccountID
	if b, ok := t.round.books[accountID]; ok && !b.empty() {
		t.mu.Unlock()
		return ErrPendingWagers
	}
	memos := t.lastBets[accountID]
	if len(memos) == 0 {
		t.mu.Unlock()
		return ErrNoPreviousBets
	}
	var total int64
	for _, memo := range memos {
		total += memo.Stake
	}
	if seat.Balance < total {
		t.mu.Unlock()
		return ledger.ErrInsufficientFunds
	}
	t.mu.Unlock()

	for _, memo := range memos {
		if _, err := t.PlaceBet(ctx, handle, memo.Type, memo.Stake); err != nil {
			return err
		}
	}
	return nil
}
