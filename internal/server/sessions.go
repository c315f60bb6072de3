package server

import (
	"context"
	"log"
)

// Connect registers a fresh connection handle at the table.
func (t *Table) Connect(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seats[handle] = &Participant{Handle: handle}
}

// Authenticate binds the connection to an account, provisioning unknown
// names, and restores any wagers the account locked from a previous
// connection. Session issuance itself is handled upstream; the intent is
// trusted to carry the account name.
func (t *Table) Authenticate(ctx context.Context, handle, name string) error {
	account, err := t.ledger.EnsureAccount(ctx, name, t.cfg.StartingBalance)
	if err != nil {
		return err
	}

	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok {
		seat = &Participant{Handle: handle}
		t.seats[handle] = seat
	}
	seat.Name = account.Name
	seat.AccountID = account.ID
	seat.Balance = account.Balance

	var restored []wagerPayload
	if previous, ok := t.handles[account.ID]; ok && previous != handle {
		// The account spoke through another connection; re-key its
		// wagers to the new handle so nothing double-counts later.
		if old, ok := t.seats[previous]; ok && old.AccountID == account.ID {
			old.AccountID = 0
			old.Balance = 0
		}
	}
	t.handles[account.ID] = handle
	if t.round != nil {
		if b, ok := t.round.books[account.ID]; ok {
			for _, w := range b.unlocked {
				w.Handle = handle
			}
			for _, w := range b.locked {
				w.Handle = handle
				restored = append(restored, wagerView(w))
			}
		}
	}
	snapshot := t.snapshotLocked(seat)
	t.mu.Unlock()

	log.Printf("authenticated handle=%s account_id=%d name=%s", handle, account.ID, account.Name)
	t.pub.Send(handle, evtAuthenticated, map[string]any{
		"account_id": account.ID,
		"name":       account.Name,
		"balance":    account.Balance,
	})
	if len(restored) > 0 {
		t.pub.Send(handle, evtWagersLocked, map[string]any{"wagers": restored})
	}
	t.pub.Send(handle, evtRoundState, snapshot)
	return nil
}

// Disconnect drops the connection. Unlocked wagers were never committed
// by the player, so they are cancelled and refunded; locked wagers stay
// keyed to the account and still settle at reveal.
func (t *Table) Disconnect(ctx context.Context, handle string) {
	t.mu.Lock()
	seat, ok := t.seats[handle]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.seats, handle)
	accountID := seat.AccountID
	var abandoned []*Wager
	if accountID != 0 {
		if current, ok := t.handles[accountID]; ok && current == handle {
			delete(t.handles, accountID)
		}
		// Past reveal the settlement snapshot already owns these
		// wagers; refunds only happen while the round is open.
		if t.round != nil && t.round.Status == statusCountdown {
			if b, ok := t.round.books[accountID]; ok {
				abandoned = b.unlocked
				b.unlocked = nil
				if b.empty() {
					delete(t.round.books, accountID)
				}
			}
		}
	}
	t.mu.Unlock()

	if len(abandoned) > 0 {
		_, refunded := t.refund(ctx, accountID, abandoned)
		log.Printf("disconnect refunded handle=%s account_id=%d wagers=%d", handle, accountID, len(refunded))
	}
}
