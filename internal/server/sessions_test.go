package server

import (
	"context"
	"testing"

	"lucky-seven/internal/cards"
)

func TestDisconnectRefundsUnlockedWagers(t *testing.T) {
	table, mem, sched, _ := newTestTable(t)
	startRound(t, table)
	authedSeat(t, table, "conn-1", "ada")
	ctx := context.Background()

	wager, err := table.PlaceBet(ctx, "conn-1", cards.BetLow, 50)
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	table.Disconnect(ctx, "conn-1")

	if got := accountBalance(t, mem, 1); got != 1000 {
		t.Fatalf("expected pre-bet balance 1000, got %d", got)
	}
	if _, ok := mem.GetWager(wager.ID); ok {
		t.Fatal("abandoned wager record should be deleted")
	}

	runToReveal(t, table, sched)
	stored, ok := mem.GetRound(table.round.ID)
	if !ok {
		t.Fatal("round record missing")
	}
	if stored.Wagered != 0 {
		t.Fatalf("no settlement entry may exist for the refunded wager, wagered=%d", stored.Wagered)
	}
}

func TestLockedWagersSurviveDisconnect(t *testing.T) {
	table, mem, sched, _ := newTestTable(t)
	startRound(t, table)
	authedSeat(t, table, "conn-1", "ada")
	ctx := context.Background()

	for _, stake := range []int64{10, 20, 30} {
		if _, err := table.PlaceBet(ctx, "conn-1", cards.BetHigh, stake); err != nil {
			t.Fatalf("place bet: %v", err)
		}
	}
	if err := table.LockBets("conn-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	table.Disconnect(ctx, "conn-1")

	table.mu.Lock()
	b := table.round.books[1]
	locked := len(b.locked)
	table.mu.Unlock()
	if locked != 3 {
		t.Fatalf("locked wagers must survive disconnect, got %d", locked)
	}

	runToReveal(t, table, sched)
	account, err := mem.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Wins+account.Losses != 3 {
		t.Fatalf("all 3 locked wagers must settle, wins=%d losses=%d", account.Wins, account.Losses)
	}
}

func TestReconnectRestoresLockedWagers(t *testing.T) {
	table, mem, sched, pub := newTestTable(t)
	startRound(t, table)
	authedSeat(t, table, "conn-1", "ada")
	ctx := context.Background()

	for _, stake := range []int64{10, 20, 30} {
		if _, err := table.PlaceBet(ctx, "conn-1", cards.BetRed, stake); err != nil {
			t.Fatalf("place bet: %v", err)
		}
	}
	if err := table.LockBets("conn-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	table.Disconnect(ctx, "conn-1")

	// Same account, new connection.
	authedSeat(t, table, "conn-2", "ada")
	event, ok := pub.last(evtWagersLocked)
	if !ok {
		t.Fatal("expected locked wagers republished on reconnect")
	}
	if event.Handle != "conn-2" {
		t.Fatalf("expected republish to conn-2, got %s", event.Handle)
	}
	restored := event.Payload.(map[string]any)["wagers"].([]wagerPayload)
	if len(restored) != 3 {
		t.Fatalf("expected 3 restored wagers, got %d", len(restored))
	}

	table.mu.Lock()
	for _, w := range table.round.books[1].locked {
		if w.Handle != "conn-2" {
			table.mu.Unlock()
			t.Fatalf("wager still keyed to %s", w.Handle)
		}
	}
	table.mu.Unlock()

	runToReveal(t, table, sched)
	account, err := mem.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	// Exactly once each, despite the re-key.
	if account.Wins+account.Losses != 3 {
		t.Fatalf("expected 3 settlements, wins=%d losses=%d", account.Wins, account.Losses)
	}
}

func TestReconnectBeforeDisconnectStealsSeat(t *testing.T) {
	table, _, _, _ := newTestTable(t)
	startRound(t, table)
	authedSeat(t, table, "conn-1", "ada")
	ctx := context.Background()

	if _, err := table.PlaceBet(ctx, "conn-1", cards.BetBlack, 40); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if err := table.LockBets("conn-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Second tab authenticates while the first is still connected.
	authedSeat(t, table, "conn-2", "ada")
	if _, err := table.PlaceBet(ctx, "conn-1", cards.BetBlack, 10); err != ErrNotAuthenticated {
		t.Fatalf("stale connection must lose the account binding, got %v", err)
	}

	// The stale connection dropping must not refund the moved wagers.
	table.Disconnect(ctx, "conn-1")
	table.mu.Lock()
	locked := len(table.round.books[1].locked)
	table.mu.Unlock()
	if locked != 1 {
		t.Fatalf("locked wager lost on stale disconnect, got %d", locked)
	}
}

func TestAuthenticateUnknownNameProvisionsAccount(t *testing.T) {
	table, mem, _, pub := newTestTable(t)
	startRound(t, table)
	table.Connect("conn-1")

	if err := table.Authenticate(context.Background(), "conn-1", "fresh"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	account, err := mem.EnsureAccount(context.Background(), "fresh", 0)
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	if account.Balance != table.cfg.StartingBalance {
		t.Fatalf("expected starting balance %d, got %d", table.cfg.StartingBalance, account.Balance)
	}
	if _, ok := pub.last(evtRoundState); !ok {
		t.Fatal("expected a round-state snapshot on authenticate")
	}
	if _, ok := pub.last(evtAuthenticated); !ok {
		t.Fatal("expected authenticated event")
	}
}
