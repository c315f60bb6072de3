package server

import (
	"context"
	"log"

	"lucky-seven/internal/cards"
)

type roundReport struct {
	Wagered int64
	PaidOut int64
	Settled int
	Failed  int
}

// settle resolves every wager in the reveal snapshot exactly once. A
// processed-id set guards against duplicate entries; a wager that fails
// to resolve is logged and skipped without aborting the rest, and stays
// pending at the store for out-of-band reconciliation.
func (t *Table) settle(ctx context.Context, round *Round, snapshot []*Wager, card cards.Card) roundReport {
	processed := make(map[string]struct{}, len(snapshot))
	var report roundReport
	for _, w := range snapshot {
		if _, done := processed[w.ID]; done {
			continue
		}
		processed[w.ID] = struct{}{}

		won := card.Wins(w.Type)
		var payout int64
		if won {
			payout = payoutFor(w.Stake, w.Type)
		}
		account, err := t.ledger.ResolveWager(ctx, w.ID, won, payout)
		if err != nil {
			report.Failed++
			log.Printf("settlement failed wager_id=%s account_id=%d error=%v", w.ID, w.AccountID, err)
			continue
		}
		report.Settled++
		report.Wagered += w.Stake
		report.PaidOut += payout

		t.mu.Lock()
		handle := t.handles[w.AccountID]
		if seat, ok := t.seats[handle]; ok && seat.AccountID == w.AccountID {
			seat.Balance = account.Balance
		}
		t.mu.Unlock()
		if handle != "" {
			t.pub.Send(handle, evtBalanceUpdate, map[string]any{
				"balance":  account.Balance,
				"wager_id": w.ID,
				"won":      won,
				"payout":   payout,
			})
		}
	}

	t.mu.Lock()
	t.stats.Rounds++
	t.stats.Wagered += report.Wagered
	t.stats.PaidOut += report.PaidOut
	t.stats.Profit = t.stats.Wagered - t.stats.PaidOut
	t.mu.Unlock()

	outcome := card.Rank() + "-" + string(card.Suit)
	if err := t.ledger.FinalizeRound(ctx, round.ID, outcome, report.Wagered, report.PaidOut); err != nil {
		log.Printf("round finalize failed round_id=%s error=%v", round.ID, err)
	}
	if err := t.ledger.RecordEvent(ctx, round.ID, "round-settled", map[string]any{
		"outcome":  outcome,
		"wagered":  report.Wagered,
		"paid_out": report.PaidOut,
		"settled":  report.Settled,
		"failed":   report.Failed,
	}); err != nil {
		log.Printf("event record failed round_id=%s error=%v", round.ID, err)
	}
	log.Printf("round settled round_id=%s wagered=%d paid_out=%d settled=%d failed=%d",
		round.ID, report.Wagered, report.PaidOut, report.Settled, report.Failed)
	return report
}
