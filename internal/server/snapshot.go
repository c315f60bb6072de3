package server

// snapshotLocked builds the round-state payload a joining or
// reconnecting client needs to render without waiting for the next tick.
// The outcome is included only once revealed. Callers hold mu.
func (t *Table) snapshotLocked(seat *Participant) map[string]any {
	round := t.round
	if round == nil {
		return map[string]any{"status": statusWaiting}
	}
	payload := map[string]any{
		"round_id":     round.ID,
		"sequence":     round.Sequence,
		"status":       round.Status,
		"remaining":    round.Remaining,
		"betting_open": t.bettingOpenLocked(),
	}
	if round.Revealed && round.Outcome != nil {
		payload["outcome"] = outcomeView(*round.Outcome)
	}
	if seat != nil && seat.AccountID != 0 {
		payload["balance"] = seat.Balance
		if b, ok := round.books[seat.AccountID]; ok {
			wagers := make([]wagerPayload, 0, len(b.unlocked)+len(b.locked))
			for _, w := range b.unlocked {
				wagers = append(wagers, wagerView(w))
			}
			for _, w := range b.locked {
				wagers = append(wagers, wagerView(w))
			}
			payload["wagers"] = wagers
		}
	}
	return payload
}

// Snapshot is the public join-time view; the outcome stays hidden until
// reveal.
func (t *Table) Snapshot(handle string) map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(t.seats[handle])
}

// AdminSnapshot exposes the full round state, generated-but-hidden
// outcome and pending override included. Privileged channel only.
func (t *Table) AdminSnapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	payload := t.snapshotLocked(nil)
	round := t.round
	if round == nil {
		return payload
	}
	if round.Outcome != nil {
		payload["outcome"] = outcomeView(*round.Outcome)
	}
	if round.Override != "" {
		payload["override"] = string(round.Override)
	}
	var wagers int
	for _, b := range round.books {
		wagers += len(b.unlocked) + len(b.locked)
	}
	payload["wager_count"] = wagers
	payload["connections"] = len(t.seats)
	return payload
}
