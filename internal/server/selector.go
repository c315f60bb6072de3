package server

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"lucky-seven/internal/cards"
)

// payoutFor converts a winning stake into its total payout, half-up to
// the smallest chip unit.
func payoutFor(stake int64, betType cards.BetType) int64 {
	return int64(math.Floor(float64(stake)*cards.Multiplier(betType) + 0.5))
}

// liability is the total payout the house would owe if the category won.
func liability(totals map[cards.BetType]int64, category cards.Category) int64 {
	var sum int64
	for betType, stake := range totals {
		if stake > 0 && cards.CategoryWins(category, betType) {
			sum += payoutFor(stake, betType)
		}
	}
	return sum
}

// tieBreak hashes the round's persistent identity and start time so that
// equal-liability ties resolve the same way on every replay.
func tieBreak(roundID string, startedAt time.Time) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", roundID, startedAt.UTC().UnixNano())
	return h.Sum64()
}

// selectOutcome picks the card the house will show: the cheapest outcome
// category given the pending wagers, a deterministic tie-break between
// equally cheap categories, and a uniform random card when nothing is
// staked. The seven is never selected here.
func selectOutcome(totals map[cards.BetType]int64, roundID string, startedAt time.Time, rng *rand.Rand) cards.Card {
	staked := false
	for _, stake := range totals {
		if stake > 0 {
			staked = true
			break
		}
	}
	if !staked {
		return cards.RandomNonSeven(rng)
	}

	var ties []cards.Category
	var best int64
	for _, category := range cards.AutoCategories {
		owed := liability(totals, category)
		switch {
		case len(ties) == 0 || owed < best:
			ties = ties[:0]
			ties = append(ties, category)
			best = owed
		case owed == best:
			ties = append(ties, category)
		}
	}
	chosen := ties[0]
	if len(ties) > 1 {
		chosen = ties[tieBreak(roundID, startedAt)%uint64(len(ties))]
	}
	return cards.Materialize(chosen, rng)
}
