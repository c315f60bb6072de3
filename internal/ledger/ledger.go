// Package ledger is the transactional balance gateway the round engine
// consumes. Every debit and credit is atomic at the store so interleaved
// operations against one account can never double-spend past the balance
// check.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrWagerNotFound     = errors.New("wager not found")
	ErrRoundNotFound     = errors.New("round not found")
)

type Account struct {
	ID           uint
	Name         string
	Balance      int64
	Wins         int64
	Losses       int64
	TotalWagered int64
}

type Wager struct {
	ID        string
	RoundID   string
	AccountID uint
	Type      string
	Stake     int64
	State     string
	Payout    int64
}

const (
	WagerPending = "pending"
	WagerWon     = "won"
	WagerLost    = "lost"
)

type Round struct {
	ID        string
	Sequence  int64
	Status    string
	Outcome   string
	Wagered   int64
	PaidOut   int64
	StartedAt time.Time
}

type Gateway interface {
	// EnsureAccount returns the account named, provisioning it with the
	// starting balance on first sight.
	EnsureAccount(ctx context.Context, name string, startingBalance int64) (*Account, error)
	GetAccount(ctx context.Context, id uint) (*Account, error)
	// Debit fails with ErrInsufficientFunds without any partial write.
	Debit(ctx context.Context, accountID uint, amount int64) (*Account, error)
	Credit(ctx context.Context, accountID uint, amount int64) (*Account, error)
	CreateWager(ctx context.Context, wager *Wager) error
	DeleteWager(ctx context.Context, id string) error
	// ResolveWager marks the wager won or lost, credits the payout and
	// bumps the account counters in one transaction.
	ResolveWager(ctx context.Context, id string, won bool, payout int64) (*Account, error)
	CreateRound(ctx context.Context, round *Round) error
	FinalizeRound(ctx context.Context, id, outcome string, wagered, paidOut int64) error
	RecordEvent(ctx context.Context, roundID, eventType string, payload map[string]any) error
}
