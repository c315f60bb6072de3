package ledger

import (
	"context"
	"sync"
)

// Mem is an in-memory Gateway used by tests and DATABASE_URL-less dev
// runs. It honors the same atomicity contract under one mutex.
type Mem struct {
	mu       sync.Mutex
	nextID   uint
	accounts map[uint]*Account
	byName   map[string]uint
	wagers   map[string]*Wager
	rounds   map[string]*Round
	events   []MemEvent
}

type MemEvent struct {
	RoundID string
	Type    string
	Payload map[string]any
}

func NewMem() *Mem {
	return &Mem{
		nextID:   1,
		accounts: make(map[uint]*Account),
		byName:   make(map[string]uint),
		wagers:   make(map[string]*Wager),
		rounds:   make(map[string]*Round),
	}
}

func (m *Mem) EnsureAccount(_ context.Context, name string, startingBalance int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byName[name]; ok {
		out := *m.accounts[id]
		return &out, nil
	}
	account := &Account{
		ID:      m.nextID,
		Name:    name,
		Balance: startingBalance,
	}
	m.nextID++
	m.accounts[account.ID] = account
	m.byName[name] = account.ID
	out := *account
	return &out, nil
}

func (m *Mem) GetAccount(_ context.Context, id uint) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (m *Mem) Debit(_ context.Context, accountID uint, amount int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if account.Balance < amount {
		return nil, ErrInsufficientFunds
	}
	account.Balance -= amount
	out := *account
	return &out, nil
}

func (m *Mem) Credit(_ context.Context, accountID uint, amount int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	account.Balance += amount
	out := *account
	return &out, nil
}

func (m *Mem) CreateWager(_ context.Context, wager *Wager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *wager
	stored.State = WagerPending
	m.wagers[wager.ID] = &stored
	return nil
}

func (m *Mem) DeleteWager(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wagers[id]; !ok {
		return ErrWagerNotFound
	}
	delete(m.wagers, id)
	return nil
}

func (m *Mem) ResolveWager(_ context.Context, id string, won bool, payout int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wager, ok := m.wagers[id]
	if !ok {
		return nil, ErrWagerNotFound
	}
	account, ok := m.accounts[wager.AccountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if wager.State == WagerPending {
		wager.State = WagerLost
		if won {
			wager.State = WagerWon
			wager.Payout = payout
			account.Balance += payout
			account.Wins++
		} else {
			account.Losses++
		}
		account.TotalWagered += wager.Stake
	}
	out := *account
	return &out, nil
}

func (m *Mem) CreateRound(_ context.Context, round *Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *round
	m.rounds[round.ID] = &stored
	return nil
}

func (m *Mem) FinalizeRound(_ context.Context, id, outcome string, wagered, paidOut int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return ErrRoundNotFound
	}
	round.Status = "settled"
	round.Outcome = outcome
	round.Wagered = wagered
	round.PaidOut = paidOut
	return nil
}

func (m *Mem) RecordEvent(_ context.Context, roundID, eventType string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, MemEvent{RoundID: roundID, Type: eventType, Payload: payload})
	return nil
}

// GetWager returns the stored wager, mostly for tests.
func (m *Mem) GetWager(id string) (*Wager, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wager, ok := m.wagers[id]
	if !ok {
		return nil, false
	}
	out := *wager
	return &out, true
}

// GetRound returns the stored round record, mostly for tests.
func (m *Mem) GetRound(id string) (*Round, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return nil, false
	}
	out := *round
	return &out, true
}

// Events returns the recorded event log, mostly for tests.
func (m *Mem) Events() []MemEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MemEvent(nil), m.events...)
}
