package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lucky-seven/internal/db"
)

// Store implements Gateway on Postgres via gorm. Balance mutations lock
// the account row for the duration of the transaction.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{conn: conn}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func toAccount(record *db.Account) *Account {
	return &Account{
		ID:           record.ID,
		Name:         record.Name,
		Balance:      record.Balance,
		Wins:         record.Wins,
		Losses:       record.Losses,
		TotalWagered: record.TotalWagered,
	}
}

func (s *Store) EnsureAccount(ctx context.Context, name string, startingBalance int64) (*Account, error) {
	var record db.Account
	err := s.conn.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if err == nil {
		return toAccount(&record), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = db.Account{Name: name, Balance: startingBalance}
	if err := s.conn.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a provisioning race; the other connection's row wins.
			if lookupErr := s.conn.WithContext(ctx).Where("name = ?", name).First(&record).Error; lookupErr == nil {
				return toAccount(&record), nil
			}
		}
		return nil, err
	}
	return toAccount(&record), nil
}

func (s *Store) GetAccount(ctx context.Context, id uint) (*Account, error) {
	var record db.Account
	if err := s.conn.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccount(&record), nil
}

func (s *Store) Debit(ctx context.Context, accountID uint, amount int64) (*Account, error) {
	var record db.Account
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if record.Balance < amount {
			return ErrInsufficientFunds
		}
		record.Balance -= amount
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return toAccount(&record), nil
}

func (s *Store) Credit(ctx context.Context, accountID uint, amount int64) (*Account, error) {
	var record db.Account
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		record.Balance += amount
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return toAccount(&record), nil
}

func (s *Store) CreateWager(ctx context.Context, wager *Wager) error {
	record := db.Wager{
		ID:        wager.ID,
		RoundID:   wager.RoundID,
		AccountID: wager.AccountID,
		Type:      wager.Type,
		Stake:     wager.Stake,
		State:     WagerPending,
	}
	return s.conn.WithContext(ctx).Create(&record).Error
}

func (s *Store) DeleteWager(ctx context.Context, id string) error {
	result := s.conn.WithContext(ctx).Delete(&db.Wager{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWagerNotFound
	}
	return nil
}

func (s *Store) ResolveWager(ctx context.Context, id string, won bool, payout int64) (*Account, error) {
	var account db.Account
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wager db.Wager
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wager, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWagerNotFound
			}
			return err
		}
		if wager.State != WagerPending {
			// Already settled; idempotent no-op.
			return tx.First(&account, wager.AccountID).Error
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&account, wager.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
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
		if err := tx.Save(&wager).Error; err != nil {
			return err
		}
		return tx.Save(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return toAccount(&account), nil
}

func (s *Store) CreateRound(ctx context.Context, round *Round) error {
	record := db.Round{
		ID:        round.ID,
		Sequence:  round.Sequence,
		Status:    round.Status,
		StartedAt: round.StartedAt,
	}
	return s.conn.WithContext(ctx).Create(&record).Error
}

func (s *Store) FinalizeRound(ctx context.Context, id, outcome string, wagered, paidOut int64) error {
	result := s.conn.WithContext(ctx).Model(&db.Round{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   "settled",
			"outcome":  outcome,
			"wagered":  wagered,
			"paid_out": paidOut,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoundNotFound
	}
	return nil
}

func (s *Store) RecordEvent(ctx context.Context, roundID, eventType string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		RoundID: roundID,
		Type:    eventType,
		Payload: data,
	}
	return s.conn.WithContext(ctx).Create(&record).Error
}
