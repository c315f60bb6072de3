package db

import (
	"time"

	"gorm.io/datatypes"
)

type Account struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:64;uniqueIndex;not null"`
	Balance      int64     `gorm:"not null;default:0"`
	Wins         int64     `gorm:"not null;default:0"`
	Losses       int64     `gorm:"not null;default:0"`
	TotalWagered int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Wagers       []Wager
}

type Wager struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoundID   string    `gorm:"size:36;index;not null"`
	AccountID uint      `gorm:"index;not null"`
	Type      string    `gorm:"size:16;not null"`
	Stake     int64     `gorm:"not null"`
	State     string    `gorm:"size:16;not null;default:pending"`
	Payout    int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Round struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Sequence  int64     `gorm:"index;not null"`
	Status    string    `gorm:"size:16;not null"`
	Outcome   string    `gorm:"size:32"`
	Wagered   int64     `gorm:"not null;default:0"`
	PaidOut   int64     `gorm:"not null;default:0"`
	StartedAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Wagers    []Wager   `gorm:"foreignKey:RoundID"`
	Events    []Event   `gorm:"foreignKey:RoundID"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoundID   string         `gorm:"size:36;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
