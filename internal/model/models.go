package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	UserStatusNormal = "normal"
	UserStatusBanned = "banned"

	RoomStatusOpen   = "open"
	RoomStatusClosed = "closed"

	BillingRoundWin  = "round_win"
	BillingRoundLoss = "round_loss"
	BillingBonus     = "bonus"
)

// Accounts

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Nickname     string
	Avatar       string
	Status       string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Wallet struct {
	UserID           int64 `gorm:"primaryKey"`
	BalanceAvailable int64
	TotalWagered     int64
	TotalWin         int64
	TotalLoss        int64
	BiggestWin       int64
	LastBonusAt      *time.Time
	UpdatedAt        time.Time
}

type BillingLog struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64
	Type         string // round_win/round_loss/bonus
	Delta        int64
	BalanceAfter int64
	RoomID       *int64
	RoundNo      int
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

// Rooms & rounds

type Room struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Code       string `gorm:"unique;not null;size:6"`
	HostUserID int64
	Status     string         `gorm:"default:open;not null"` // open/closed
	StateJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type RoundLog struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	RoomID      int64 `gorm:"index"`
	RoundNo     int
	DealerScore int
	ResultJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
}
