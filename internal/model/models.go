package model

import (
	"time"

	"gorm.io/datatypes"
)

// 2.1 Identity

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Handle    string `gorm:"unique;not null"` // login handle (telegram-style @name)
	Nickname  string
	Avatar    string
	Status    string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 2.2 Wallet & Billing
//
// The durable chip balance lives here. Poker buy-ins debit it and
// refunds/cash-outs credit it; the engines only move in-session chips.

type Wallet struct {
	UserID           int64 `gorm:"primaryKey"`
	BalanceAvailable int64
	TotalBuyIn       int64
	TotalCashOut     int64
	UpdatedAt        time.Time
}

type BillingLog struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64
	Type         string // buy_in/cash_out/refund/adjust
	Delta        int64
	BalanceAfter int64
	TableID      string
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

// 2.3 Game outcomes
//
// One row per finished board game. Not a replay log.

type GameRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	GameID     string `gorm:"index"`
	MapType    string
	GameMode   string
	WinnerID   string
	WinnerName string
	Turns      int
	Players    int
	FinishedAt time.Time
	CreatedAt  time.Time
}
