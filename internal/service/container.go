package service

import (
	"context"
	"time"

	"monopolyx-service/internal/catalog"
	"monopolyx-service/internal/config"
	"monopolyx-service/internal/service/auth"
	"monopolyx-service/internal/service/board"
	"monopolyx-service/internal/service/poker"
	"monopolyx-service/internal/service/user"
	"monopolyx-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth   *auth.Service
	User   *user.Service
	Wallet *wallet.Service
	Board  *board.Service
	Poker  *poker.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client, cat *catalog.Catalog) *Container {
	cfg := config.GlobalConfig
	walletSvc := wallet.NewService(db)
	return &Container{
		Auth:   auth.NewService(db, rdb),
		User:   user.NewService(db),
		Wallet: walletSvc,
		Board: board.NewService(db, rdb, cat, board.Options{
			TurnSeconds:   cfg.Game.TurnSeconds,
			SweepInterval: time.Duration(cfg.Game.SweepInterval) * time.Millisecond,
		}),
		Poker: poker.NewService(walletSvc, poker.Options{
			SmallBlind: cfg.Poker.SmallBlind,
			BigBlind:   cfg.Poker.BigBlind,
			MaxSeats:   cfg.Poker.MaxSeats,
			ActSeconds: cfg.Poker.ActSeconds,
			MinBuyInBB: cfg.Poker.MinBuyInBB,
			MaxBuyInBB: cfg.Poker.MaxBuyInBB,
		}),
	}
}

// Start launches the per-service sweep tickers; they stop when ctx ends.
func (c *Container) Start(ctx context.Context) error {
	c.Board.Start(ctx)
	c.Poker.Start(ctx)
	return nil
}
