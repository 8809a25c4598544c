package service

import (
	"context"
	"time"

	"blackjack-service/internal/config"
	"blackjack-service/internal/service/auth"
	"blackjack-service/internal/service/game"
	"blackjack-service/internal/service/leaderboard"
	"blackjack-service/internal/service/room"
	"blackjack-service/internal/service/user"
	"blackjack-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth        *auth.Service
	User        *user.Service
	Wallet      *wallet.Service
	Leaderboard *leaderboard.Service
	Room        *room.Service
	Game        *game.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	return &Container{
		Auth:        auth.NewService(db, rdb),
		User:        user.NewService(db),
		Wallet:      wallet.NewService(db),
		Leaderboard: leaderboard.NewService(db, rdb),
		Room:        room.NewService(db, rdb),
		Game:        game.NewService(db, pacingFromConfig()),
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Room.Start(ctx)
}

func pacingFromConfig() game.Pacing {
	cfg := config.GlobalConfig.Game
	return game.Pacing{
		TurnTimeout:   time.Duration(cfg.TurnSeconds) * time.Second,
		DealStep:      time.Duration(cfg.DealStepMs) * time.Millisecond,
		DealerStep:    time.Duration(cfg.DealerStepMs) * time.Millisecond,
		RoundOverWait: time.Duration(cfg.RoundOverSeconds) * time.Second,
	}
}
