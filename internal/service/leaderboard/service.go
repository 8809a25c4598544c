package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"blackjack-service/internal/model"
	"blackjack-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKey = "leaderboard:top"
	cacheTTL = 30 * time.Second
)

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

type Entry struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"userId,string"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	Balance    int64  `json:"balance"`
	BiggestWin int64  `json:"biggestWin"`
}

// Top returns the highest balances, served from a short redis cache to
// keep the ranking query off the hot path.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var entries []Entry
		if json.Unmarshal(raw, &entries) == nil && len(entries) >= limit {
			return entries[:limit], nil
		}
	}

	var rows []struct {
		UserID     int64
		Username   string
		Nickname   string
		Balance    int64
		BiggestWin int64
	}
	err := s.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Select("wallets.user_id, users.username, users.nickname, wallets.balance_available AS balance, wallets.biggest_win").
		Joins("JOIN users ON users.id = wallets.user_id").
		Where("users.status = ?", model.UserStatusNormal).
		Order("wallets.balance_available DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, Entry{
			Rank:       i + 1,
			UserID:     row.UserID,
			Username:   row.Username,
			Nickname:   row.Nickname,
			Balance:    row.Balance,
			BiggestWin: row.BiggestWin,
		})
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
			logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
