package wallet

import (
	"context"
	"fmt"
	"time"

	"blackjack-service/internal/model"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dailyBonusAmount = 1000
	bonusCooldown    = 24 * time.Hour
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).
		Where(model.Wallet{UserID: userID}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ClaimDailyBonus credits the fixed bonus to a busted wallet, at most
// once per cooldown window. The row is locked to serialize concurrent
// claims.
func (s *Service) ClaimDailyBonus(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&wallet).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrUserNotFound
			}
			return err
		}

		if wallet.BalanceAvailable > 0 {
			return fmt.Errorf("%w: balance is not empty", appErr.ErrBonusNotReady)
		}
		now := time.Now()
		if wallet.LastBonusAt != nil && now.Sub(*wallet.LastBonusAt) < bonusCooldown {
			return fmt.Errorf("%w: next bonus at %s", appErr.ErrBonusNotReady,
				wallet.LastBonusAt.Add(bonusCooldown).Format(time.RFC3339))
		}

		wallet.BalanceAvailable += dailyBonusAmount
		wallet.LastBonusAt = &now
		if err := tx.Save(&wallet).Error; err != nil {
			return err
		}

		billing := model.BillingLog{
			UserID:       userID,
			Type:         model.BillingBonus,
			Delta:        dailyBonusAmount,
			BalanceAfter: wallet.BalanceAvailable,
		}
		return tx.Create(&billing).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("daily bonus claimed",
		zap.Int64("userID", userID),
		zap.Int64("balance", wallet.BalanceAvailable),
	)
	return &wallet, nil
}

// History returns the most recent billing entries, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.BillingLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var logs []model.BillingLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
