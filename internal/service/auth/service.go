package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blackjack-service/internal/config"
	"blackjack-service/internal/model"
	pkgAuth "blackjack-service/pkg/auth"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	startingBalance  = 1000
	maxLoginFailures = 5
	failureWindow    = 10 * time.Minute
)

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

type LoginResult struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	User     model.User `json:"user"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// Register creates a user with a funded wallet in one transaction.
func (s *Service) Register(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 24 || password == "" {
		return nil, appErr.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     username,
		Status:       model.UserStatusNormal,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			var count int64
			tx.Model(&model.User{}).Where("username = ?", username).Count(&count)
			if count > 0 {
				return appErr.ErrUsernameTaken
			}
			return err
		}
		wallet := model.Wallet{
			UserID:           user.ID,
			BalanceAvailable: startingBalance,
		}
		return tx.Create(&wallet).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("user registered", zap.Int64("userID", user.ID), zap.String("username", username))
	return s.issueToken(user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidCredentials
	}

	key := buildFailureKey(username)
	if failures, err := s.rdb.Get(ctx, key).Int(); err == nil && failures >= maxLoginFailures {
		return nil, appErr.ErrTooManyAttempts
	}

	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.recordFailure(ctx, key)
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, key)
		return nil, appErr.ErrInvalidCredentials
	}
	if strings.EqualFold(user.Status, model.UserStatusBanned) {
		return nil, appErr.ErrUserBanned
	}
	s.rdb.Del(ctx, key)

	return s.issueToken(user)
}

func (s *Service) issueToken(user model.User) (*LoginResult, error) {
	token, err := pkgAuth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	user.PasswordHash = ""
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		User:     user,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	failures, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		logger.Log.Warn("login failure counter unavailable", zap.Error(err))
		return
	}
	if failures == 1 {
		s.rdb.Expire(ctx, key, failureWindow)
	}
}

func buildFailureKey(username string) string {
	return fmt.Sprintf("auth:login_fail:%s", strings.ToLower(username))
}
