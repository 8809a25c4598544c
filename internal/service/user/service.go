package user

import (
	"context"
	"strings"

	"blackjack-service/internal/model"
	appErr "blackjack-service/pkg/errors"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Profile struct {
	ID       int64  `json:"id,string"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type UpdateProfileInput struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}
	return &Profile{
		ID:       user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*Profile, error) {
	updates := map[string]interface{}{}
	if nickname := strings.TrimSpace(input.Nickname); nickname != "" {
		updates["nickname"] = nickname
	}
	if avatar := strings.TrimSpace(input.Avatar); avatar != "" {
		updates["avatar"] = avatar
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetProfile(ctx, userID)
}
