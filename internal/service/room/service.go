package room

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"blackjack-service/internal/model"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"
	"blackjack-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeLength      = 6
	codeCacheTTL    = 24 * time.Hour
	staleAfter      = 24 * time.Hour
	cleanupInterval = time.Hour
)

type Service struct {
	db  *gorm.DB
	rdb *redis.Client

	startOnce sync.Once
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// Create opens a room with a fresh join code. Codes are random, so on
// the rare collision the insert fails the unique constraint and we
// retry with a new one.
func (s *Service) Create(ctx context.Context, hostUserID int64) (*model.Room, error) {
	for attempt := 0; attempt < 5; attempt++ {
		room := model.Room{
			Code:       random.Code(codeLength),
			HostUserID: hostUserID,
			Status:     model.RoomStatusOpen,
		}
		if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
			continue
		}
		s.cacheCode(ctx, room.Code, room.ID)
		logger.Log.Info("room created",
			zap.Int64("roomID", room.ID),
			zap.String("code", room.Code),
			zap.Int64("hostUserID", hostUserID),
		)
		return &room, nil
	}
	return nil, fmt.Errorf("allocate room code: retries exhausted")
}

// FindByCode resolves a join code to its room, consulting the redis
// code cache before the database.
func (s *Service) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return nil, appErr.ErrRoomNotFound
	}

	if raw, err := s.rdb.Get(ctx, buildCodeKey(code)).Result(); err == nil {
		if roomID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			var room model.Room
			if err := s.db.WithContext(ctx).First(&room, roomID).Error; err == nil {
				return s.checkOpen(&room)
			}
		}
	}

	var room model.Room
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	s.cacheCode(ctx, room.Code, room.ID)
	return s.checkOpen(&room)
}

func (s *Service) Get(ctx context.Context, roomID int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// Close marks a room closed. Only the host may close it.
func (s *Service) Close(ctx context.Context, roomID, userID int64) error {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostUserID != userID {
		return appErr.ErrRoomAccessDenied
	}
	if room.Status == model.RoomStatusClosed {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(room).
		Update("status", model.RoomStatusClosed).Error; err != nil {
		return err
	}
	s.rdb.Del(ctx, buildCodeKey(room.Code))
	logger.Log.Info("room closed", zap.Int64("roomID", roomID))
	return nil
}

// Start launches the background sweep that closes rooms with no
// activity for a day.
func (s *Service) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		go s.runCleanup(ctx)
	})
	return nil
}

func (s *Service) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("room cleanup stopped")
			return
		case <-ticker.C:
			if err := s.closeStaleRooms(ctx); err != nil {
				logger.Log.Warn("room cleanup error", zap.Error(err))
			}
		}
	}
}

func (s *Service) closeStaleRooms(ctx context.Context) error {
	cutoff := time.Now().Add(-staleAfter)
	result := s.db.WithContext(ctx).Model(&model.Room{}).
		Where("status = ? AND updated_at < ?", model.RoomStatusOpen, cutoff).
		Update("status", model.RoomStatusClosed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Log.Info("closed stale rooms", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

func (s *Service) checkOpen(room *model.Room) (*model.Room, error) {
	if room.Status != model.RoomStatusOpen {
		return nil, appErr.ErrRoomClosed
	}
	return room, nil
}

func (s *Service) cacheCode(ctx context.Context, code string, roomID int64) {
	if err := s.rdb.Set(ctx, buildCodeKey(code), strconv.FormatInt(roomID, 10), codeCacheTTL).Err(); err != nil {
		logger.Log.Warn("room code cache write failed", zap.Error(err))
	}
}

func buildCodeKey(code string) string {
	return fmt.Sprintf("room:code:%s", code)
}
