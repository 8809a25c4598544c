package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"blackjack-service/internal/model"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns the live RoomRuntime instances and bridges them to the
// database: snapshots out on every mutation, wallet deltas in when a
// round settles.
type Service struct {
	db   *gorm.DB
	pace Pacing

	mu       sync.Mutex
	runtimes map[int64]*RoomRuntime
}

func NewService(db *gorm.DB, pace Pacing) *Service {
	return &Service{
		db:       db,
		pace:     pace,
		runtimes: make(map[int64]*RoomRuntime),
	}
}

// Runtime returns the live runtime for a room, reviving it from the
// persisted snapshot if the process restarted since the room was last
// active.
func (s *Service) Runtime(roomID int64) (*RoomRuntime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt, ok := s.runtimes[roomID]; ok {
		return rt, nil
	}

	var room model.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}
	if room.Status != model.RoomStatusOpen {
		return nil, appErr.ErrRoomClosed
	}

	rt := NewRoomRuntime(room.ID, room.Code, s.pace, s.persistFunc(room.ID), s.handleRoundSettled)
	if len(room.StateJSON) > 0 {
		s.reviveRuntime(rt, room.StateJSON)
	}
	s.runtimes[roomID] = rt
	return rt, nil
}

// Drop removes a runtime from the registry, e.g. when its room closes.
func (s *Service) Drop(roomID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runtimes, roomID)
}

func (s *Service) persistFunc(roomID int64) PersistFunc {
	return func(state RoomState) error {
		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return s.db.Model(&model.Room{}).
			Where("id = ?", roomID).
			Update("state_json", datatypes.JSON(raw)).Error
	}
}

// reviveRuntime rebuilds seats, order and logs from a snapshot. A round
// interrupted by a restart cannot be resumed faithfully (the deck was
// never persisted), so the revived room always opens in betting with no
// wagers applied.
func (s *Service) reviveRuntime(rt *RoomRuntime, raw datatypes.JSON) {
	var state RoomState
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Log.Warn("discarding unreadable room snapshot",
			zap.Int64("roomID", rt.roomID),
			zap.Error(err),
		)
		return
	}

	rt.roundCounter = state.RoundCounter
	if rt.roundCounter < 1 {
		rt.roundCounter = 1
	}
	rt.logs = state.Logs
	for _, id := range state.SeatOrder {
		snap, ok := state.Seats[id]
		if !ok {
			continue
		}
		seat := newSeat(snap.UserID, snap.Username, snap.IsHost, snap.IsSpectating, snap.Balance)
		seat.KeepMainBet = snap.KeepMainBet
		seat.KeepSideBets = snap.KeepSideBets
		rt.seats[id] = seat
		rt.seatOrder = append(rt.seatOrder, id)
		if snap.IsHost {
			rt.hostUserID = id
		}
	}
	if state.Phase != PhaseBetting {
		rt.appendLogLocked("Round interrupted by a server restart, bets returned", "")
	}
}

// handleRoundSettled applies one round's outcome to the wallets in a
// single transaction, then pushes the fresh balances back into the
// runtime. Wallet rows are locked FOR UPDATE so concurrent rounds in
// other rooms cannot interleave on a shared wallet.
func (s *Service) handleRoundSettled(roomID int64, roundNo int, dealerScore int, result RoundResult) {
	balances := make(map[int64]int64, len(result))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		walletBook := make(map[int64]*model.Wallet, len(result))
		for userID, res := range result {
			var wallet model.Wallet
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).
				First(&wallet).Error; err != nil {
				return fmt.Errorf("%w: wallet %d: %v", appErr.ErrSettlementValidation, userID, err)
			}

			delta := res.TotalWinnings
			wallet.BalanceAvailable += delta
			wallet.TotalWagered += res.TotalWagered
			switch {
			case delta > 0:
				wallet.TotalWin += delta
				if delta > wallet.BiggestWin {
					wallet.BiggestWin = delta
				}
			case delta < 0:
				wallet.TotalLoss += -delta
			}
			walletBook[userID] = &wallet

			logType := model.BillingRoundWin
			if delta < 0 {
				logType = model.BillingRoundLoss
			}
			meta, _ := json.Marshal(res)
			billing := model.BillingLog{
				UserID:       userID,
				Type:         logType,
				Delta:        delta,
				BalanceAfter: wallet.BalanceAvailable,
				RoomID:       &roomID,
				RoundNo:      roundNo,
				MetaJSON:     datatypes.JSON(meta),
			}
			if err := tx.Create(&billing).Error; err != nil {
				return fmt.Errorf("write billing log: %w", err)
			}
		}

		for _, wallet := range walletBook {
			if err := tx.Save(wallet).Error; err != nil {
				return fmt.Errorf("save wallet: %w", err)
			}
		}

		resultRaw, _ := json.Marshal(result)
		round := model.RoundLog{
			RoomID:      roomID,
			RoundNo:     roundNo,
			DealerScore: dealerScore,
			ResultJSON:  datatypes.JSON(resultRaw),
		}
		if err := tx.Create(&round).Error; err != nil {
			return fmt.Errorf("write round log: %w", err)
		}

		for userID, wallet := range walletBook {
			balances[userID] = wallet.BalanceAvailable
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("round settlement failed",
			zap.Int64("roomID", roomID),
			zap.Int("round", roundNo),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	rt, ok := s.runtimes[roomID]
	s.mu.Unlock()
	if ok {
		rt.UpdateBalances(balances)
	}
}
