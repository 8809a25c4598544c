package game

import (
	"fmt"

	appErr "blackjack-service/pkg/errors"
)

// MinBet is the table minimum for the main wager. The maximum is bounded
// only by the seat's balance.
const MinBet = 10

type BetTarget struct {
	Main    bool
	SideBet SideBetName
}

func MainBet() BetTarget {
	return BetTarget{Main: true}
}

func SideBet(name SideBetName) BetTarget {
	return BetTarget{SideBet: name}
}

func newSeat(userID int64, username string, isHost, spectating bool, balance int64) *Seat {
	return &Seat{
		UserID:       userID,
		Username:     username,
		IsHost:       isHost,
		IsSpectating: spectating,
		Hands:        []*Hand{newHand(0, HandBetting)},
		SideBets:     NewSideBetSet(),
		Balance:      balance,
	}
}

func (s *Seat) mainHand() *Hand {
	if len(s.Hands) == 0 {
		s.Hands = []*Hand{newHand(0, HandBetting)}
	}
	return s.Hands[0]
}

// TotalWagered is the main bet plus every side bet, across all hands.
func (s *Seat) TotalWagered() int64 {
	total := s.SideBets.Total()
	for _, h := range s.Hands {
		total += h.Bet
	}
	return total
}

// PlaceBet adds amount to the targeted wager. Rejected without state
// change while spectating, locked, or when it would exceed the balance.
func (s *Seat) PlaceBet(amount int64, target BetTarget) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", appErr.ErrInvalidBet)
	}
	if s.IsSpectating {
		return fmt.Errorf("%w: seat is spectating", appErr.ErrInvalidBet)
	}
	if s.HasPlacedBet {
		return fmt.Errorf("%w: bets are locked", appErr.ErrInvalidBet)
	}
	if s.TotalWagered()+amount > s.Balance {
		return fmt.Errorf("%w: exceeds balance", appErr.ErrInvalidBet)
	}

	if target.Main {
		s.mainHand().Bet += amount
		return nil
	}
	if _, ok := s.SideBets[target.SideBet]; !ok {
		return fmt.Errorf("%w: unknown side bet %q", appErr.ErrInvalidBet, target.SideBet)
	}
	s.SideBets[target.SideBet] += amount
	return nil
}

// ClearBet resets the main bet and all side bets. No-op once locked.
func (s *Seat) ClearBet() {
	if s.HasPlacedBet {
		return
	}
	s.mainHand().Bet = 0
	s.SideBets = NewSideBetSet()
}

// ClearSideBet resets one side bet. No-op once locked.
func (s *Seat) ClearSideBet(name SideBetName) {
	if s.HasPlacedBet {
		return
	}
	if _, ok := s.SideBets[name]; ok {
		s.SideBets[name] = 0
	}
}

// LockBet freezes the seat's wagers for the round.
func (s *Seat) LockBet() error {
	if s.IsSpectating {
		return fmt.Errorf("%w: seat is spectating", appErr.ErrInvalidBet)
	}
	if s.HasPlacedBet {
		return nil
	}
	if s.mainHand().Bet < MinBet {
		return fmt.Errorf("%w: minimum is %d", appErr.ErrBetTooLow, MinBet)
	}
	s.HasPlacedBet = true
	return nil
}
