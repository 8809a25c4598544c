package game

// SeatResult is one seat's settlement for a round. Payouts are signed
// net changes; pushes contribute zero.
type SeatResult struct {
	MainHandResult string          `json:"mainHandResult"`
	HandOutcomes   []string        `json:"handOutcomes,omitempty"`
	MainHandPayout int64           `json:"mainHandPayout"`
	SideBetResults []SideBetResult `json:"sideBetResults"`
	TotalWinnings  int64           `json:"totalWinnings"`
	TotalWagered   int64           `json:"totalWagered"`
}

type RoundResult map[int64]*SeatResult

// SettleRound computes the round result from the frozen final state.
// Pure function of hands, bets and the dealer hand; replaying it with
// the same inputs yields an identical result.
func SettleRound(seats map[int64]*Seat, order []int64, dealer DealerHand) RoundResult {
	result := make(RoundResult)
	for _, seatID := range order {
		seat, ok := seats[seatID]
		if !ok || seat.IsSpectating || len(seat.DealtCards) == 0 {
			continue
		}

		sr := &SeatResult{
			HandOutcomes:   make([]string, 0, len(seat.Hands)),
			SideBetResults: EvaluateSideBets(seat.DealtCards, seat.SideBets, dealer.Cards),
			TotalWagered:   seat.TotalWagered(),
		}

		for _, hand := range seat.Hands {
			payout, outcome := settleMainHand(hand, dealer)
			sr.MainHandPayout += payout
			sr.HandOutcomes = append(sr.HandOutcomes, outcome)
		}
		if len(sr.HandOutcomes) == 1 {
			sr.MainHandResult = sr.HandOutcomes[0]
			sr.HandOutcomes = nil
		} else {
			sr.MainHandResult = "split"
		}

		sr.TotalWinnings = sr.MainHandPayout
		for _, sb := range sr.SideBetResults {
			sr.TotalWinnings += sb.Payout
		}

		result[seatID] = sr
	}
	return result
}

func settleMainHand(h *Hand, dealer DealerHand) (int64, string) {
	dealerNatural := len(dealer.Cards) == 2 && dealer.Score == 21

	switch {
	case h.Status == HandSurrendered:
		// Half the wager forfeited, rounded against the player.
		return -((h.Bet + 1) / 2), "surrender"
	case h.Score > 21:
		return -h.Bet, "bust"
	case h.IsNatural() && !dealerNatural:
		// Naturals pay 3:2, rounded down to whole chips.
		return h.Bet * 3 / 2, "blackjack"
	case h.IsNatural() && dealerNatural:
		return 0, "push"
	case dealer.Score > 21 || h.Score > dealer.Score:
		return h.Bet, "win"
	case h.Score < dealer.Score:
		return -h.Bet, "lose"
	default:
		return 0, "push"
	}
}
