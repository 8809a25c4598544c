package game

type HandStatus string

const (
	HandBetting     HandStatus = "betting"
	HandPlaying     HandStatus = "playing"
	HandStanding    HandStatus = "standing"
	HandBust        HandStatus = "bust"
	HandBlackjack   HandStatus = "blackjack"
	HandSurrendered HandStatus = "surrendered"
)

type Hand struct {
	Cards  []Card     `json:"cards"`
	Bet    int64      `json:"bet"`
	Score  int        `json:"score"`
	Status HandStatus `json:"status"`

	// Doubled doubles the settled stake; FromSplit blocks the 3:2 natural
	// payout on a post-split two-card 21.
	Doubled   bool `json:"doubled,omitempty"`
	FromSplit bool `json:"fromSplit,omitempty"`
}

func newHand(bet int64, status HandStatus) *Hand {
	return &Hand{Cards: []Card{}, Bet: bet, Status: status}
}

// Score sums card values with aces at 11, then downgrades aces one at a
// time while the total busts. Standard soft/hard blackjack scoring.
func Score(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Value()
		if c.Rank == RankAce {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func (h *Hand) Rescore() {
	h.Score = Score(h.Cards)
}

// Classify rescores the hand and settles any terminal status: a dealt
// two-card 21 is a blackjack, over 21 busts, exactly 21 stands. A hand
// still below 21 keeps its current status.
func (h *Hand) Classify() {
	h.Rescore()
	switch {
	case h.IsNatural():
		h.Status = HandBlackjack
	case h.Score > 21:
		h.Status = HandBust
	case h.Score == 21:
		h.Status = HandStanding
	}
}

// IsNatural reports a dealt two-card 21. Split hands never count as
// naturals even when their first two cards total 21.
func (h *Hand) IsNatural() bool {
	return len(h.Cards) == 2 && h.Score == 21 && !h.FromSplit
}

// playable reports whether the hand can still take an action.
func (h *Hand) playable() bool {
	return h.Status == HandPlaying && h.Score < 21
}
