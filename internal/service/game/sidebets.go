package game

import "math"

type SideBetName string

const (
	SideBetPerfectPairs       SideBetName = "perfectPairs"
	SideBetTwentyOnePlusThree SideBetName = "twentyOnePlusThree"
	SideBetLuckyLadies        SideBetName = "luckyLadies"
	SideBetRoyalMatch         SideBetName = "royalMatch"
	SideBetBusterBlackjack    SideBetName = "busterBlackjack"
)

// SideBetNames fixes the evaluation and display order.
var SideBetNames = []SideBetName{
	SideBetPerfectPairs,
	SideBetTwentyOnePlusThree,
	SideBetLuckyLadies,
	SideBetRoyalMatch,
	SideBetBusterBlackjack,
}

type SideBetSet map[SideBetName]int64

func NewSideBetSet() SideBetSet {
	set := make(SideBetSet, len(SideBetNames))
	for _, name := range SideBetNames {
		set[name] = 0
	}
	return set
}

func (s SideBetSet) Total() int64 {
	var total int64
	for _, amount := range s {
		total += amount
	}
	return total
}

type SideBetResult struct {
	Name   SideBetName `json:"name"`
	Status string      `json:"status"` // win/loss
	Payout int64       `json:"payout"`
}

// EvaluateSideBets resolves every nonzero side bet against the seat's
// first two cards as they stood at deal time, plus the final dealer hand
// for the dealer's up-card and bust count. Zero wagers produce no entry.
func EvaluateSideBets(firstTwo []Card, bets SideBetSet, dealerCards []Card) []SideBetResult {
	if len(bets) == 0 {
		return nil
	}

	results := make([]SideBetResult, 0, len(SideBetNames))
	for _, name := range SideBetNames {
		wager := bets[name]
		if wager <= 0 {
			continue
		}

		mult, won := evaluateSideBet(name, firstTwo, dealerCards)
		if won {
			results = append(results, SideBetResult{
				Name:   name,
				Status: "win",
				Payout: int64(math.Floor(float64(wager) * mult)),
			})
		} else {
			results = append(results, SideBetResult{
				Name:   name,
				Status: "loss",
				Payout: -wager,
			})
		}
	}
	return results
}

func evaluateSideBet(name SideBetName, firstTwo []Card, dealerCards []Card) (float64, bool) {
	switch name {
	case SideBetPerfectPairs:
		return perfectPairs(firstTwo)
	case SideBetTwentyOnePlusThree:
		if len(dealerCards) == 0 {
			return 0, false
		}
		return twentyOnePlusThree(firstTwo, dealerCards[0])
	case SideBetLuckyLadies:
		return luckyLadies(firstTwo, dealerHasNatural(dealerCards))
	case SideBetRoyalMatch:
		return royalMatch(firstTwo)
	case SideBetBusterBlackjack:
		return busterBlackjack(dealerCards)
	default:
		return 0, false
	}
}

func dealerHasNatural(cards []Card) bool {
	return len(cards) == 2 && Score(cards) == 21
}

// perfectPairs: perfect pair 25:1, colored pair 10:1, mixed pair 5:1.
func perfectPairs(cards []Card) (float64, bool) {
	if len(cards) < 2 {
		return 0, false
	}
	a, b := cards[0], cards[1]
	if a.Rank != b.Rank {
		return 0, false
	}
	switch {
	case a.Suit == b.Suit:
		return 25, true
	case a.IsRed() == b.IsRed():
		return 10, true
	default:
		return 5, true
	}
}

// twentyOnePlusThree plays the seat's two cards plus the dealer up-card
// as a three-card poker hand.
func twentyOnePlusThree(firstTwo []Card, upCard Card) (float64, bool) {
	if len(firstTwo) < 2 {
		return 0, false
	}
	trio := []Card{firstTwo[0], firstTwo[1], upCard}

	sameRank := trio[0].Rank == trio[1].Rank && trio[1].Rank == trio[2].Rank
	flush := trio[0].Suit == trio[1].Suit && trio[1].Suit == trio[2].Suit
	straight := isThreeCardStraight(trio)

	switch {
	case sameRank && flush:
		return 100, true
	case straight && flush:
		return 40, true
	case sameRank:
		return 30, true
	case straight:
		return 10, true
	case flush:
		return 5, true
	default:
		return 0, false
	}
}

func isThreeCardStraight(trio []Card) bool {
	orders := []int{trio[0].order(), trio[1].order(), trio[2].order()}
	if consecutive(orders) {
		return true
	}
	// Ace plays low in A-2-3.
	for i, o := range orders {
		if o == 14 {
			low := append([]int(nil), orders...)
			low[i] = 1
			if consecutive(low) {
				return true
			}
		}
	}
	return false
}

func consecutive(orders []int) bool {
	sorted := append([]int(nil), orders...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted[1] == sorted[0]+1 && sorted[2] == sorted[1]+1
}

// luckyLadies pays on any first-two total of 20, scaled by how the 20 is
// composed. The Queen of Hearts pair drops to 200:1 when the dealer also
// has a natural.
func luckyLadies(cards []Card, dealerNatural bool) (float64, bool) {
	if len(cards) < 2 || Score(cards) != 20 {
		return 0, false
	}
	a, b := cards[0], cards[1]
	bothQueenOfHearts := a.Rank == RankQueen && b.Rank == RankQueen &&
		a.Suit == SuitHearts && b.Suit == SuitHearts

	switch {
	case bothQueenOfHearts && dealerNatural:
		return 200, true
	case bothQueenOfHearts:
		return 1000, true
	case a.Rank == b.Rank && a.Suit == b.Suit:
		return 25, true
	case a.Suit == b.Suit:
		return 10, true
	default:
		return 4, true
	}
}

// royalMatch requires the first two cards suited: suited K-Q pays 25:1,
// any other suited pair of cards pays 5:2.
func royalMatch(cards []Card) (float64, bool) {
	if len(cards) < 2 {
		return 0, false
	}
	a, b := cards[0], cards[1]
	if a.Suit != b.Suit {
		return 0, false
	}
	kingQueen := (a.Rank == RankKing && b.Rank == RankQueen) ||
		(a.Rank == RankQueen && b.Rank == RankKing)
	if kingQueen {
		return 25, true
	}
	return 2.5, true
}

// busterBlackjack pays on a dealer bust, scaled by how many cards the
// dealer busted with.
func busterBlackjack(dealerCards []Card) (float64, bool) {
	if Score(dealerCards) <= 21 {
		return 0, false
	}
	switch n := len(dealerCards); {
	case n >= 8:
		return 200, true
	case n == 7:
		return 50, true
	case n == 6:
		return 15, true
	case n == 5:
		return 4, true
	case n == 4:
		return 2, true
	case n == 3:
		return 1, true
	default:
		return 0, false
	}
}
