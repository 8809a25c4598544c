package game

import (
	"reflect"
	"testing"
)

func settledSeat(userID int64, bet int64, status HandStatus, cards ...Card) *Seat {
	seat := newSeat(userID, "player", false, false, 1000)
	hand := seat.mainHand()
	hand.Bet = bet
	hand.Cards = cards
	hand.Rescore()
	hand.Status = status
	seat.DealtCards = append([]Card(nil), cards[:2]...)
	seat.HasPlacedBet = true
	return seat
}

func dealerWith(cards ...Card) DealerHand {
	return DealerHand{Cards: cards, Score: Score(cards)}
}

func TestSettleStandardOutcomes(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankEight, SuitSpades)) // 18

	cases := []struct {
		name    string
		seat    *Seat
		payout  int64
		outcome string
	}{
		{
			"twenty beats dealer eighteen",
			settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankQueen, SuitDiamonds)),
			50, "win",
		},
		{
			"seventeen loses to dealer eighteen",
			settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankSeven, SuitDiamonds)),
			-50, "lose",
		},
		{
			"eighteen pushes",
			settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankEight, SuitDiamonds)),
			0, "push",
		},
		{
			"bust loses regardless of dealer",
			settledSeat(1, 50, HandBust, card(RankTen, SuitHearts), card(RankSeven, SuitDiamonds), card(RankNine, SuitClubs)),
			-50, "bust",
		},
		{
			"natural pays three to two",
			settledSeat(1, 50, HandBlackjack, card(RankAce, SuitHearts), card(RankKing, SuitDiamonds)),
			75, "blackjack",
		},
		{
			"odd natural floors",
			settledSeat(1, 15, HandBlackjack, card(RankAce, SuitHearts), card(RankKing, SuitDiamonds)),
			22, "blackjack",
		},
		{
			"surrender forfeits half",
			settledSeat(1, 50, HandSurrendered, card(RankTen, SuitHearts), card(RankSix, SuitDiamonds)),
			-25, "surrender",
		},
		{
			"odd surrender rounds against the player",
			settledSeat(1, 51, HandSurrendered, card(RankTen, SuitHearts), card(RankSix, SuitDiamonds)),
			-26, "surrender",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := SettleRound(map[int64]*Seat{1: tc.seat}, []int64{1}, dealer)
			sr, ok := result[1]
			if !ok {
				t.Fatalf("expected result for seat 1")
			}
			if sr.MainHandPayout != tc.payout {
				t.Fatalf("expected payout %d, got %d", tc.payout, sr.MainHandPayout)
			}
			if sr.MainHandResult != tc.outcome {
				t.Fatalf("expected outcome %q, got %q", tc.outcome, sr.MainHandResult)
			}
		})
	}
}

func TestSettleDealerBustPaysStanding(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankSix, SuitSpades), card(RankNine, SuitHearts)) // 25

	standing := settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankTwo, SuitDiamonds)) // 12
	busted := settledSeat(2, 50, HandBust, card(RankTen, SuitDiamonds), card(RankSeven, SuitClubs), card(RankNine, SuitSpades))

	result := SettleRound(map[int64]*Seat{1: standing, 2: busted}, []int64{1, 2}, dealer)
	if result[1].MainHandPayout != 50 {
		t.Fatalf("standing hand must win on dealer bust, got %d", result[1].MainHandPayout)
	}
	if result[2].MainHandPayout != -50 {
		t.Fatalf("busted hand loses even when the dealer busts, got %d", result[2].MainHandPayout)
	}
}

func TestSettleNaturalVersusDealerNatural(t *testing.T) {
	dealer := dealerWith(card(RankAce, SuitClubs), card(RankQueen, SuitSpades))
	seat := settledSeat(1, 50, HandBlackjack, card(RankAce, SuitHearts), card(RankKing, SuitDiamonds))

	result := SettleRound(map[int64]*Seat{1: seat}, []int64{1}, dealer)
	if result[1].MainHandPayout != 0 || result[1].MainHandResult != "push" {
		t.Fatalf("natural vs natural must push, got %d %q",
			result[1].MainHandPayout, result[1].MainHandResult)
	}
}

func TestSettleSplitHands(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankEight, SuitSpades)) // 18

	seat := newSeat(1, "alice", true, false, 1000)
	seat.DealtCards = []Card{card(RankEight, SuitHearts), card(RankEight, SuitDiamonds)}
	seat.HasPlacedBet = true

	first := newHand(50, HandStanding)
	first.FromSplit = true
	first.Cards = []Card{card(RankEight, SuitHearts), card(RankQueen, SuitClubs)} // 18
	first.Rescore()

	second := newHand(50, HandStanding)
	second.FromSplit = true
	second.Cards = []Card{card(RankEight, SuitDiamonds), card(RankKing, SuitHearts), card(RankThree, SuitSpades)} // 21
	second.Rescore()

	seat.Hands = []*Hand{first, second}

	result := SettleRound(map[int64]*Seat{1: seat}, []int64{1}, dealer)
	sr := result[1]
	if sr.MainHandResult != "split" {
		t.Fatalf("expected split marker, got %q", sr.MainHandResult)
	}
	if !reflect.DeepEqual(sr.HandOutcomes, []string{"push", "win"}) {
		t.Fatalf("expected outcomes [push win], got %v", sr.HandOutcomes)
	}
	if sr.MainHandPayout != 50 {
		t.Fatalf("expected net +50, got %d", sr.MainHandPayout)
	}
}

func TestSettleSkipsSpectatorsAndUndealtSeats(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankEight, SuitSpades))

	spectator := newSeat(2, "bob", false, true, 500)
	undealt := newSeat(3, "carol", false, false, 500)
	player := settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankQueen, SuitDiamonds))

	result := SettleRound(
		map[int64]*Seat{1: player, 2: spectator, 3: undealt},
		[]int64{1, 2, 3},
		dealer,
	)
	if len(result) != 1 {
		t.Fatalf("expected only the dealt seat settled, got %d entries", len(result))
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankEight, SuitSpades))
	seat := settledSeat(1, 50, HandStanding, card(RankTen, SuitHearts), card(RankQueen, SuitDiamonds))
	seat.SideBets[SideBetPerfectPairs] = 10

	seats := map[int64]*Seat{1: seat}
	first := SettleRound(seats, []int64{1}, dealer)
	second := SettleRound(seats, []int64{1}, dealer)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("settlement must be a pure function of the frozen state")
	}
}

func TestSettleCombinesMainAndSideBets(t *testing.T) {
	dealer := dealerWith(card(RankTen, SuitClubs), card(RankEight, SuitSpades)) // 18

	seat := settledSeat(1, 50, HandStanding, card(RankSeven, SuitHearts), card(RankSeven, SuitDiamonds), card(RankSix, SuitClubs)) // 20
	seat.SideBets[SideBetPerfectPairs] = 10 // red pair, 10x
	seat.SideBets[SideBetBusterBlackjack] = 10

	result := SettleRound(map[int64]*Seat{1: seat}, []int64{1}, dealer)
	sr := result[1]
	// +50 main, +100 perfect pairs, -10 buster.
	if sr.TotalWinnings != 140 {
		t.Fatalf("expected total +140, got %d", sr.TotalWinnings)
	}
	if sr.TotalWagered != 70 {
		t.Fatalf("expected 70 wagered, got %d", sr.TotalWagered)
	}
}
