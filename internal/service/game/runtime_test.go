package game

import (
	"errors"
	"testing"

	appErr "blackjack-service/pkg/errors"
)

func TestFullRoundFlow(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),  // alice
		card(RankKing, SuitHearts), // bob
		card(RankTen, SuitDiamonds), // dealer up
		card(RankSeven, SuitDiamonds), // alice -> 17
		card(RankNine, SuitClubs),     // bob -> 19
		card(RankSix, SuitSpades),     // dealer hole -> 16
		card(RankTwo, SuitClubs),      // dealer draw -> 18
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)

	placeAndLock(t, rt, 1, 50)
	if rt.phase != PhaseBetting {
		t.Fatalf("deal must wait for all seats, phase is %s", rt.phase)
	}
	placeAndLock(t, rt, 2, 50)

	if rt.phase != PhasePlaying {
		t.Fatalf("expected playing after all bets locked, got %s", rt.phase)
	}
	if rt.activeSeatID != 1 {
		t.Fatalf("expected alice to act first, active seat is %d", rt.activeSeatID)
	}

	if err := rt.HandleAction(2, "stand", nil); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("expected ErrIllegalAction for out-of-turn stand, got %v", err)
	}

	mustAct(t, rt, 1, "stand", nil)
	if rt.activeSeatID != 2 {
		t.Fatalf("expected bob's turn, active seat is %d", rt.activeSeatID)
	}
	mustAct(t, rt, 2, "stand", nil)

	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver after dealer played, got %s", rt.phase)
	}
	if rt.dealer.Score != 18 {
		t.Fatalf("expected dealer 18, got %d", rt.dealer.Score)
	}
	if got := rt.lastResult[1].TotalWinnings; got != -50 {
		t.Fatalf("alice at 17 must lose 50, got %d", got)
	}
	if got := rt.lastResult[2].TotalWinnings; got != 50 {
		t.Fatalf("bob at 19 must win 50, got %d", got)
	}
}

func TestDealSkipsSeatsAtTwentyOne(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankAce, SuitSpades), // alice
		card(RankTen, SuitHearts), // bob
		card(RankFive, SuitDiamonds), // dealer up
		card(RankKing, SuitSpades),   // alice -> natural
		card(RankNine, SuitHearts),   // bob -> 19
		card(RankNine, SuitDiamonds), // dealer hole -> 14
		card(RankFive, SuitClubs),    // dealer draw -> 19
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)
	placeAndLock(t, rt, 1, 50)
	placeAndLock(t, rt, 2, 50)

	if rt.activeSeatID != 2 {
		t.Fatalf("alice's natural must be skipped, active seat is %d", rt.activeSeatID)
	}
	if rt.seats[1].mainHand().Status != HandBlackjack {
		t.Fatalf("expected blackjack status, got %s", rt.seats[1].mainHand().Status)
	}

	mustAct(t, rt, 2, "stand", nil)

	if got := rt.lastResult[1].TotalWinnings; got != 75 {
		t.Fatalf("natural on 50 must pay 75, got %d", got)
	}
	if got := rt.lastResult[2].TotalWinnings; got != 0 {
		t.Fatalf("19 vs 19 must push, got %d", got)
	}
}

func TestTurnSkipsMidQueueTwentyOne(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades), // alice
		card(RankAce, SuitSpades), // bob
		card(RankNine, SuitHearts), // cara
		card(RankTen, SuitDiamonds), // dealer up
		card(RankSeven, SuitDiamonds), // alice -> 17
		card(RankKing, SuitSpades),    // bob -> natural
		card(RankEight, SuitClubs),    // cara -> 17
		card(RankEight, SuitHearts),   // dealer hole -> 18
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)
	mustAddSeat(t, rt, 3, "cara", 500)
	placeAndLock(t, rt, 1, 50)
	placeAndLock(t, rt, 2, 50)
	placeAndLock(t, rt, 3, 50)

	if rt.activeSeatID != 1 {
		t.Fatalf("expected alice to act first, active seat is %d", rt.activeSeatID)
	}

	mustAct(t, rt, 1, "stand", nil)
	if rt.activeSeatID != 3 {
		t.Fatalf("bob's 21 must be skipped, active seat is %d", rt.activeSeatID)
	}

	mustAct(t, rt, 3, "stand", nil)
	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver, got %s", rt.phase)
	}
	if got := rt.lastResult[2].TotalWinnings; got != 75 {
		t.Fatalf("bob's natural on 50 must pay 75, got %d", got)
	}
	if got := rt.lastResult[1].TotalWinnings; got != -50 {
		t.Fatalf("alice at 17 must lose 50, got %d", got)
	}
}

func TestDealConsumesUniqueCards(t *testing.T) {
	rt := newTestRuntime(t)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)
	placeAndLock(t, rt, 1, 50)
	placeAndLock(t, rt, 2, 50)

	dealt := append([]Card(nil), rt.dealer.Cards...)
	for _, seat := range rt.seats {
		for _, h := range seat.Hands {
			dealt = append(dealt, h.Cards...)
		}
	}
	if len(dealt)+len(rt.deck) != 52 {
		t.Fatalf("dealt %d + remaining %d != 52", len(dealt), len(rt.deck))
	}

	seen := make(map[string]bool)
	for _, c := range dealt {
		key := string(c.Rank) + "/" + string(c.Suit)
		if seen[key] {
			t.Fatalf("card %s dealt twice", key)
		}
		seen[key] = true
	}
	for _, seat := range rt.seats {
		if len(seat.DealtCards) != 2 {
			t.Fatalf("expected two frozen cards, got %d", len(seat.DealtCards))
		}
	}
}

func TestDoubleDown(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankFive, SuitSpades),  // alice
		card(RankNine, SuitClubs),   // dealer up
		card(RankSix, SuitDiamonds), // alice -> 11
		card(RankEight, SuitDiamonds), // dealer hole -> 17
		card(RankTen, SuitHearts),     // double draw -> 21
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	placeAndLock(t, rt, 1, 50)

	mustAct(t, rt, 1, "double", nil)

	hand := rt.seats[1].Hands[0]
	if hand.Bet != 100 || !hand.Doubled {
		t.Fatalf("expected doubled bet 100, got %d doubled=%v", hand.Bet, hand.Doubled)
	}
	if len(hand.Cards) != 3 {
		t.Fatalf("double must draw exactly one card, got %d", len(hand.Cards))
	}
	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver, got %s", rt.phase)
	}
	if got := rt.lastResult[1].TotalWinnings; got != 100 {
		t.Fatalf("21 vs 17 on doubled 100 must pay 100, got %d", got)
	}
}

func TestDoubleRequiresAffordableBet(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankFive, SuitSpades),
		card(RankNine, SuitClubs),
		card(RankSix, SuitDiamonds),
		card(RankEight, SuitDiamonds),
		card(RankTen, SuitHearts),
	)
	mustAddSeat(t, rt, 1, "alice", 80)
	placeAndLock(t, rt, 1, 50)

	if err := rt.HandleAction(1, "double", nil); !errors.Is(err, appErr.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet doubling 50 on balance 80, got %v", err)
	}
	if rt.seats[1].Hands[0].Bet != 50 {
		t.Fatalf("rejected double must not change the bet")
	}
}

func TestSplitPlaysBothHands(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankEight, SuitSpades), // alice
		card(RankTen, SuitDiamonds), // dealer up
		card(RankEight, SuitHearts), // alice -> pair
		card(RankSeven, SuitClubs),  // dealer hole -> 17
		card(RankTwo, SuitClubs),    // split draw, first hand -> 10
		card(RankThree, SuitDiamonds), // split draw, second hand -> 11
		card(RankTen, SuitSpades),     // hit first hand -> 20
		card(RankJack, SuitDiamonds),  // hit second hand -> 21
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	placeAndLock(t, rt, 1, 50)

	mustAct(t, rt, 1, "split", nil)
	seat := rt.seats[1]
	if len(seat.Hands) != 2 {
		t.Fatalf("expected two hands after split, got %d", len(seat.Hands))
	}
	if !seat.Hands[0].FromSplit || !seat.Hands[1].FromSplit {
		t.Fatalf("both hands must be marked fromSplit")
	}
	if rt.activeHandIndex != 0 {
		t.Fatalf("play must start on the first hand, got index %d", rt.activeHandIndex)
	}

	if err := rt.HandleAction(1, "split", nil); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("expected resplit rejected, got %v", err)
	}

	mustAct(t, rt, 1, "hit", nil)   // first hand -> 20
	mustAct(t, rt, 1, "stand", nil) // to second hand
	if rt.activeHandIndex != 1 {
		t.Fatalf("expected second hand active, got index %d", rt.activeHandIndex)
	}
	mustAct(t, rt, 1, "hit", nil) // 21, auto-stands; dealer plays

	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver, got %s", rt.phase)
	}
	sr := rt.lastResult[1]
	if sr.MainHandResult != "split" || sr.TotalWinnings != 100 {
		t.Fatalf("expected split net +100, got %q %d", sr.MainHandResult, sr.TotalWinnings)
	}
}

func TestSurrenderForfeitsHalf(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),
		card(RankNine, SuitDiamonds),
		card(RankSix, SuitClubs), // alice -> 16
		card(RankNine, SuitClubs), // dealer hole -> 18
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	placeAndLock(t, rt, 1, 50)

	mustAct(t, rt, 1, "surrender", nil)
	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver, got %s", rt.phase)
	}
	if got := rt.lastResult[1].TotalWinnings; got != -25 {
		t.Fatalf("surrender on 50 must cost 25, got %d", got)
	}
}

func TestSurrenderOnlyAsFirstAction(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankFive, SuitSpades),
		card(RankNine, SuitDiamonds),
		card(RankSix, SuitClubs),
		card(RankNine, SuitClubs),
		card(RankTwo, SuitHearts), // hit -> 13
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	placeAndLock(t, rt, 1, 50)

	mustAct(t, rt, 1, "hit", nil)
	if err := rt.HandleAction(1, "surrender", nil); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("expected surrender rejected after a hit, got %v", err)
	}
}

func TestHoleCardMaskedUntilReveal(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),
		card(RankNine, SuitDiamonds),
		card(RankSeven, SuitClubs), // alice -> 17
		card(RankNine, SuitClubs),  // hole
		card(RankFive, SuitHearts),
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	placeAndLock(t, rt, 1, 50)

	state := rt.Snapshot(1)
	if !state.Dealer.HoleHidden {
		t.Fatalf("hole card must be hidden during play")
	}
	if len(state.Dealer.Cards) != 1 || state.Dealer.Score != 9 {
		t.Fatalf("view must show only the up-card, got %d cards score %d",
			len(state.Dealer.Cards), state.Dealer.Score)
	}
	if len(rt.dealer.Cards) != 2 {
		t.Fatalf("runtime must hold both dealer cards")
	}

	mustAct(t, rt, 1, "stand", nil)
	state = rt.Snapshot(1)
	if state.Dealer.HoleHidden || len(state.Dealer.Cards) < 2 {
		t.Fatalf("hole card must be revealed at round end")
	}
}

func TestSpectatorExcludedFromRound(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),
		card(RankNine, SuitDiamonds),
		card(RankNine, SuitClubs), // alice -> 19
		card(RankEight, SuitDiamonds), // dealer -> 17
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)

	mustAct(t, rt, 2, "spectate", nil)
	placeAndLock(t, rt, 1, 50)

	if rt.phase != PhasePlaying {
		t.Fatalf("spectator must not block the deal, phase is %s", rt.phase)
	}
	if len(rt.seats[2].mainHand().Cards) != 0 {
		t.Fatalf("spectator must not be dealt cards")
	}

	mustAct(t, rt, 1, "stand", nil)
	if _, ok := rt.lastResult[2]; ok {
		t.Fatalf("spectator must not appear in the settlement")
	}
}

func TestLastSeatSpectatingStartsDeal(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),  // alice
		card(RankTen, SuitHearts),  // dealer up
		card(RankNine, SuitClubs),  // alice -> 19
		card(RankEight, SuitDiamonds), // dealer hole -> 18
	)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)

	placeAndLock(t, rt, 1, 50)
	if rt.phase != PhaseBetting {
		t.Fatalf("deal must wait for bob, phase is %s", rt.phase)
	}

	mustAct(t, rt, 2, "spectate", nil)
	if rt.phase != PhasePlaying {
		t.Fatalf("deal must start when the last unlocked seat spectates, phase is %s", rt.phase)
	}

	mustAct(t, rt, 1, "stand", nil)
	if got := rt.lastResult[1].TotalWinnings; got != 50 {
		t.Fatalf("alice at 19 must win 50, got %d", got)
	}
	if _, ok := rt.lastResult[2]; ok {
		t.Fatalf("spectator must not appear in the settlement")
	}
}

func TestNewRoundKeepsMarkedBets(t *testing.T) {
	rt := newTestRuntime(t,
		card(RankTen, SuitSpades),
		card(RankNine, SuitDiamonds),
		card(RankNine, SuitClubs),
		card(RankEight, SuitDiamonds),
	)
	mustAddSeat(t, rt, 1, "alice", 1000)

	mustAct(t, rt, 1, "keepBets", []byte(`{"main":true}`))
	placeAndLock(t, rt, 1, 50)
	mustAct(t, rt, 1, "stand", nil)
	if rt.phase != PhaseRoundOver {
		t.Fatalf("expected roundOver, got %s", rt.phase)
	}

	mustAct(t, rt, 1, "newRound", nil)
	if rt.phase != PhaseBetting || rt.roundCounter != 2 {
		t.Fatalf("expected betting round 2, got %s round %d", rt.phase, rt.roundCounter)
	}
	seat := rt.seats[1]
	if seat.mainHand().Bet != 50 {
		t.Fatalf("kept main bet must be re-placed, got %d", seat.mainHand().Bet)
	}
	if seat.HasPlacedBet {
		t.Fatalf("kept bet must still require locking")
	}
}

func TestOnlyHostControlsDealAndNewRound(t *testing.T) {
	rt := newTestRuntime(t)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)

	if err := rt.HandleAction(2, "deal", nil); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("expected non-host deal rejected, got %v", err)
	}
	if err := rt.HandleAction(2, "newRound", nil); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("expected non-host newRound rejected, got %v", err)
	}
}

func TestHostForceDealIncludesUnlockedSeats(t *testing.T) {
	rt := newTestRuntime(t)
	mustAddSeat(t, rt, 1, "alice", 1000)
	mustAddSeat(t, rt, 2, "bob", 500)

	placeAndLock(t, rt, 1, 50)
	mustAct(t, rt, 2, "placeBet", []byte(`{"amount":20}`))

	mustAct(t, rt, 1, "deal", nil)
	if rt.phase != PhasePlaying && rt.phase != PhaseRoundOver {
		t.Fatalf("force deal must start the round, phase is %s", rt.phase)
	}
	if got := rt.seats[2].mainHand().Bet; got != 20 {
		t.Fatalf("unlocked seat plays its current bet, got %d", got)
	}
}

func TestMinAndMaxBetShortcuts(t *testing.T) {
	rt := newTestRuntime(t)
	mustAddSeat(t, rt, 1, "alice", 100)

	mustAct(t, rt, 1, "minBet", nil)
	if got := rt.seats[1].mainHand().Bet; got != MinBet {
		t.Fatalf("expected min bet %d, got %d", MinBet, got)
	}
	mustAct(t, rt, 1, "maxBet", nil)
	if got := rt.seats[1].mainHand().Bet; got != 100 {
		t.Fatalf("expected full balance wagered, got %d", got)
	}
}

func TestRoomCapacity(t *testing.T) {
	rt := newTestRuntime(t)
	for i := int64(1); i <= maxSeats; i++ {
		mustAddSeat(t, rt, i, "player", 100)
	}
	if err := rt.AddSeat(99, "late", 100); !errors.Is(err, appErr.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestGameLogCapped(t *testing.T) {
	rt := newTestRuntime(t)
	for i := 0; i < maxLogEntries*2; i++ {
		rt.mu.Lock()
		rt.appendLogLocked("entry", "")
		rt.mu.Unlock()
	}
	if len(rt.logs) != maxLogEntries {
		t.Fatalf("expected log capped at %d, got %d", maxLogEntries, len(rt.logs))
	}
}
