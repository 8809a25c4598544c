package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxSeats       = 7
	maxLogEntries  = 50
	defaultTurnSec = 30
)

// Pacing controls presentation delays between discrete transitions.
// Zero values make every phase run synchronously; correctness never
// depends on any of these.
type Pacing struct {
	TurnTimeout   time.Duration
	DealStep      time.Duration
	DealerStep    time.Duration
	RoundOverWait time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		TurnTimeout:   defaultTurnSec * time.Second,
		DealStep:      200 * time.Millisecond,
		DealerStep:    time.Second,
		RoundOverWait: 5 * time.Second,
	}
}

type dealTarget struct {
	seatID int64 // 0 = dealer
}

// PersistFunc writes the full room state snapshot to the backing store.
// Failures are surfaced as warnings; the runtime stays authoritative.
type PersistFunc func(RoomState) error

// SettledFunc receives the outcome of a settled round, applies balance
// deltas and reports fresh balances back via UpdateBalances.
type SettledFunc func(roomID int64, roundNo int, dealerScore int, result RoundResult)

// RoomRuntime is the single-writer authority for one room. All seat
// actions funnel through HandleAction under one mutex, which linearizes
// conflicting writes; participants receive full-state snapshots.
type RoomRuntime struct {
	roomID     int64
	code       string
	hostUserID int64

	phase           Phase
	roundCounter    int
	deck            Deck
	seats           map[int64]*Seat
	seatOrder       []int64
	dealer          DealerHand
	activeSeatID    int64
	activeHandIndex int
	holeRevealed    bool
	lastResult      RoundResult

	dealQueue []dealTarget
	dealIndex int

	logs []GameLogEntry
	seq  int64

	subscribers map[int64]chan OutgoingMessage

	pacing     Pacing
	turnTimer  *time.Timer
	phaseTimer *time.Timer
	turnEpoch  int64

	mu sync.Mutex

	// newDeck builds the shoe for each round; replaceable in tests.
	newDeck func() Deck

	persist   PersistFunc
	onSettled SettledFunc
}

func NewRoomRuntime(roomID int64, code string, pacing Pacing, persist PersistFunc, onSettled SettledFunc) *RoomRuntime {
	return &RoomRuntime{
		roomID:       roomID,
		code:         code,
		phase:        PhaseBetting,
		roundCounter: 1,
		seats:        make(map[int64]*Seat),
		subscribers:  make(map[int64]chan OutgoingMessage),
		logs:         []GameLogEntry{},
		newDeck:      NewShuffledDeck,
		pacing:       pacing,
		persist:      persist,
		onSettled:    onSettled,
	}
}

// AddSeat registers a participant. The first joiner becomes host; anyone
// joining mid-round starts as a spectator until the next betting phase.
func (rt *RoomRuntime) AddSeat(userID int64, username string, balance int64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if seat, ok := rt.seats[userID]; ok {
		seat.Username = username
		seat.Balance = balance
		return nil
	}
	if len(rt.seatOrder) >= maxSeats {
		return appErr.ErrRoomFull
	}

	isHost := len(rt.seatOrder) == 0
	if isHost {
		rt.hostUserID = userID
	}
	spectating := rt.phase != PhaseBetting && rt.phase != PhaseLoading

	rt.seats[userID] = newSeat(userID, username, isHost, spectating, balance)
	rt.seatOrder = append(rt.seatOrder, userID)
	rt.appendLogLocked(fmt.Sprintf("%s joined the room", username), username)
	rt.syncLocked()
	return nil
}

func (rt *RoomRuntime) Subscribe(userID int64) chan OutgoingMessage {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	ch := make(chan OutgoingMessage, 8)
	rt.subscribers[userID] = ch
	rt.pushStateLocked(userID)
	return ch
}

func (rt *RoomRuntime) Unsubscribe(userID int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if ch, ok := rt.subscribers[userID]; ok {
		delete(rt.subscribers, userID)
		close(ch)
	}
}

// Snapshot exports the room state as seen by viewerID.
func (rt *RoomRuntime) Snapshot(viewerID int64) RoomState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.exportStateLocked(viewerID)
}

// UpdateBalances refreshes seat balance snapshots after settlement has
// been applied to the persistent wallets.
func (rt *RoomRuntime) UpdateBalances(balances map[int64]int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for userID, balance := range balances {
		if seat, ok := rt.seats[userID]; ok {
			seat.Balance = balance
		}
	}
	rt.broadcastStateLocked()
}

type placeBetPayload struct {
	Amount  int64  `json:"amount"`
	Target  string `json:"target"` // main/side
	SideBet string `json:"sideBet,omitempty"`
}

type clearSideBetPayload struct {
	Name string `json:"name"`
}

type keepBetsPayload struct {
	Main *bool `json:"main,omitempty"`
	Side *bool `json:"side,omitempty"`
}

func (rt *RoomRuntime) HandleAction(userID int64, action string, data json.RawMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.seats[userID]
	if !ok {
		return appErr.ErrRoomAccessDenied
	}

	switch action {
	case "placeBet":
		return rt.handlePlaceBetLocked(seat, data)
	case "clearBet":
		return rt.handleClearBetLocked(seat, nil)
	case "clearSideBet":
		return rt.handleClearBetLocked(seat, data)
	case "lockBet":
		return rt.handleLockBetLocked(seat)
	case "minBet":
		return rt.handleMinBetLocked(seat)
	case "maxBet":
		return rt.handleMaxBetLocked(seat)
	case "keepBets":
		return rt.handleKeepBetsLocked(seat, data)
	case "spectate":
		return rt.handleSpectateLocked(seat)
	case "deal":
		return rt.handleForceDealLocked(seat)
	case "hit", "stand", "double", "split", "surrender":
		return rt.handleTurnActionLocked(seat, action)
	case "newRound":
		return rt.handleNewRoundLocked(seat)
	case "rejoin":
		rt.pushStateLocked(userID)
		return nil
	case "ping":
		rt.pushMessageLocked(userID, OutgoingMessage{Type: "pong", Seq: rt.nextSeqLocked(), Data: map[string]string{"message": "pong"}})
		return nil
	default:
		return fmt.Errorf("%w: unsupported action %q", appErr.ErrIllegalAction, action)
	}
}

// Betting phase

func (rt *RoomRuntime) handlePlaceBetLocked(seat *Seat, data json.RawMessage) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrInvalidBet)
	}
	var payload placeBetPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidBet, err)
		}
	}

	target := MainBet()
	if payload.Target == "side" {
		target = SideBet(SideBetName(payload.SideBet))
	}
	if err := seat.PlaceBet(payload.Amount, target); err != nil {
		return err
	}
	rt.syncLocked()
	return nil
}

func (rt *RoomRuntime) handleClearBetLocked(seat *Seat, data json.RawMessage) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrInvalidBet)
	}
	if data == nil {
		seat.ClearBet()
	} else {
		var payload clearSideBetPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidBet, err)
		}
		seat.ClearSideBet(SideBetName(payload.Name))
	}
	rt.syncLocked()
	return nil
}

func (rt *RoomRuntime) handleLockBetLocked(seat *Seat) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrInvalidBet)
	}
	if err := seat.LockBet(); err != nil {
		return err
	}
	rt.appendLogLocked(fmt.Sprintf("%s locked a bet of %d", seat.Username, seat.mainHand().Bet), seat.Username)

	if rt.allBetsPlacedLocked() {
		rt.startDealLocked()
		return nil
	}
	rt.syncLocked()
	return nil
}

// handleMinBetLocked tops the main bet up to the table minimum.
func (rt *RoomRuntime) handleMinBetLocked(seat *Seat) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrInvalidBet)
	}
	shortfall := int64(MinBet) - seat.mainHand().Bet
	if shortfall <= 0 {
		return nil
	}
	if err := seat.PlaceBet(shortfall, MainBet()); err != nil {
		return err
	}
	rt.syncLocked()
	return nil
}

// handleMaxBetLocked pushes the seat's remaining balance onto the main bet.
func (rt *RoomRuntime) handleMaxBetLocked(seat *Seat) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrInvalidBet)
	}
	remaining := seat.Balance - seat.TotalWagered()
	if remaining <= 0 {
		return nil
	}
	if err := seat.PlaceBet(remaining, MainBet()); err != nil {
		return err
	}
	rt.syncLocked()
	return nil
}

func (rt *RoomRuntime) handleKeepBetsLocked(seat *Seat, data json.RawMessage) error {
	var payload keepBetsPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrIllegalAction, err)
		}
	}
	if payload.Main != nil {
		seat.KeepMainBet = *payload.Main
	}
	if payload.Side != nil {
		seat.KeepSideBets = *payload.Side
	}
	rt.syncLocked()
	return nil
}

// handleSpectateLocked toggles spectator status. Only legal during
// betting; there is no cancellation mid-hand.
func (rt *RoomRuntime) handleSpectateLocked(seat *Seat) error {
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: can only spectate during betting", appErr.ErrIllegalAction)
	}
	seat.IsSpectating = !seat.IsSpectating
	if seat.IsSpectating {
		seat.HasPlacedBet = false
		seat.ClearBet()
		rt.appendLogLocked(fmt.Sprintf("%s is now spectating", seat.Username), seat.Username)
		// The seat leaving may make it the last one holding up the deal.
		if rt.allBetsPlacedLocked() {
			rt.startDealLocked()
			return nil
		}
	} else {
		rt.appendLogLocked(fmt.Sprintf("%s rejoined the table", seat.Username), seat.Username)
	}
	rt.syncLocked()
	return nil
}

func (rt *RoomRuntime) handleForceDealLocked(seat *Seat) error {
	if !seat.IsHost {
		return fmt.Errorf("%w: only the host can force a deal", appErr.ErrIllegalAction)
	}
	if rt.phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrIllegalAction)
	}
	if len(rt.activeSeatIDsLocked()) == 0 {
		return fmt.Errorf("%w: no active seats", appErr.ErrIllegalAction)
	}
	rt.startDealLocked()
	return nil
}

func (rt *RoomRuntime) handleNewRoundLocked(seat *Seat) error {
	if !seat.IsHost {
		return fmt.Errorf("%w: only the host can start a new round", appErr.ErrIllegalAction)
	}
	if rt.phase != PhaseRoundOver {
		return fmt.Errorf("%w: round is not over", appErr.ErrIllegalAction)
	}
	rt.cancelPhaseTimerLocked()
	rt.resetRoundLocked()
	return nil
}

func (rt *RoomRuntime) allBetsPlacedLocked() bool {
	active := rt.activeSeatIDsLocked()
	if len(active) == 0 {
		return false
	}
	for _, id := range active {
		if !rt.seats[id].HasPlacedBet {
			return false
		}
	}
	return true
}

// activeSeatIDsLocked returns non-spectating seats in insertion order.
// Insertion order governs both the deal queue and the turn queue.
func (rt *RoomRuntime) activeSeatIDsLocked() []int64 {
	ids := make([]int64, 0, len(rt.seatOrder))
	for _, id := range rt.seatOrder {
		if seat, ok := rt.seats[id]; ok && !seat.IsSpectating {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dealing phase

func (rt *RoomRuntime) startDealLocked() {
	active := rt.activeSeatIDsLocked()
	if len(active) == 0 {
		return
	}

	rt.phase = PhaseDealing
	rt.deck = rt.newDeck()
	rt.dealer = DealerHand{Cards: []Card{}}
	rt.holeRevealed = false
	rt.lastResult = nil
	rt.activeSeatID = 0
	rt.activeHandIndex = 0

	for _, id := range active {
		seat := rt.seats[id]
		bet := seat.mainHand().Bet
		seat.Hands = []*Hand{newHand(bet, HandPlaying)}
		seat.DealtCards = nil
		seat.Result = nil
		// A host force-start deals unlocked seats with whatever they have.
		seat.HasPlacedBet = true
	}

	// Two passes over the seats, dealer card after each pass. The second
	// dealer card is the hole card.
	rt.dealQueue = rt.dealQueue[:0]
	for pass := 0; pass < 2; pass++ {
		for _, id := range active {
			rt.dealQueue = append(rt.dealQueue, dealTarget{seatID: id})
		}
		rt.dealQueue = append(rt.dealQueue, dealTarget{})
	}
	rt.dealIndex = 0

	rt.appendLogLocked(fmt.Sprintf("Round %d: dealing", rt.roundCounter), "")
	rt.syncLocked()

	if rt.pacing.DealStep <= 0 {
		for rt.phase == PhaseDealing {
			rt.stepDealLocked()
		}
		return
	}
	rt.schedulePhaseStepLocked(rt.pacing.DealStep, rt.dealStepTick)
}

func (rt *RoomRuntime) dealStepTick() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.phase != PhaseDealing {
		return
	}
	rt.stepDealLocked()
	if rt.phase == PhaseDealing {
		rt.schedulePhaseStepLocked(rt.pacing.DealStep, rt.dealStepTick)
	}
}

func (rt *RoomRuntime) stepDealLocked() {
	if rt.dealIndex >= len(rt.dealQueue) {
		rt.finishDealLocked()
		return
	}

	target := rt.dealQueue[rt.dealIndex]
	rt.dealIndex++

	card, err := rt.deck.Draw()
	if err != nil {
		rt.abortRoundLocked("deck exhausted during deal")
		return
	}
	if target.seatID == 0 {
		rt.dealer.Cards = append(rt.dealer.Cards, card)
	} else {
		hand := rt.seats[target.seatID].mainHand()
		hand.Cards = append(hand.Cards, card)
	}
	rt.broadcastStateLocked()
}

func (rt *RoomRuntime) finishDealLocked() {
	for _, id := range rt.activeSeatIDsLocked() {
		seat := rt.seats[id]
		hand := seat.mainHand()
		hand.Classify()
		seat.DealtCards = append([]Card(nil), hand.Cards...)
	}
	rt.dealer.Score = Score(rt.dealer.Cards)

	rt.appendLogLocked("Cards dealt", "")

	// Seats already on 21 are skipped in the turn queue.
	next, handIdx := rt.nextPlayableLocked(0, 0)
	if next == 0 {
		rt.startDealerLocked()
		return
	}
	rt.phase = PhasePlaying
	rt.activeSeatID = next
	rt.activeHandIndex = handIdx
	rt.resetTurnTimerLocked()
	rt.syncLocked()
}

// Playing phase

func (rt *RoomRuntime) handleTurnActionLocked(seat *Seat, action string) error {
	if rt.phase != PhasePlaying {
		return fmt.Errorf("%w: not in playing phase", appErr.ErrIllegalAction)
	}
	if rt.activeSeatID != seat.UserID {
		return fmt.Errorf("%w: not your turn", appErr.ErrIllegalAction)
	}
	if rt.activeHandIndex >= len(seat.Hands) {
		return fmt.Errorf("%w: no active hand", appErr.ErrIllegalAction)
	}
	hand := seat.Hands[rt.activeHandIndex]
	if !hand.playable() {
		return fmt.Errorf("%w: hand is not playable", appErr.ErrIllegalAction)
	}

	switch action {
	case "hit":
		return rt.actionHitLocked(seat, hand)
	case "stand":
		return rt.actionStandLocked(seat, hand)
	case "double":
		return rt.actionDoubleLocked(seat, hand)
	case "split":
		return rt.actionSplitLocked(seat, hand)
	case "surrender":
		return rt.actionSurrenderLocked(seat, hand)
	default:
		return appErr.ErrIllegalAction
	}
}

func (rt *RoomRuntime) actionHitLocked(seat *Seat, hand *Hand) error {
	card, err := rt.deck.Draw()
	if err != nil {
		rt.abortRoundLocked("deck exhausted")
		return err
	}
	hand.Cards = append(hand.Cards, card)
	hand.Classify()

	switch hand.Status {
	case HandBust:
		rt.holeRevealed = true
		rt.appendLogLocked(fmt.Sprintf("%s busts with %d", seat.Username, hand.Score), seat.Username)
		rt.advanceTurnLocked()
	case HandStanding:
		rt.appendLogLocked(fmt.Sprintf("%s has 21", seat.Username), seat.Username)
		rt.advanceTurnLocked()
	default:
		rt.resetTurnTimerLocked()
		rt.syncLocked()
	}
	return nil
}

func (rt *RoomRuntime) actionStandLocked(seat *Seat, hand *Hand) error {
	hand.Status = HandStanding
	rt.appendLogLocked(fmt.Sprintf("%s stands with %d", seat.Username, hand.Score), seat.Username)
	rt.advanceTurnLocked()
	return nil
}

// actionDoubleLocked doubles the wager, draws exactly one card and ends
// the turn.
func (rt *RoomRuntime) actionDoubleLocked(seat *Seat, hand *Hand) error {
	if len(hand.Cards) != 2 {
		return fmt.Errorf("%w: double requires exactly two cards", appErr.ErrIllegalAction)
	}
	if seat.TotalWagered()+hand.Bet > seat.Balance {
		return fmt.Errorf("%w: cannot afford to double", appErr.ErrInvalidBet)
	}

	card, err := rt.deck.Draw()
	if err != nil {
		rt.abortRoundLocked("deck exhausted")
		return err
	}
	hand.Bet *= 2
	hand.Doubled = true
	hand.Cards = append(hand.Cards, card)
	hand.Classify()

	if hand.Status == HandBust {
		rt.holeRevealed = true
		rt.appendLogLocked(fmt.Sprintf("%s doubles and busts with %d", seat.Username, hand.Score), seat.Username)
	} else {
		hand.Status = HandStanding
		rt.appendLogLocked(fmt.Sprintf("%s doubles down on %d", seat.Username, hand.Score), seat.Username)
	}
	rt.advanceTurnLocked()
	return nil
}

// actionSplitLocked turns a starting pair into two hands with equal
// bets, deals one card to each, then plays them in order against the
// same dealer hand. No resplitting.
func (rt *RoomRuntime) actionSplitLocked(seat *Seat, hand *Hand) error {
	if len(seat.Hands) != 1 {
		return fmt.Errorf("%w: already split", appErr.ErrIllegalAction)
	}
	if len(hand.Cards) != 2 || hand.Cards[0].Rank != hand.Cards[1].Rank {
		return fmt.Errorf("%w: split requires a starting pair", appErr.ErrIllegalAction)
	}
	if seat.TotalWagered()+hand.Bet > seat.Balance {
		return fmt.Errorf("%w: cannot afford to split", appErr.ErrInvalidBet)
	}

	second := newHand(hand.Bet, HandPlaying)
	second.FromSplit = true
	second.Cards = []Card{hand.Cards[1]}
	hand.Cards = hand.Cards[:1]
	hand.FromSplit = true

	for _, h := range []*Hand{hand, second} {
		card, err := rt.deck.Draw()
		if err != nil {
			rt.abortRoundLocked("deck exhausted")
			return err
		}
		h.Cards = append(h.Cards, card)
		h.Classify()
	}
	seat.Hands = append(seat.Hands, second)
	rt.appendLogLocked(fmt.Sprintf("%s splits %ss", seat.Username, hand.Cards[0].Rank), seat.Username)

	if !hand.playable() {
		rt.advanceTurnLocked()
		return nil
	}
	rt.resetTurnTimerLocked()
	rt.syncLocked()
	return nil
}

// actionSurrenderLocked forfeits half the wager as the first action on
// an unsplit two-card hand.
func (rt *RoomRuntime) actionSurrenderLocked(seat *Seat, hand *Hand) error {
	if len(hand.Cards) != 2 || hand.FromSplit || hand.Doubled || len(seat.Hands) != 1 {
		return fmt.Errorf("%w: surrender only as first action", appErr.ErrIllegalAction)
	}
	hand.Status = HandSurrendered
	rt.appendLogLocked(fmt.Sprintf("%s surrenders", seat.Username), seat.Username)
	rt.advanceTurnLocked()
	return nil
}

// nextPlayableLocked finds the next (seat, hand) at or after the given
// position in seat insertion order with a hand still below 21.
func (rt *RoomRuntime) nextPlayableLocked(fromSeat int64, fromHand int) (int64, int) {
	active := rt.activeSeatIDsLocked()
	started := fromSeat == 0
	for _, id := range active {
		if !started {
			if id == fromSeat {
				started = true
			} else {
				continue
			}
		}
		startIdx := 0
		if id == fromSeat {
			startIdx = fromHand
		}
		seat := rt.seats[id]
		for i := startIdx; i < len(seat.Hands); i++ {
			if seat.Hands[i].playable() {
				return id, i
			}
		}
	}
	return 0, 0
}

func (rt *RoomRuntime) advanceTurnLocked() {
	next, handIdx := rt.nextPlayableLocked(rt.activeSeatID, rt.activeHandIndex+1)
	if next == 0 {
		rt.startDealerLocked()
		return
	}
	rt.activeSeatID = next
	rt.activeHandIndex = handIdx
	rt.resetTurnTimerLocked()
	rt.syncLocked()
}

// Dealer phase

func (rt *RoomRuntime) startDealerLocked() {
	rt.phase = PhaseDealer
	rt.activeSeatID = 0
	rt.activeHandIndex = 0
	rt.holeRevealed = true
	rt.cancelTurnTimerLocked()
	rt.dealer.Score = Score(rt.dealer.Cards)
	rt.appendLogLocked(fmt.Sprintf("Dealer reveals %d", rt.dealer.Score), "")
	rt.syncLocked()

	if rt.pacing.DealerStep <= 0 {
		for rt.phase == PhaseDealer {
			rt.dealerStepLocked()
		}
		return
	}
	rt.schedulePhaseStepLocked(rt.pacing.DealerStep, rt.dealerStepTick)
}

func (rt *RoomRuntime) dealerStepTick() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.phase != PhaseDealer {
		return
	}
	rt.dealerStepLocked()
	if rt.phase == PhaseDealer {
		rt.schedulePhaseStepLocked(rt.pacing.DealerStep, rt.dealerStepTick)
	}
}

// dealerStepLocked draws while below 17, standing on all 17s.
func (rt *RoomRuntime) dealerStepLocked() {
	if rt.dealer.Score >= 17 {
		rt.appendLogLocked(fmt.Sprintf("Dealer stands with %d", rt.dealer.Score), "")
		rt.finishRoundLocked()
		return
	}
	card, err := rt.deck.Draw()
	if err != nil {
		rt.abortRoundLocked("deck exhausted during dealer play")
		return
	}
	rt.dealer.Cards = append(rt.dealer.Cards, card)
	rt.dealer.Score = Score(rt.dealer.Cards)
	rt.broadcastStateLocked()
}

// Round over

func (rt *RoomRuntime) finishRoundLocked() {
	rt.phase = PhaseRoundOver
	rt.lastResult = SettleRound(rt.seats, rt.seatOrder, rt.dealer)
	for id, res := range rt.lastResult {
		rt.seats[id].Result = res
	}
	rt.appendLogLocked(fmt.Sprintf("Round %d over, dealer has %d", rt.roundCounter, rt.dealer.Score), "")
	rt.syncLocked()

	if rt.onSettled != nil {
		result := rt.lastResult
		roundNo := rt.roundCounter
		dealerScore := rt.dealer.Score
		go rt.onSettled(rt.roomID, roundNo, dealerScore, result)
	}

	if rt.pacing.RoundOverWait > 0 {
		rt.schedulePhaseStepLocked(rt.pacing.RoundOverWait, rt.roundOverTick)
	}
}

func (rt *RoomRuntime) roundOverTick() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.phase != PhaseRoundOver {
		return
	}
	rt.resetRoundLocked()
}

// resetRoundLocked returns the room to betting, re-applying kept bets
// where the refreshed balance still covers them.
func (rt *RoomRuntime) resetRoundLocked() {
	rt.roundCounter++
	rt.phase = PhaseBetting
	rt.dealer = DealerHand{Cards: []Card{}}
	rt.activeSeatID = 0
	rt.activeHandIndex = 0
	rt.holeRevealed = false
	rt.lastResult = nil
	rt.deck = nil

	for _, id := range rt.seatOrder {
		seat := rt.seats[id]
		prevMain := seat.mainHand().Bet
		if seat.mainHand().Doubled {
			prevMain /= 2
		}
		prevSides := seat.SideBets

		seat.Hands = []*Hand{newHand(0, HandBetting)}
		seat.SideBets = NewSideBetSet()
		seat.DealtCards = nil
		seat.Result = nil
		seat.HasPlacedBet = false

		if seat.IsSpectating {
			continue
		}
		if seat.KeepMainBet && prevMain > 0 {
			_ = seat.PlaceBet(prevMain, MainBet())
		}
		if seat.KeepSideBets {
			for _, name := range SideBetNames {
				if amount := prevSides[name]; amount > 0 {
					_ = seat.PlaceBet(amount, SideBet(name))
				}
			}
		}
	}

	rt.appendLogLocked(fmt.Sprintf("Round %d: place your bets", rt.roundCounter), "")
	rt.syncLocked()
}

// abortRoundLocked voids the round without settlement; all wagers are
// returned implicitly since no balance delta is ever applied.
func (rt *RoomRuntime) abortRoundLocked(reason string) {
	logger.Log.Warn("round aborted",
		zap.Int64("roomID", rt.roomID),
		zap.Int("round", rt.roundCounter),
		zap.String("reason", reason),
	)
	rt.cancelTurnTimerLocked()
	rt.cancelPhaseTimerLocked()
	rt.appendLogLocked(fmt.Sprintf("Round %d voided: %s", rt.roundCounter, reason), "")
	rt.resetRoundLocked()
}

// Turn timer

func (rt *RoomRuntime) resetTurnTimerLocked() {
	rt.cancelTurnTimerLocked()
	if rt.pacing.TurnTimeout <= 0 {
		return
	}
	rt.turnEpoch++
	epoch := rt.turnEpoch
	rt.turnTimer = time.AfterFunc(rt.pacing.TurnTimeout, func() {
		rt.onTurnTimeout(epoch)
	})
}

func (rt *RoomRuntime) onTurnTimeout(epoch int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.phase != PhasePlaying || epoch != rt.turnEpoch {
		return
	}
	seat, ok := rt.seats[rt.activeSeatID]
	if !ok || rt.activeHandIndex >= len(seat.Hands) {
		return
	}
	hand := seat.Hands[rt.activeHandIndex]
	if !hand.playable() {
		return
	}

	logger.Log.Warn("turn timeout auto-stand",
		zap.Int64("roomID", rt.roomID),
		zap.Int64("seat", rt.activeSeatID),
	)
	hand.Status = HandStanding
	rt.appendLogLocked(fmt.Sprintf("%s timed out and stands", seat.Username), seat.Username)
	rt.advanceTurnLocked()
}

func (rt *RoomRuntime) cancelTurnTimerLocked() {
	if rt.turnTimer != nil {
		rt.turnTimer.Stop()
		rt.turnTimer = nil
	}
}

func (rt *RoomRuntime) schedulePhaseStepLocked(d time.Duration, fn func()) {
	rt.cancelPhaseTimerLocked()
	rt.phaseTimer = time.AfterFunc(d, fn)
}

func (rt *RoomRuntime) cancelPhaseTimerLocked() {
	if rt.phaseTimer != nil {
		rt.phaseTimer.Stop()
		rt.phaseTimer = nil
	}
}

// Snapshots & broadcast

func (rt *RoomRuntime) appendLogLocked(message, username string) {
	entry := GameLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Message:   message,
		Username:  username,
	}
	rt.logs = append([]GameLogEntry{entry}, rt.logs...)
	if len(rt.logs) > maxLogEntries {
		rt.logs = rt.logs[:maxLogEntries]
	}
}

func (rt *RoomRuntime) nextSeqLocked() int64 {
	rt.seq++
	return rt.seq
}

// syncLocked persists the full snapshot, then broadcasts. A failed
// write is a warning: the runtime stays ahead of the store and the next
// successful write reconciles.
func (rt *RoomRuntime) syncLocked() {
	if rt.persist != nil {
		if err := rt.persist(rt.exportStateLocked(0)); err != nil {
			logger.Log.Warn("room state sync failed",
				zap.Int64("roomID", rt.roomID),
				zap.Error(errors.Join(appErr.ErrStateSync, err)),
			)
		}
	}
	rt.broadcastStateLocked()
}

func (rt *RoomRuntime) broadcastStateLocked() {
	seq := rt.nextSeqLocked()
	for userID, ch := range rt.subscribers {
		state := rt.exportStateLocked(userID)
		select {
		case ch <- OutgoingMessage{Type: "state", Seq: seq, Data: state}:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", userID),
				zap.Int64("roomID", rt.roomID),
			)
		}
	}
}

func (rt *RoomRuntime) pushStateLocked(userID int64) {
	rt.pushMessageLocked(userID, OutgoingMessage{
		Type: "state",
		Seq:  rt.nextSeqLocked(),
		Data: rt.exportStateLocked(userID),
	})
}

func (rt *RoomRuntime) pushMessageLocked(userID int64, msg OutgoingMessage) {
	if ch, ok := rt.subscribers[userID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", userID),
				zap.Int64("roomID", rt.roomID),
			)
		}
	}
}

func (rt *RoomRuntime) exportStateLocked(viewerID int64) RoomState {
	seats := make(map[int64]*Seat, len(rt.seats))
	for id, seat := range rt.seats {
		seats[id] = cloneSeat(seat)
	}

	return RoomState{
		RoomID:          rt.roomID,
		Code:            rt.code,
		Phase:           rt.phase,
		RoundCounter:    rt.roundCounter,
		ActiveSeatID:    rt.activeSeatID,
		ActiveHandIndex: rt.activeHandIndex,
		Seats:           seats,
		SeatOrder:       append([]int64(nil), rt.seatOrder...),
		Dealer:          rt.dealerViewLocked(),
		Logs:            append([]GameLogEntry(nil), rt.logs...),
		DeckRemaining:   len(rt.deck),
		AllowedActions:  rt.allowedActionsLocked(viewerID),
		Result:          rt.lastResult,
	}
}

// dealerViewLocked masks the hole card until the reveal condition.
func (rt *RoomRuntime) dealerViewLocked() DealerView {
	cards := append([]Card(nil), rt.dealer.Cards...)
	if rt.holeRevealed || rt.phase == PhaseDealer || rt.phase == PhaseRoundOver || len(cards) < 2 {
		return DealerView{Cards: cards, Score: Score(cards)}
	}
	up := cards[:1]
	return DealerView{
		Cards:      append([]Card(nil), up...),
		Score:      Score(up),
		HoleHidden: true,
	}
}

func (rt *RoomRuntime) allowedActionsLocked(viewerID int64) []string {
	seat, ok := rt.seats[viewerID]
	if !ok {
		return nil
	}

	switch rt.phase {
	case PhaseBetting:
		if seat.IsSpectating {
			return []string{"spectate"}
		}
		if seat.HasPlacedBet {
			return nil
		}
		actions := []string{"placeBet", "clearBet", "clearSideBet", "minBet", "maxBet", "spectate"}
		if seat.mainHand().Bet >= MinBet {
			actions = append(actions, "lockBet")
		}
		if seat.IsHost {
			actions = append(actions, "deal")
		}
		return actions
	case PhasePlaying:
		if rt.activeSeatID != viewerID || rt.activeHandIndex >= len(seat.Hands) {
			return nil
		}
		hand := seat.Hands[rt.activeHandIndex]
		if !hand.playable() {
			return nil
		}
		actions := []string{"hit", "stand"}
		if len(hand.Cards) == 2 && seat.TotalWagered()+hand.Bet <= seat.Balance {
			actions = append(actions, "double")
			if len(seat.Hands) == 1 && hand.Cards[0].Rank == hand.Cards[1].Rank {
				actions = append(actions, "split")
			}
		}
		if len(hand.Cards) == 2 && len(seat.Hands) == 1 && !hand.Doubled {
			actions = append(actions, "surrender")
		}
		return actions
	case PhaseRoundOver:
		if seat.IsHost {
			return []string{"newRound"}
		}
		return nil
	default:
		return nil
	}
}

func cloneSeat(seat *Seat) *Seat {
	clone := *seat
	clone.Hands = make([]*Hand, len(seat.Hands))
	for i, h := range seat.Hands {
		hc := *h
		hc.Cards = append([]Card(nil), h.Cards...)
		clone.Hands[i] = &hc
	}
	clone.SideBets = make(SideBetSet, len(seat.SideBets))
	for name, amount := range seat.SideBets {
		clone.SideBets[name] = amount
	}
	clone.DealtCards = append([]Card(nil), seat.DealtCards...)
	return &clone
}
