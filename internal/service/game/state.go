package game

type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseBetting   Phase = "betting"
	PhaseDealing   Phase = "dealing"
	PhasePlaying   Phase = "playing"
	PhaseDealer    Phase = "dealer"
	PhaseRoundOver Phase = "roundOver"
)

// Seat is a participant's slot in a room. Spectating seats are excluded
// from dealing, betting requirements and turn order.
type Seat struct {
	UserID       int64      `json:"userId,string"`
	Username     string     `json:"username"`
	IsHost       bool       `json:"isHost"`
	IsSpectating bool       `json:"isSpectating"`
	HasPlacedBet bool       `json:"hasPlacedBet"`
	Hands        []*Hand    `json:"hands"`
	SideBets     SideBetSet `json:"sideBets"`

	// DealtCards freezes the first two cards at deal time; side bets are
	// evaluated against these, never the post-hit hand.
	DealtCards []Card `json:"dealtCards,omitempty"`

	// Balance is the seat's balance snapshot used for affordability
	// checks; refreshed from the wallet after each settlement.
	Balance int64 `json:"balance"`

	KeepMainBet  bool        `json:"keepMainBet"`
	KeepSideBets bool        `json:"keepSideBets"`
	Result       *SeatResult `json:"result,omitempty"`
}

type DealerHand struct {
	Cards []Card `json:"cards"`
	Score int    `json:"score"`
}

// DealerView is the dealer hand as broadcast: the hole card stays hidden
// until the dealer phase, round over, or a seat bust.
type DealerView struct {
	Cards      []Card `json:"cards"`
	Score      int    `json:"score"`
	HoleHidden bool   `json:"holeHidden"`
}

type GameLogEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	Username  string `json:"username,omitempty"`
}

// RoomState is the single authoritative snapshot broadcast to every
// participant and persisted wholesale on each transition.
type RoomState struct {
	RoomID          int64           `json:"roomId,string"`
	Code            string          `json:"code"`
	Phase           Phase           `json:"phase"`
	RoundCounter    int             `json:"roundCounter"`
	ActiveSeatID    int64           `json:"activeSeatId,string"`
	ActiveHandIndex int             `json:"activeHandIndex"`
	Seats           map[int64]*Seat `json:"seats"`
	SeatOrder       []int64         `json:"seatOrder"`
	Dealer          DealerView      `json:"dealer"`
	Logs            []GameLogEntry  `json:"logs"`
	DeckRemaining   int             `json:"deckRemaining"`
	AllowedActions  []string        `json:"allowedActions"`
	Result          RoundResult     `json:"result,omitempty"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}
