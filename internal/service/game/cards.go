package game

import (
	"math/rand"

	appErr "blackjack-service/pkg/errors"

	"github.com/google/uuid"
)

type Suit string

const (
	SuitSpades   Suit = "spades"
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
)

var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

var Ranks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// Card is immutable once dealt. ID distinguishes otherwise identical
// cards across rounds so clients can key animations on it.
type Card struct {
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit"`
	ID   string `json:"id"`
}

// Value returns the blackjack point value with aces counted high.
// Soft-ace reduction happens in Score.
func (c Card) Value() int {
	switch c.Rank {
	case RankAce:
		return 11
	case RankTen, RankJack, RankQueen, RankKing:
		return 10
	case RankTwo:
		return 2
	case RankThree:
		return 3
	case RankFour:
		return 4
	case RankFive:
		return 5
	case RankSix:
		return 6
	case RankSeven:
		return 7
	case RankEight:
		return 8
	case RankNine:
		return 9
	default:
		return 0
	}
}

// order returns the rank's position in the A..K cycle, ace high.
// Used by the 21+3 straight check; ace-low straights are handled there.
func (c Card) order() int {
	switch c.Rank {
	case RankAce:
		return 14
	case RankJack:
		return 11
	case RankQueen:
		return 12
	case RankKing:
		return 13
	default:
		return c.Value()
	}
}

func (c Card) IsRed() bool {
	return c.Suit == SuitHearts || c.Suit == SuitDiamonds
}

type Deck []Card

// NewShuffledDeck builds the 52 canonical rank x suit cards and applies a
// Fisher-Yates shuffle. A fresh deck is created per round; there is no
// mid-round reshuffle.
func NewShuffledDeck() Deck {
	deck := make(Deck, 0, 52)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, Card{Rank: rank, Suit: suit, ID: uuid.NewString()})
		}
	}
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// Draw removes and returns the top card. An exhausted deck is fatal to
// the round; the caller aborts and a fresh deck is built at next deal.
func (d *Deck) Draw() (Card, error) {
	if len(*d) == 0 {
		return Card{}, appErr.ErrEmptyDeck
	}
	card := (*d)[len(*d)-1]
	*d = (*d)[:len(*d)-1]
	return card, nil
}
