package errors

import "errors"

// Auth / account
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrUserBanned         = errors.New("user is banned")
	ErrUserNotFound       = errors.New("user not found")
)

// Rooms
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomAccessDenied = errors.New("room access denied")
	ErrRoomClosed       = errors.New("room is closed")
	ErrRoomFull         = errors.New("room is full")
)

// Game engine
var (
	ErrEmptyDeck     = errors.New("deck is empty")
	ErrInvalidBet    = errors.New("invalid bet")
	ErrBetTooLow     = errors.New("bet below table minimum")
	ErrIllegalAction = errors.New("illegal action")
	ErrStateSync     = errors.New("room state sync failed")
)

// Wallet / settlement
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidWalletPayload = errors.New("invalid wallet payload")
	ErrBonusNotReady        = errors.New("bonus not available yet")
	ErrRoundAlreadySettled  = errors.New("round already settled")
	ErrSettlementValidation = errors.New("settlement validation failed")
)
