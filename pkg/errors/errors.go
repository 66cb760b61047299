package errors

import "errors"

// Auth / identity
var (
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrInvalidLoginCode = errors.New("invalid login code")
	ErrLoginCodeExpired = errors.New("login code expired")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserBanned       = errors.New("user is banned")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Wallet
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Session lookup
var (
	ErrGameNotFound  = errors.New("game not found")
	ErrTableNotFound = errors.New("table not found")
)

// Engine error taxonomy. Every engine verb returns one of these (possibly
// wrapped) and leaves the session untouched on failure.
var (
	// Acting out of turn, or before a required precondition (e.g. rolling twice).
	ErrNotYourTurn = errors.New("not your turn")
	// The actor cannot pay for the requested action.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// The tile, seat or player is not eligible for the requested effect.
	ErrInvalidTarget = errors.New("invalid target")
	// The action is not legal in the current state (check facing a bet,
	// building without a monopoly, raising below minimum, ...).
	ErrIllegalAction = errors.New("illegal action")
	// Responding to a trade/auction that is no longer pending.
	ErrAlreadyResolved = errors.New("already resolved")
)

// Lobby
var (
	ErrGameFull       = errors.New("game is full")
	ErrGameStarted    = errors.New("game already started")
	ErrTableFull      = errors.New("table is full")
	ErrAlreadySeated  = errors.New("already seated")
	ErrNotEnoughSeats = errors.New("not enough players")
	ErrInvalidBuyIn   = errors.New("invalid buy-in")
	ErrNotHost        = errors.New("only the host can do that")
	ErrUnknownMap     = errors.New("unknown map")
)
