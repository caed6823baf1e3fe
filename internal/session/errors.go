package session

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrEmptyTopic        = errors.New("topic is required")
	ErrNoPlayers         = errors.New("at least one player is required")
	ErrTooManyPlayers    = errors.New("too many players")
	ErrUnknownTier       = errors.New("unknown skill tier")
	ErrUnknownMode       = errors.New("unknown problem source mode")
	ErrNotFinished       = errors.New("session is not finished")

	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another user")
	ErrSessionBusy     = errors.New("session is busy")
	ErrQuotaExceeded   = errors.New("generative quota exceeded")
	ErrPlayerIndex     = errors.New("player index out of range")
)
