package problem

import "errors"

var (
	// ErrSourceUnavailable means the problem source could not be reached or answered with a failure.
	ErrSourceUnavailable = errors.New("problem source unavailable")
	// ErrCountMismatch means the source returned a different number of problems than players.
	ErrCountMismatch = errors.New("problem count does not match player count")
	// ErrCatalogExhausted means no unconsumed catalog problem is left for a player.
	ErrCatalogExhausted = errors.New("problem catalog exhausted")
)
