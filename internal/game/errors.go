// internal/game/errors.go
//
// The recoverable error taxonomy of the game core. None of these are
// fatal: hosts convert them to a {success:false, message} payload for
// the presentation layer and the session stays usable.

package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized: a guess arrived before any puzzle was loaded.
	ErrNotInitialized = errors.New("no puzzle loaded")
	// ErrAlreadyWon: a guess arrived after the attempt reached its
	// terminal state.
	ErrAlreadyWon = errors.New("puzzle already solved")
	// ErrDuplicateGuess: the normalized guess was already submitted.
	ErrDuplicateGuess = errors.New("guess already attempted")
)

// LengthMismatchError reports a guess whose normalized length differs
// from the letters-only target length. Want carries the required length
// so the message can state it.
type LengthMismatchError struct {
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("guess must be %d letters, got %d", e.Want, e.Got)
}
