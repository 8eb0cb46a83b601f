// internal/game/types.go
//
// Core type definitions for the guess-evaluation state machine.
// Defines:
//   - Mark: per-letter result of a guess (correct/wrongPosition/wrong).
//   - LetterMark: one evaluator entry, in guess order.
//   - Status: attempt lifecycle (in-progress → won, terminal).
//   - Attempt: mutable state for one puzzle attempt, with true set types
//     for positions and letters (serialized as ordered lists at the
//     persistence boundary).

package game

import (
	"sort"

	"github.com/triclue/triclue/internal/persist"
)

// Mark classifies a single guessed letter.
// Possible values:
//   - "correct":       letter is in the target at this position.
//   - "wrongPosition": letter is in the target, but elsewhere.
//   - "wrong":         letter is not in the (remaining) target at all.
type Mark string

const (
	MarkCorrect       Mark = "correct"
	MarkWrongPosition Mark = "wrongPosition"
	MarkWrong         Mark = "wrong"
)

// LetterMark is one entry of an evaluation, in guess order.
type LetterMark struct {
	Letter   string `json:"letter"`
	Status   Mark   `json:"status"`
	Position int    `json:"position"`
}

// Status is the attempt lifecycle state. There is no lost state;
// guessing is unlimited.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusWon        Status = "won"
)

// Attempt holds the mutable state of one puzzle attempt. Once Status is
// StatusWon no field mutates again.
type Attempt struct {
	PuzzleID             string
	Date                 string // calendar day of the persisted slot
	Guesses              []string
	CluesRevealed        int // in [1,3], never decreases
	CorrectPositions     map[int]struct{}
	WrongPositionLetters map[string]struct{}
	Status               Status
	Score                int
}

func newAttempt(puzzleID, date string) *Attempt {
	return &Attempt{
		PuzzleID:             puzzleID,
		Date:                 date,
		Guesses:              []string{},
		CluesRevealed:        1,
		CorrectPositions:     map[int]struct{}{},
		WrongPositionLetters: map[string]struct{}{},
		Status:               StatusInProgress,
	}
}

// encodeAttempt converts the in-memory attempt to its wire shape,
// flattening both sets into sorted lists. This is the single place the
// set→list transformation happens.
func encodeAttempt(a *Attempt) persist.AttemptRecord {
	positions := make([]int, 0, len(a.CorrectPositions))
	for i := range a.CorrectPositions {
		positions = append(positions, i)
	}
	sort.Ints(positions)

	letters := make([]string, 0, len(a.WrongPositionLetters))
	for l := range a.WrongPositionLetters {
		letters = append(letters, l)
	}
	sort.Strings(letters)

	return persist.AttemptRecord{
		PuzzleID:             a.PuzzleID,
		Date:                 a.Date,
		Guesses:              append([]string{}, a.Guesses...),
		CluesRevealed:        a.CluesRevealed,
		CorrectPositions:     positions,
		WrongPositionLetters: letters,
		Status:               string(a.Status),
		Score:                a.Score,
	}
}

// decodeAttempt rebuilds the set types from a persisted record.
func decodeAttempt(rec persist.AttemptRecord) *Attempt {
	a := newAttempt(rec.PuzzleID, rec.Date)
	a.Guesses = append(a.Guesses, rec.Guesses...)
	if rec.CluesRevealed > 0 {
		a.CluesRevealed = rec.CluesRevealed
	}
	for _, i := range rec.CorrectPositions {
		a.CorrectPositions[i] = struct{}{}
	}
	for _, l := range rec.WrongPositionLetters {
		a.WrongPositionLetters[l] = struct{}{}
	}
	if rec.Status != "" {
		a.Status = Status(rec.Status)
	}
	a.Score = rec.Score
	return a
}
