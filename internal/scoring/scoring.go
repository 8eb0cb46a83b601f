// internal/scoring/scoring.go
//
// Point values for a won puzzle attempt.
// The base score is set by how many clues the player needed; every wrong
// guess before the winning one costs a flat penalty. Scores never drop
// below a minimum so a long struggle still pays something.

package scoring

const (
	baseOneClue    = 100
	baseTwoClues   = 85
	baseThreeClues = 70

	wrongGuessPenalty = 5

	// MinScore is the floor applied after penalties.
	MinScore = 10
)

// Score maps (clues used, total guesses) to a point value.
//
// cluesUsed is clamped to [1,3]; the clue count saturates at 3 during
// play, so a win after many wrong guesses still lands in the 70 bucket.
// totalGuesses includes the winning guess, so the penalty is
// (totalGuesses-1)*5. Pure and deterministic.
func Score(cluesUsed, totalGuesses int) int {
	base := baseThreeClues
	switch {
	case cluesUsed <= 1:
		base = baseOneClue
	case cluesUsed == 2:
		base = baseTwoClues
	}

	wrong := totalGuesses - 1
	if wrong < 0 {
		wrong = 0
	}

	s := base - wrong*wrongGuessPenalty
	if s < MinScore {
		s = MinScore
	}
	return s
}
