// internal/game/evaluate.go
//
// Per-letter guess evaluation using the classic two-pass algorithm so
// duplicate letters are handled correctly: every target letter can be
// consumed at most once, by an exact match first, then by the leftmost
// unmatched occurrence.

package game

// Evaluate compares guess to target and returns one LetterMark per guess
// character, in guess order. Both inputs must be equal-length
// letters-only strings (the session checks length upstream).
//
// Pass 1 marks exact matches and counts the remaining target letters.
// Pass 2 resolves the rest: wrongPosition while unconsumed occurrences
// of the letter remain, wrong otherwise. A letter appearing once in the
// target is never credited twice.
//
// Pure and deterministic; identical inputs always yield the identical
// result.
func Evaluate(guess, target string) []LetterMark {
	guessRunes := []rune(guess)
	targetRunes := []rune(target)
	n := len(guessRunes)
	out := make([]LetterMark, n)

	remaining := make(map[rune]int, n)
	for i := 0; i < n && i < len(targetRunes); i++ {
		if guessRunes[i] == targetRunes[i] {
			out[i] = LetterMark{Letter: string(guessRunes[i]), Status: MarkCorrect, Position: i}
		} else {
			remaining[targetRunes[i]]++
		}
	}

	for i := 0; i < n; i++ {
		if out[i].Status == MarkCorrect {
			continue
		}
		r := guessRunes[i]
		mark := MarkWrong
		if remaining[r] > 0 {
			mark = MarkWrongPosition
			remaining[r]--
		}
		out[i] = LetterMark{Letter: string(r), Status: mark, Position: i}
	}
	return out
}
