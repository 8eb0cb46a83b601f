package scoring

import "testing"

// TestScoreFixedPoints checks the documented reference values.
func TestScoreFixedPoints(t *testing.T) {
	cases := []struct {
		clues, guesses, want int
	}{
		{1, 1, 100},
		{2, 1, 85},
		{3, 1, 70},
		{2, 4, 70},  // 85 - 3*5
		{3, 3, 60},  // 70 - 2*5
		{3, 10, 25}, // 70 - 9*5
	}
	for _, c := range cases {
		if got := Score(c.clues, c.guesses); got != c.want {
			t.Errorf("Score(%d,%d) = %d, want %d", c.clues, c.guesses, got, c.want)
		}
	}
}

// TestScoreFloor verifies the minimum score holds no matter how many
// wrong guesses pile up.
func TestScoreFloor(t *testing.T) {
	for _, guesses := range []int{15, 50, 1000} {
		if got := Score(3, guesses); got != MinScore {
			t.Errorf("Score(3,%d) = %d, want floor %d", guesses, got, MinScore)
		}
	}
}

// TestScoreNonIncreasing: for a fixed clue count, more guesses never
// score higher.
func TestScoreNonIncreasing(t *testing.T) {
	for clues := 1; clues <= 3; clues++ {
		prev := Score(clues, 1)
		for guesses := 2; guesses <= 30; guesses++ {
			got := Score(clues, guesses)
			if got > prev {
				t.Fatalf("Score(%d,%d) = %d increased from %d", clues, guesses, got, prev)
			}
			prev = got
		}
	}
}

// TestScoreClampsClues: out-of-range clue counts collapse into the
// nearest valid bucket rather than panicking.
func TestScoreClampsClues(t *testing.T) {
	if got := Score(0, 1); got != 100 {
		t.Errorf("Score(0,1) = %d, want 100", got)
	}
	if got := Score(7, 1); got != 70 {
		t.Errorf("Score(7,1) = %d, want 70", got)
	}
}
