// internal/persist/stats.go
//
// Aggregate-update rules shared by both Store implementations so the
// state machine sees identical behavior over either back-end.

package persist

import (
	"strconv"

	"github.com/triclue/triclue/internal/daily"
)

// applyUpdate folds one completed attempt into s.
//
// Streak rule on a win, comparing dateKey to the stored lastPlayedDate:
//   - same day            → streak unchanged
//   - exactly one day on  → streak+1
//   - anything else       → streak reset to 1
func applyUpdate(s *Stats, cluesUsed, score int, category string, won bool, dateKey string) {
	if s.CluesDistribution == nil {
		s.CluesDistribution = map[string]int{"1": 0, "2": 0, "3": 0}
	}
	if s.Categories == nil {
		s.Categories = map[string]CategoryStats{}
	}

	s.Played++
	if !won {
		return
	}

	s.Won++
	switch dateKey {
	case s.LastPlayedDate:
		// second win the same day, streak already counted
	case daily.NextDateKey(s.LastPlayedDate):
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.MaxStreak {
		s.MaxStreak = s.CurrentStreak
	}
	s.LastPlayedDate = dateKey

	if score > s.BestScore {
		s.BestScore = score
	}
	s.TotalScore += score

	if cluesUsed < 1 {
		cluesUsed = 1
	}
	if cluesUsed > 3 {
		cluesUsed = 3
	}
	s.CluesDistribution[strconv.Itoa(cluesUsed)]++

	if category != "" {
		cs := s.Categories[category]
		cs.Played++
		cs.Score += score
		s.Categories[category] = cs
	}
}
