// internal/puzzle/select.go
//
// Puzzle selection for the two play modes.
//   - Daily: deterministic by calendar date, days-since-epoch modulo the
//     rotation size. The day boundary location is configurable per
//     deployment (local time on the web host, UTC on the bridge host).
//   - Quick play: uniform random from the category pool minus puzzles
//     already played; when the player has exhausted the pool, repeats
//     become possible rather than selection failing.
//
// Past daily puzzles unlock into quick play as the rotation ages; see
// UnlockedDailies for the exact policy.

package puzzle

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/triclue/triclue/internal/daily"
)

// DefaultEpoch is the launch date of the daily rotation.
var DefaultEpoch = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

// ArchiveCategory is the quick-play pseudo-category holding unlocked past
// daily puzzles.
const ArchiveCategory = "archive"

// Selector chooses puzzles from a Library.
type Selector struct {
	Lib   *Library
	Loc   *time.Location
	Epoch time.Time
}

// NewSelector builds a Selector with the default epoch.
func NewSelector(lib *Library, loc *time.Location) *Selector {
	return &Selector{Lib: lib, Loc: loc, Epoch: DefaultEpoch}
}

// Daily returns the puzzle for now's calendar date. Same date, same pool
// size, same puzzle — every call.
func (s *Selector) Daily(now time.Time) (*Puzzle, error) {
	if len(s.Lib.Daily) == 0 {
		return nil, ErrEmptyPool
	}
	idx := daily.Index(s.Epoch, now, s.Loc, len(s.Lib.Daily))
	return &s.Lib.Daily[idx], nil
}

// PickQuickPlay draws uniformly from pool excluding playedIDs. If every
// pool entry has been played, it draws from the full pool instead —
// graceful exhaustion, not an error. ErrEmptyPool only when pool itself
// is empty.
func PickQuickPlay(pool []Puzzle, playedIDs []string) (*Puzzle, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	fresh := lo.Filter(pool, func(p Puzzle, _ int) bool {
		return !slices.Contains(playedIDs, p.ID)
	})
	if len(fresh) == 0 {
		fresh = pool
	}
	return pickRandom(fresh)
}

// QuickPlay picks a quick-play puzzle from the named category.
// The archive pseudo-category serves unlocked past dailies.
func (s *Selector) QuickPlay(category string, playedIDs []string, now time.Time) (*Puzzle, error) {
	if category == ArchiveCategory {
		return PickQuickPlay(s.UnlockedDailies(now), playedIDs)
	}
	pool, ok := s.Lib.Categories[category]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, ErrEmptyPool)
	}
	return PickQuickPlay(pool, playedIDs)
}

// UnlockedDailies returns the past daily puzzles available to quick play.
// Once the rotation has run at least one full cycle
// (daysSinceEpoch >= pool size) every puzzle except today's is unlocked;
// before that, only the indices already visited this cycle. Today's
// puzzle is never in the pool.
func (s *Selector) UnlockedDailies(now time.Time) []Puzzle {
	total := len(s.Lib.Daily)
	if total == 0 {
		return nil
	}
	days := daily.DaysSince(s.Epoch, now, s.Loc)
	if days <= 0 {
		return nil
	}
	today := daily.Index(s.Epoch, now, s.Loc, total)

	var out []Puzzle
	for i, p := range s.Lib.Daily {
		if i == today {
			continue
		}
		if days >= total || i < today {
			out = append(out, p)
		}
	}
	return out
}
