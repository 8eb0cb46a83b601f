// internal/persist/store.go
//
// Persistence port for the game core.
// Defines:
//   - Store: the interface the state machine depends on. Two conforming
//     implementations live in this package: LocalStore (synchronous,
//     sqlite-backed) and BridgeStore (asynchronous, remote-backed with a
//     read-through mirror).
//   - AttemptRecord: the wire shape of a persisted attempt. Set-valued
//     fields travel as ordered lists; the game layer rebuilds its sets
//     on load.
//   - Stats / Settings: aggregate player records with documented
//     zero-valued defaults for reads before any write.
//
// Storage keys are fixed strings shared by both implementations so a
// player's data keeps its shape across deployments.

package persist

import "context"

// Storage keys. Two compound slots (daily and quick-play attempt) plus
// the aggregate records.
const (
	KeyDailyAttempt     = "triclue-daily"
	KeyQuickPlayAttempt = "triclue-quickplay"
	KeyStats            = "triclue-stats"
	KeyPlayed           = "triclue-played"
	KeyCompletedDailies = "triclue-completed-dailies"
	KeySettings         = "triclue-settings"
)

// Keys lists every storage key, in a stable order. Used by ClearAll and
// by the bridge host's prefetch.
func Keys() []string {
	return []string{
		KeyDailyAttempt,
		KeyQuickPlayAttempt,
		KeyStats,
		KeyPlayed,
		KeyCompletedDailies,
		KeySettings,
	}
}

// AttemptRecord is the persisted form of one puzzle attempt.
// CorrectPositions and WrongPositionLetters are ordered lists on the
// wire; the in-memory attempt keeps them as sets.
type AttemptRecord struct {
	PuzzleID             string   `json:"puzzleId"`
	Date                 string   `json:"date"`
	Guesses              []string `json:"guesses"`
	CluesRevealed        int      `json:"cluesRevealed"`
	CorrectPositions     []int    `json:"correctPositions"`
	WrongPositionLetters []string `json:"wrongPositionLetters"`
	Status               string   `json:"status"`
	Score                int      `json:"score"`
}

// CategoryStats accumulates per-category play counts and score totals.
type CategoryStats struct {
	Played int `json:"played"`
	Score  int `json:"score"`
}

// Stats is the aggregate, per-player record. Mutated only when an
// attempt completes with a win; reset only by ClearAll.
type Stats struct {
	Played            int                      `json:"played"`
	Won               int                      `json:"won"`
	CurrentStreak     int                      `json:"currentStreak"`
	MaxStreak         int                      `json:"maxStreak"`
	BestScore         int                      `json:"bestScore"`
	TotalScore        int                      `json:"totalScore"`
	LastPlayedDate    string                   `json:"lastPlayedDate"`
	CluesDistribution map[string]int           `json:"cluesDistribution"`
	Categories        map[string]CategoryStats `json:"categories"`
}

// DefaultStats returns the shape served for reads before any write:
// all counters zero, distribution buckets present but empty.
func DefaultStats() Stats {
	return Stats{
		CluesDistribution: map[string]int{"1": 0, "2": 0, "3": 0},
		Categories:        map[string]CategoryStats{},
	}
}

// Settings holds presentation preferences the core round-trips but does
// not interpret.
type Settings struct {
	HardMode     bool `json:"hardMode"`
	ReducedNoise bool `json:"reducedNoise"`
}

// Store is the persistence port. The state machine depends on this
// interface only, never on a concrete implementation. Implementations
// must tolerate reads before any write and make ClearAll idempotent.
type Store interface {
	// Attempt slots. A nil record with a nil error means "no attempt
	// stored".
	DailyAttempt(ctx context.Context) (*AttemptRecord, error)
	SaveDailyAttempt(ctx context.Context, rec AttemptRecord) error
	ClearDailyAttempt(ctx context.Context) error
	QuickPlayAttempt(ctx context.Context) (*AttemptRecord, error)
	SaveQuickPlayAttempt(ctx context.Context, rec AttemptRecord) error
	ClearQuickPlayAttempt(ctx context.Context) error

	// Aggregate statistics.
	Stats(ctx context.Context) (Stats, error)
	SaveStats(ctx context.Context, s Stats) error
	// UpdateStats folds one completed attempt into the aggregates,
	// recomputing the streak against the stored lastPlayedDate.
	UpdateStats(ctx context.Context, cluesUsed, score int, category string, won bool) error

	// Append-only id sets.
	PlayedPuzzles(ctx context.Context) ([]string, error)
	AddPlayedPuzzle(ctx context.Context, id string) error
	CompletedDailies(ctx context.Context) ([]string, error)
	AddCompletedDaily(ctx context.Context, id string) error

	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// ClearAll removes every known key. Safe to call at any time.
	ClearAll(ctx context.Context) error
}
