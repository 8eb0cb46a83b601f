// internal/game/session.go
//
// State machine for a single puzzle attempt.
// Responsibilities:
//   - Initialize fresh attempts or restore persisted ones (discarding
//     stale state whose puzzle id no longer matches).
//   - Validate and apply guesses: normalize, length check, duplicate
//     check, two-pass evaluation, clue advancement, win detection.
//   - Compute the score once at win and fold it into the aggregate
//     statistics through the persistence port.
//   - Expose the derived views the presentation layer renders.
//
// Notes:
//   - The session depends only on the persist.Store interface; either
//     back-end (synchronous local or asynchronous bridge) plugs in.
//   - Persistence failures degrade to logged warnings: gameplay
//     continues in memory, trading durability for availability.
//   - Status transitions run through a small FSM; "won" is terminal and
//     freezes the attempt.

package game

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/triclue/triclue/internal/daily"
	"github.com/triclue/triclue/internal/persist"
	"github.com/triclue/triclue/internal/puzzle"
	"github.com/triclue/triclue/internal/scoring"
)

// MaxClues is the number of clues every puzzle carries; CluesRevealed
// saturates here and never triggers any out-of-guesses failure.
const MaxClues = 3

// Mode selects which persisted slot an attempt lives in.
type Mode string

const (
	ModeDaily     Mode = "daily"
	ModeQuickPlay Mode = "quickplay"
)

const eventWin = "win"

// Session owns one puzzle attempt from initialization to terminal state.
// One instance per (player, mode); not safe for concurrent use — each
// player session is a single logical thread of control.
type Session struct {
	store persist.Store
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger

	mode    Mode
	puzzle  *puzzle.Puzzle
	target  string // letters-only uppercased form of the word
	attempt *Attempt
	status  *fsm.FSM
}

// NewSession builds a session over the given persistence port. loc sets
// the day boundary for daily staleness checks.
func NewSession(store persist.Store, loc *time.Location, log zerolog.Logger) *Session {
	return &Session{store: store, loc: loc, now: time.Now, log: log}
}

func newStatusFSM(current Status) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: eventWin, Src: []string{string(StatusInProgress)}, Dst: string(StatusWon)},
		},
		fsm.Callbacks{},
	)
}

// Initialize loads p into the session. A persisted attempt for the
// matching slot is restored verbatim when its puzzle id equals p.ID;
// anything else is discarded as stale and a fresh attempt is created and
// persisted immediately. Returns the resulting attempt.
func (s *Session) Initialize(ctx context.Context, p *puzzle.Puzzle, mode Mode) (*Attempt, error) {
	s.mode = mode
	s.puzzle = p
	s.target = puzzle.LettersOnly(p.Word)

	prior, err := s.loadSlot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("puzzle", p.ID).Msg("prior attempt unreadable, starting fresh")
		prior = nil
	}

	if prior != nil && prior.PuzzleID == p.ID {
		s.attempt = decodeAttempt(*prior)
	} else {
		s.attempt = newAttempt(p.ID, daily.DateKey(s.now(), s.loc))
		s.persistAttempt(ctx)
	}
	s.status = newStatusFSM(s.attempt.Status)
	return s.attempt, nil
}

// GuessResult is what one submission returns for rendering.
type GuessResult struct {
	Win                  bool         `json:"win"`
	Marks                []LetterMark `json:"marks"`
	CluesRevealed        int          `json:"cluesRevealed"`
	CorrectPositions     []int        `json:"correctPositions"`
	WrongPositionLetters []string     `json:"wrongPositionLetters"`
	Score                int          `json:"score"`
	Status               Status       `json:"status"`
}

// SubmitGuess normalizes and applies one guess.
//
// Failure modes, all recoverable and state-preserving:
//   - ErrNotInitialized when no puzzle is loaded.
//   - ErrAlreadyWon after the terminal state.
//   - *LengthMismatchError when the normalized guess length differs from
//     the letters-only target length.
//   - ErrDuplicateGuess when the guess was already submitted (checked
//     before evaluation, so the visible history stays duplicate-free and
//     the score stays deterministic from guess count).
//
// On a non-winning guess the evaluation is folded into the revealed
// sets and one more clue is revealed (capped at MaxClues). On a win the
// attempt freezes, the score is computed once, and the aggregates and id
// sets are updated. The attempt is persisted before returning either
// way.
func (s *Session) SubmitGuess(ctx context.Context, raw string) (*GuessResult, error) {
	if s.puzzle == nil || s.attempt == nil {
		return nil, ErrNotInitialized
	}
	if s.status.Current() == string(StatusWon) {
		return nil, ErrAlreadyWon
	}

	guess := strings.ToUpper(strings.TrimSpace(raw))
	if got := utf8.RuneCountInString(guess); got != utf8.RuneCountInString(s.target) {
		return nil, &LengthMismatchError{Want: utf8.RuneCountInString(s.target), Got: got}
	}
	if slices.Contains(s.attempt.Guesses, guess) {
		return nil, ErrDuplicateGuess
	}

	s.attempt.Guesses = append(s.attempt.Guesses, guess)
	marks := Evaluate(guess, s.target)

	if guess == s.target {
		if err := s.status.Event(ctx, eventWin); err != nil {
			s.log.Warn().Err(err).Msg("status transition")
		}
		s.attempt.Status = StatusWon
		for i := 0; i < utf8.RuneCountInString(s.target); i++ {
			s.attempt.CorrectPositions[i] = struct{}{}
		}
		s.attempt.Score = scoring.Score(s.attempt.CluesRevealed, len(s.attempt.Guesses))
		s.recordWin(ctx)
	} else {
		for _, m := range marks {
			switch m.Status {
			case MarkCorrect:
				s.attempt.CorrectPositions[m.Position] = struct{}{}
			case MarkWrongPosition:
				s.attempt.WrongPositionLetters[m.Letter] = struct{}{}
			}
		}
		if s.attempt.CluesRevealed < MaxClues {
			s.attempt.CluesRevealed++
		}
	}

	s.persistAttempt(ctx)

	rec := encodeAttempt(s.attempt)
	return &GuessResult{
		Win:                  s.attempt.Status == StatusWon,
		Marks:                marks,
		CluesRevealed:        rec.CluesRevealed,
		CorrectPositions:     rec.CorrectPositions,
		WrongPositionLetters: rec.WrongPositionLetters,
		Score:                rec.Score,
		Status:               s.attempt.Status,
	}, nil
}

// recordWin updates aggregate statistics and the played/completed sets.
// Best effort: a failing port never fails the guess.
func (s *Session) recordWin(ctx context.Context) {
	a := s.attempt
	if err := s.store.UpdateStats(ctx, a.CluesRevealed, a.Score, s.puzzle.Category, true); err != nil {
		s.log.Warn().Err(err).Msg("update stats")
	}
	if s.mode == ModeDaily {
		if err := s.store.AddCompletedDaily(ctx, s.puzzle.ID); err != nil {
			s.log.Warn().Err(err).Msg("record completed daily")
		}
	} else {
		if err := s.store.AddPlayedPuzzle(ctx, s.puzzle.ID); err != nil {
			s.log.Warn().Err(err).Msg("record played puzzle")
		}
	}
}

// RevealedLetter maps a known-correct position to its target letter.
type RevealedLetter struct {
	Position int    `json:"position"`
	Letter   string `json:"letter"`
}

// RevealedLetters is the derived view of CorrectPositions for the
// presentation layer; it is never persisted.
func (s *Session) RevealedLetters() []RevealedLetter {
	if s.attempt == nil {
		return nil
	}
	runes := []rune(s.target)
	rec := encodeAttempt(s.attempt)
	out := make([]RevealedLetter, 0, len(rec.CorrectPositions))
	for _, i := range rec.CorrectPositions {
		if i >= 0 && i < len(runes) {
			out = append(out, RevealedLetter{Position: i, Letter: string(runes[i])})
		}
	}
	return out
}

// WrongPositionLettersToDisplay filters the wrong-position set down to
// letters not yet fully accounted for by correct-position reveals: a
// letter whose revealed count meets its total occurrence count in the
// target is suppressed. Recomputed from current CorrectPositions on
// every call, never cached.
func (s *Session) WrongPositionLettersToDisplay() []string {
	if s.attempt == nil {
		return nil
	}
	runes := []rune(s.target)

	total := make(map[string]int, len(runes))
	for _, r := range runes {
		total[string(r)]++
	}
	revealed := make(map[string]int, len(s.attempt.CorrectPositions))
	for i := range s.attempt.CorrectPositions {
		if i >= 0 && i < len(runes) {
			revealed[string(runes[i])]++
		}
	}

	rec := encodeAttempt(s.attempt)
	out := make([]string, 0, len(rec.WrongPositionLetters))
	for _, l := range rec.WrongPositionLetters {
		if revealed[l] < total[l] {
			out = append(out, l)
		}
	}
	return out
}

// Attempt returns the current attempt state, nil before Initialize.
func (s *Session) Attempt() *Attempt { return s.attempt }

// Puzzle returns the loaded puzzle, nil before Initialize.
func (s *Session) Puzzle() *puzzle.Puzzle { return s.puzzle }

// Clues returns the clue strings revealed so far, in order.
func (s *Session) Clues() []string {
	if s.puzzle == nil || s.attempt == nil {
		return nil
	}
	n := s.attempt.CluesRevealed
	if n > len(s.puzzle.Clues) {
		n = len(s.puzzle.Clues)
	}
	return s.puzzle.Clues[:n]
}

// TargetLength returns the letters-only length of the loaded word.
func (s *Session) TargetLength() int { return utf8.RuneCountInString(s.target) }

// Reset discards the in-memory attempt. Quick-play attempts also clear
// their persisted slot; the daily slot is never cleared by reset, only
// overwritten by a new day's Initialize.
func (s *Session) Reset(ctx context.Context) {
	if s.mode == ModeQuickPlay {
		if err := s.store.ClearQuickPlayAttempt(ctx); err != nil {
			s.log.Warn().Err(err).Msg("clear quick-play slot")
		}
	}
	s.puzzle = nil
	s.target = ""
	s.attempt = nil
	s.status = nil
}

// DailyCompleted reports whether the persisted daily slot holds a win
// for the current calendar day.
func (s *Session) DailyCompleted(ctx context.Context) bool {
	rec, err := s.store.DailyAttempt(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("read daily slot")
		return false
	}
	return rec != nil &&
		rec.Date == daily.DateKey(s.now(), s.loc) &&
		rec.Status == string(StatusWon)
}

func (s *Session) loadSlot(ctx context.Context) (*persist.AttemptRecord, error) {
	if s.mode == ModeDaily {
		return s.store.DailyAttempt(ctx)
	}
	return s.store.QuickPlayAttempt(ctx)
}

func (s *Session) persistAttempt(ctx context.Context) {
	rec := encodeAttempt(s.attempt)
	var err error
	if s.mode == ModeDaily {
		err = s.store.SaveDailyAttempt(ctx, rec)
	} else {
		err = s.store.SaveQuickPlayAttempt(ctx, rec)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("puzzle", s.attempt.PuzzleID).Msg("persist attempt, continuing in memory")
	}
}
