// internal/httpserver/routes.go
//
// Game, stats, and settings routes. All run with optional auth: a
// logged-in user plays under their user id, a guest under the anonymous
// cookie id. Either way the player gets a namespaced local store and an
// in-memory session per mode.
//
// Game-rule failures (wrong length, duplicate guess, already won, ...)
// are recoverable by design: they come back as {"success":false,
// "message":...} with HTTP 200 for the UI to display, never as 5xx.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/triclue/triclue/internal/game"
	"github.com/triclue/triclue/internal/persist"
	"github.com/triclue/triclue/internal/puzzle"
)

// mountGame registers all gameplay routes.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/daily/new", s.handleDailyNew)
	r.Get("/daily/completed", s.handleDailyCompleted)
	r.Post("/game/new", s.handleQuickPlayNew)
	r.Post("/game/guess", s.handleGuess)
	r.Post("/game/reset", s.handleReset)
	r.Get("/game/state", s.handleState)
	r.Get("/stats", s.handleStats)
	r.Post("/stats/reset", s.handleStatsReset)
	r.Get("/settings", s.handleGetSettings)
	r.Post("/settings", s.handleSaveSettings)
}

// storeFor returns the player's namespaced synchronous store.
func (s *Server) storeFor(playerID string) persist.Store {
	return persist.NewLocalStore(s.db, playerID, s.loc)
}

// sessionFor returns the player's session for mode, creating one if
// needed.
func (s *Server) sessionFor(playerID string, mode game.Mode) *game.Session {
	if sess, ok := s.sessions.get(playerID, mode); ok {
		return sess
	}
	sess := game.NewSession(s.storeFor(playerID), s.loc, log.With().Str("player", playerID).Logger())
	s.sessions.put(playerID, mode, sess)
	return sess
}

// ----------------------------- payloads ------------------------------------

// stateRes is the presentation view of an active attempt. The factoid
// and word only appear once the puzzle is solved.
type stateRes struct {
	Success              bool                  `json:"success"`
	PuzzleID             string                `json:"puzzleId"`
	Category             string                `json:"category"`
	WordLength           int                   `json:"wordLength"`
	Clues                []string              `json:"clues"`
	Guesses              []string              `json:"guesses"`
	RevealedLetters      []game.RevealedLetter `json:"revealedLetters"`
	WrongPositionLetters []string              `json:"wrongPositionLetters"`
	Status               game.Status           `json:"status"`
	Score                int                   `json:"score"`
	Word                 string                `json:"word,omitempty"`
	Factoid              string                `json:"factoid,omitempty"`
}

func sessionState(sess *game.Session) stateRes {
	a := sess.Attempt()
	p := sess.Puzzle()
	res := stateRes{
		Success:              true,
		PuzzleID:             p.ID,
		Category:             p.Category,
		WordLength:           sess.TargetLength(),
		Clues:                sess.Clues(),
		Guesses:              a.Guesses,
		RevealedLetters:      sess.RevealedLetters(),
		WrongPositionLetters: sess.WrongPositionLettersToDisplay(),
		Status:               a.Status,
		Score:                a.Score,
	}
	if a.Status == game.StatusWon {
		res.Word = p.Word
		res.Factoid = p.Factoid
	}
	return res
}

// failRes is the structured recoverable failure defined by the error
// taxonomy; the UI renders Message as an advisory.
type failRes struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeFailure maps a game error to its advisory payload.
func writeFailure(w http.ResponseWriter, err error) {
	_ = json.NewEncoder(w).Encode(failRes{Success: false, Message: err.Error()})
}

// ------------------------------ handlers -----------------------------------

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	p, err := s.selector.Daily(time.Now())
	if err != nil {
		log.Error().Err(err).Msg("daily selection")
		http.Error(w, `{"error":"no_daily_puzzle"}`, http.StatusInternalServerError)
		return
	}
	sess := s.sessionFor(playerID, game.ModeDaily)
	if _, err := sess.Initialize(r.Context(), p, game.ModeDaily); err != nil {
		log.Error().Err(err).Msg("initialize daily")
		http.Error(w, `{"error":"init_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sessionState(sess))
}

func (s *Server) handleDailyCompleted(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	sess := s.sessionFor(playerID, game.ModeDaily)
	_ = json.NewEncoder(w).Encode(map[string]bool{"completed": sess.DailyCompleted(r.Context())})
}

type quickPlayReq struct {
	Category string `json:"category"`
}

func (s *Server) handleQuickPlayNew(w http.ResponseWriter, r *http.Request) {
	var req quickPlayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	playerID := s.playerID(w, r)
	store := s.storeFor(playerID)

	played, err := store.PlayedPuzzles(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("read played set, selecting from full pool")
	}
	p, err := s.selector.QuickPlay(req.Category, played, time.Now())
	if err != nil {
		if errors.Is(err, puzzle.ErrEmptyPool) {
			writeFailure(w, err)
			return
		}
		http.Error(w, `{"error":"selection_failed"}`, http.StatusInternalServerError)
		return
	}

	sess := s.sessionFor(playerID, game.ModeQuickPlay)
	// A new quick-play pick replaces any persisted in-progress attempt.
	sess.Reset(r.Context())
	if _, err := sess.Initialize(r.Context(), p, game.ModeQuickPlay); err != nil {
		log.Error().Err(err).Msg("initialize quick play")
		http.Error(w, `{"error":"init_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sessionState(sess))
}

type guessReq struct {
	Mode  string `json:"mode"` // "daily" | "quickplay"
	Guess string `json:"guess"`
}

type guessRes struct {
	Success bool `json:"success"`
	*game.GuessResult
	Factoid string `json:"factoid,omitempty"`
	Word    string `json:"word,omitempty"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	playerID := s.playerID(w, r)
	sess, ok := s.sessions.get(playerID, parseMode(req.Mode))
	if !ok {
		writeFailure(w, game.ErrNotInitialized)
		return
	}
	result, err := sess.SubmitGuess(r.Context(), req.Guess)
	if err != nil {
		writeFailure(w, err)
		return
	}
	res := guessRes{Success: true, GuessResult: result}
	if result.Win {
		res.Factoid = sess.Puzzle().Factoid
		res.Word = sess.Puzzle().Word
	}
	_ = json.NewEncoder(w).Encode(res)
}

type resetReq struct {
	Mode string `json:"mode"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	playerID := s.playerID(w, r)
	mode := parseMode(req.Mode)
	if sess, ok := s.sessions.get(playerID, mode); ok {
		sess.Reset(r.Context())
	} else if mode == game.ModeQuickPlay {
		// No live session; still honor the persisted-slot clear.
		if err := s.storeFor(playerID).ClearQuickPlayAttempt(r.Context()); err != nil {
			log.Warn().Err(err).Msg("clear quick-play slot")
		}
	}
	s.sessions.drop(playerID, mode)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	sess, ok := s.sessions.get(playerID, parseMode(r.URL.Query().Get("mode")))
	if !ok || sess.Attempt() == nil {
		writeFailure(w, game.ErrNotInitialized)
		return
	}
	_ = json.NewEncoder(w).Encode(sessionState(sess))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	stats, err := s.storeFor(playerID).Stats(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("read stats")
	}
	_ = json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	if err := s.storeFor(playerID).ClearAll(r.Context()); err != nil {
		log.Warn().Err(err).Msg("clear all")
		writeFailure(w, errors.New("reset failed"))
		return
	}
	s.sessions.drop(playerID, game.ModeDaily)
	s.sessions.drop(playerID, game.ModeQuickPlay)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	playerID := s.playerID(w, r)
	settings, err := s.storeFor(playerID).Settings(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("read settings")
	}
	_ = json.NewEncoder(w).Encode(settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings persist.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	playerID := s.playerID(w, r)
	if err := s.storeFor(playerID).SaveSettings(r.Context(), settings); err != nil {
		log.Warn().Err(err).Msg("save settings")
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func parseMode(m string) game.Mode {
	if m == string(game.ModeDaily) {
		return game.ModeDaily
	}
	return game.ModeQuickPlay
}
