// cmd/bridge/main.go
//
// Platform-hosted deployment. The process holds a single websocket to
// the platform authority, which owns both durable storage and the
// player-facing UI. Storage traffic rides the persist wire contract
// behind a BridgeStore; player actions arrive as typed frames and run
// against in-memory sessions exactly like the web deployment's.
//
// Ordering matters at startup: the read pump must be draining frames
// before Prefetch runs, otherwise the prefetch reads would wait on
// responses nobody is receiving.

package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/triclue/triclue/internal/game"
	"github.com/triclue/triclue/internal/persist"
	"github.com/triclue/triclue/internal/puzzle"
)

// frame is the single message shape on the authority socket.
type frame struct {
	Type string `json:"type"` // "storage" | "action" | "result"
	ID   string `json:"id,omitempty"`

	// Type "storage".
	Storage *json.RawMessage `json:"storage,omitempty"`

	// Type "action".
	Action   string `json:"action,omitempty"` // newDaily | newQuickPlay | guess | reset | state
	Category string `json:"category,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Guess    string `json:"guess,omitempty"`

	// Type "result".
	Payload any `json:"payload,omitempty"`
}

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	lib, err := puzzle.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load puzzle library")
	}

	url := getEnv("AUTHORITY_URL", "ws://localhost:8787/bridge")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", url).Msg("failed to dial authority")
	}
	defer conn.Close()
	log.Info().Str("url", url).Msg("connected to authority")

	b := newBridge(conn, lib)

	// Pump first, then prefetch: reads resolve through the pump.
	go b.readPump()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.store.Prefetch(ctx, persist.Keys()...); err != nil {
		log.Fatal().Err(err).Msg("storage prefetch failed")
	}
	log.Info().Msg("storage mirror warm, accepting actions")

	<-b.done
	log.Info().Msg("authority connection closed, exiting")
}

// bridge owns the socket, the mirror-backed store, and the player's two
// sessions. The authority hosts one player per connection.
type bridge struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	store    *persist.BridgeStore
	selector *puzzle.Selector

	// actionMu serializes player actions; sessions are not safe for
	// concurrent use.
	actionMu sync.Mutex
	sessions map[game.Mode]*game.Session

	done chan struct{}
}

func newBridge(conn *websocket.Conn, lib *puzzle.Library) *bridge {
	b := &bridge{
		conn:     conn,
		sessions: make(map[game.Mode]*game.Session),
		done:     make(chan struct{}),
	}
	// The authority has no notion of the player's locale; day boundaries
	// are UTC on this deployment.
	b.store = persist.NewBridgeStore(b.sendStorage, time.UTC, log.With().Str("component", "bridge-store").Logger())
	b.selector = puzzle.NewSelector(lib, time.UTC)
	return b
}

// sendStorage is the persist.Sender: one storage request per frame,
// serialized on the socket.
func (b *bridge) sendStorage(msg persist.Outbound) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	payload := json.RawMessage(raw)
	return b.writeFrame(frame{Type: "storage", Storage: &payload})
}

func (b *bridge) writeFrame(f frame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(f)
}

// readPump drains the socket until it closes. Storage responses route
// straight into the store; actions run on their own goroutine so a
// guess that triggers a blocking mirror read cannot deadlock the pump
// it depends on.
func (b *bridge) readPump() {
	defer close(b.done)
	for {
		var f frame
		if err := b.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("read pump")
			}
			return
		}
		switch f.Type {
		case "storage":
			if f.Storage == nil {
				continue
			}
			var in persist.Inbound
			if err := json.Unmarshal(*f.Storage, &in); err != nil {
				log.Warn().Err(err).Msg("malformed storage frame")
				continue
			}
			b.store.HandleInbound(in)
		case "action":
			go b.handleAction(f)
		default:
			log.Warn().Str("type", f.Type).Msg("unknown frame type")
		}
	}
}

func (b *bridge) session(mode game.Mode) *game.Session {
	if s, ok := b.sessions[mode]; ok {
		return s
	}
	s := game.NewSession(b.store, time.UTC, log.With().Str("mode", string(mode)).Logger())
	b.sessions[mode] = s
	return s
}

func parseMode(m string) game.Mode {
	if m == string(game.ModeDaily) {
		return game.ModeDaily
	}
	return game.ModeQuickPlay
}

// handleAction executes one player action and replies with a correlated
// result frame. Game-rule failures reply {success:false, message}.
func (b *bridge) handleAction(f frame) {
	b.actionMu.Lock()
	defer b.actionMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := b.runAction(ctx, f)
	if err := b.writeFrame(frame{Type: "result", ID: f.ID, Payload: payload}); err != nil {
		log.Warn().Err(err).Str("action", f.Action).Msg("result not sent")
	}
}

func (b *bridge) runAction(ctx context.Context, f frame) any {
	fail := func(msg string) any {
		return map[string]any{"success": false, "message": msg}
	}

	switch f.Action {
	case "newDaily":
		p, err := b.selector.Daily(time.Now())
		if err != nil {
			return fail(err.Error())
		}
		sess := b.session(game.ModeDaily)
		if _, err := sess.Initialize(ctx, p, game.ModeDaily); err != nil {
			return fail(err.Error())
		}
		return stateView(sess)

	case "newQuickPlay":
		played, err := b.store.PlayedPuzzles(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("read played set, selecting from full pool")
		}
		p, err := b.selector.QuickPlay(f.Category, played, time.Now())
		if err != nil {
			return fail(err.Error())
		}
		sess := b.session(game.ModeQuickPlay)
		sess.Reset(ctx)
		if _, err := sess.Initialize(ctx, p, game.ModeQuickPlay); err != nil {
			return fail(err.Error())
		}
		return stateView(sess)

	case "guess":
		sess, ok := b.sessions[parseMode(f.Mode)]
		if !ok {
			return fail(game.ErrNotInitialized.Error())
		}
		result, err := sess.SubmitGuess(ctx, f.Guess)
		if err != nil {
			return fail(err.Error())
		}
		out := map[string]any{"success": true, "result": result}
		if result.Win {
			out["word"] = sess.Puzzle().Word
			out["factoid"] = sess.Puzzle().Factoid
		}
		return out

	case "reset":
		mode := parseMode(f.Mode)
		if sess, ok := b.sessions[mode]; ok {
			sess.Reset(ctx)
			delete(b.sessions, mode)
		} else if mode == game.ModeQuickPlay {
			if err := b.store.ClearQuickPlayAttempt(ctx); err != nil {
				log.Warn().Err(err).Msg("clear quick-play slot")
			}
		}
		return map[string]any{"success": true}

	case "state":
		sess, ok := b.sessions[parseMode(f.Mode)]
		if !ok || sess.Attempt() == nil {
			return fail(game.ErrNotInitialized.Error())
		}
		return stateView(sess)

	default:
		return fail("unknown action: " + f.Action)
	}
}

// stateView mirrors the web deployment's attempt view.
func stateView(sess *game.Session) any {
	a := sess.Attempt()
	p := sess.Puzzle()
	out := map[string]any{
		"success":              true,
		"puzzleId":             p.ID,
		"category":             p.Category,
		"wordLength":           sess.TargetLength(),
		"clues":                sess.Clues(),
		"guesses":              a.Guesses,
		"revealedLetters":      sess.RevealedLetters(),
		"wrongPositionLetters": sess.WrongPositionLettersToDisplay(),
		"status":               a.Status,
		"score":                a.Score,
	}
	if a.Status == game.StatusWon {
		out["word"] = p.Word
		out["factoid"] = p.Factoid
	}
	return out
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
