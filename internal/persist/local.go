// internal/persist/local.go
//
// Synchronous Store implementation over a sqlite key-value table.
// This backs the standalone web host: one database file, rows namespaced
// by player id, values stored as JSON strings. Every operation completes
// before returning; there is no cache to keep coherent.

package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/triclue/triclue/internal/daily"
)

// EnsureSchema creates the key-value table. Idempotent; the host calls
// it once at startup.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS kv (
            player     TEXT NOT NULL,
            key        TEXT NOT NULL,
            value      TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            PRIMARY KEY (player, key)
        );`)
	if err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

// LocalStore is the synchronous back-end. Each instance is scoped to one
// player; keys collide only within that namespace.
type LocalStore struct {
	db     *sql.DB
	player string
	loc    *time.Location
	now    func() time.Time
}

// NewLocalStore returns a Store over db scoped to player. loc sets the
// day boundary used for streak arithmetic.
func NewLocalStore(db *sql.DB, player string, loc *time.Location) *LocalStore {
	return &LocalStore{db: db, player: player, loc: loc, now: time.Now}
}

// ----------------------------- raw KV --------------------------------------

func (l *LocalStore) get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE player=? AND key=?`, l.player, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (l *LocalStore) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = l.db.ExecContext(ctx, `
        INSERT INTO kv (player, key, value, updated_at) VALUES (?,?,?,?)
        ON CONFLICT(player, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		l.player, key, string(raw), l.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (l *LocalStore) del(ctx context.Context, key string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM kv WHERE player=? AND key=?`, l.player, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// --------------------------- attempt slots ---------------------------------

func (l *LocalStore) attempt(ctx context.Context, key string) (*AttemptRecord, error) {
	var rec AttemptRecord
	ok, err := l.get(ctx, key, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (l *LocalStore) DailyAttempt(ctx context.Context) (*AttemptRecord, error) {
	return l.attempt(ctx, KeyDailyAttempt)
}

func (l *LocalStore) SaveDailyAttempt(ctx context.Context, rec AttemptRecord) error {
	return l.set(ctx, KeyDailyAttempt, rec)
}

func (l *LocalStore) ClearDailyAttempt(ctx context.Context) error {
	return l.del(ctx, KeyDailyAttempt)
}

func (l *LocalStore) QuickPlayAttempt(ctx context.Context) (*AttemptRecord, error) {
	return l.attempt(ctx, KeyQuickPlayAttempt)
}

func (l *LocalStore) SaveQuickPlayAttempt(ctx context.Context, rec AttemptRecord) error {
	return l.set(ctx, KeyQuickPlayAttempt, rec)
}

func (l *LocalStore) ClearQuickPlayAttempt(ctx context.Context) error {
	return l.del(ctx, KeyQuickPlayAttempt)
}

// ------------------------------- stats -------------------------------------

func (l *LocalStore) Stats(ctx context.Context) (Stats, error) {
	s := DefaultStats()
	if _, err := l.get(ctx, KeyStats, &s); err != nil {
		return DefaultStats(), err
	}
	return s, nil
}

func (l *LocalStore) SaveStats(ctx context.Context, s Stats) error {
	return l.set(ctx, KeyStats, s)
}

func (l *LocalStore) UpdateStats(ctx context.Context, cluesUsed, score int, category string, won bool) error {
	s, err := l.Stats(ctx)
	if err != nil {
		return err
	}
	applyUpdate(&s, cluesUsed, score, category, won, daily.DateKey(l.now(), l.loc))
	return l.SaveStats(ctx, s)
}

// ------------------------------ id sets ------------------------------------

func (l *LocalStore) idSet(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if _, err := l.get(ctx, key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (l *LocalStore) addID(ctx context.Context, key, id string) error {
	ids, err := l.idSet(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return l.set(ctx, key, append(ids, id))
}

func (l *LocalStore) PlayedPuzzles(ctx context.Context) ([]string, error) {
	return l.idSet(ctx, KeyPlayed)
}

func (l *LocalStore) AddPlayedPuzzle(ctx context.Context, id string) error {
	return l.addID(ctx, KeyPlayed, id)
}

func (l *LocalStore) CompletedDailies(ctx context.Context) ([]string, error) {
	return l.idSet(ctx, KeyCompletedDailies)
}

func (l *LocalStore) AddCompletedDaily(ctx context.Context, id string) error {
	return l.addID(ctx, KeyCompletedDailies, id)
}

// ----------------------------- settings ------------------------------------

func (l *LocalStore) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	if _, err := l.get(ctx, KeySettings, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (l *LocalStore) SaveSettings(ctx context.Context, s Settings) error {
	return l.set(ctx, KeySettings, s)
}

// ClearAll removes every known key for this player. Idempotent.
func (l *LocalStore) ClearAll(ctx context.Context) error {
	for _, k := range Keys() {
		if err := l.del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*LocalStore)(nil)
