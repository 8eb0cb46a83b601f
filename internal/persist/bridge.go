// internal/persist/bridge.go
//
// Asynchronous Store implementation for the platform-hosted deployment.
// All reads are served from an in-memory mirror; a read for a key the
// mirror has never seen blocks until the remote authority answers the
// correlated read request. Writes update the mirror synchronously and
// dispatch a fire-and-forget message; the authority's confirmation is
// never awaited. There is no timeout or retry on the round trip — a
// response that never arrives parks that key's waiters only (callers can
// still bail out through their context).
//
// Concurrent reads of the same missing key share a single in-flight
// request: the first waiter sends, later waiters just join the list, and
// HandleInbound resolves them all together.

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/triclue/triclue/internal/daily"
)

// BridgeStore is the remote-backed Store with a read-through mirror.
type BridgeStore struct {
	mu      sync.Mutex
	mirror  map[string]*string      // key → raw JSON; nil value = confirmed absent
	waiters map[string][]chan *string

	send Sender
	loc  *time.Location
	now  func() time.Time
	log  zerolog.Logger
}

// NewBridgeStore returns a BridgeStore that dispatches outbound messages
// through send. loc sets the day boundary for streak arithmetic.
func NewBridgeStore(send Sender, loc *time.Location, log zerolog.Logger) *BridgeStore {
	return &BridgeStore{
		mirror:  make(map[string]*string),
		waiters: make(map[string][]chan *string),
		send:    send,
		loc:     loc,
		now:     time.Now,
		log:     log,
	}
}

// HandleInbound routes one message from the remote authority: either a
// read response, which populates the mirror and resolves every waiter
// parked on that key, or an aggregate-stats push, which overwrites the
// stats mirror through SetStats.
func (b *BridgeStore) HandleInbound(msg Inbound) {
	if len(msg.AggregateStats) > 0 {
		var s Stats
		if err := json.Unmarshal(msg.AggregateStats, &s); err != nil {
			b.log.Warn().Err(err).Msg("discarding malformed aggregate stats push")
			return
		}
		b.SetStats(s)
		return
	}
	if msg.Key == "" {
		return
	}

	b.mu.Lock()
	b.mirror[msg.Key] = msg.Value
	pending := b.waiters[msg.Key]
	delete(b.waiters, msg.Key)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- msg.Value
	}
}

// SetStats overwrites the local stats mirror with an externally-computed
// aggregate. This is the single merge point for authoritative stats; the
// bridge never layers partial remote updates on top of local ones, which
// would double-count.
func (b *BridgeStore) SetStats(s Stats) {
	raw, err := json.Marshal(s)
	if err != nil {
		b.log.Warn().Err(err).Msg("encode stats overwrite")
		return
	}
	v := string(raw)
	b.mu.Lock()
	b.mirror[KeyStats] = &v
	b.mu.Unlock()
}

// Prefetch requests every given key and waits until the mirror holds an
// answer (present or absent) for each. Must run before first use so
// gameplay reads never stall mid-guess.
func (b *BridgeStore) Prefetch(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := b.read(ctx, k); err != nil {
			return fmt.Errorf("prefetch %s: %w", k, err)
		}
	}
	return nil
}

// ----------------------------- raw mirror ----------------------------------

// read returns the mirrored value for key, requesting it from the remote
// authority on first miss. A nil result means the key is absent.
func (b *BridgeStore) read(ctx context.Context, key string) (*string, error) {
	b.mu.Lock()
	if v, ok := b.mirror[key]; ok {
		b.mu.Unlock()
		return v, nil
	}
	ch := make(chan *string, 1)
	first := len(b.waiters[key]) == 0
	b.waiters[key] = append(b.waiters[key], ch)
	b.mu.Unlock()

	if first {
		if err := b.send(Outbound{RequestReadKey: key}); err != nil {
			b.log.Warn().Err(err).Str("key", key).Msg("read request not sent")
		}
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// write updates the mirror optimistically and dispatches the value to
// the remote authority without waiting for confirmation.
func (b *BridgeStore) write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s := string(raw)
	b.mu.Lock()
	b.mirror[key] = &s
	b.mu.Unlock()

	if err := b.send(Outbound{RequestWriteKey: key, Value: s}); err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("write not dispatched, mirror updated only")
	}
	return nil
}

func (b *BridgeStore) del(key string) error {
	b.mu.Lock()
	b.mirror[key] = nil
	b.mu.Unlock()

	if err := b.send(Outbound{RequestDeleteKey: key}); err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("delete not dispatched, mirror updated only")
	}
	return nil
}

func (b *BridgeStore) readJSON(ctx context.Context, key string, dest any) (bool, error) {
	v, err := b.read(ctx, key)
	if err != nil || v == nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(*v), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// --------------------------- attempt slots ---------------------------------

func (b *BridgeStore) attempt(ctx context.Context, key string) (*AttemptRecord, error) {
	var rec AttemptRecord
	ok, err := b.readJSON(ctx, key, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (b *BridgeStore) DailyAttempt(ctx context.Context) (*AttemptRecord, error) {
	return b.attempt(ctx, KeyDailyAttempt)
}

func (b *BridgeStore) SaveDailyAttempt(ctx context.Context, rec AttemptRecord) error {
	return b.write(KeyDailyAttempt, rec)
}

func (b *BridgeStore) ClearDailyAttempt(ctx context.Context) error {
	return b.del(KeyDailyAttempt)
}

func (b *BridgeStore) QuickPlayAttempt(ctx context.Context) (*AttemptRecord, error) {
	return b.attempt(ctx, KeyQuickPlayAttempt)
}

func (b *BridgeStore) SaveQuickPlayAttempt(ctx context.Context, rec AttemptRecord) error {
	return b.write(KeyQuickPlayAttempt, rec)
}

func (b *BridgeStore) ClearQuickPlayAttempt(ctx context.Context) error {
	return b.del(KeyQuickPlayAttempt)
}

// ------------------------------- stats -------------------------------------

func (b *BridgeStore) Stats(ctx context.Context) (Stats, error) {
	s := DefaultStats()
	if _, err := b.readJSON(ctx, KeyStats, &s); err != nil {
		return DefaultStats(), err
	}
	return s, nil
}

func (b *BridgeStore) SaveStats(ctx context.Context, s Stats) error {
	return b.write(KeyStats, s)
}

// UpdateStats keeps the same local bookkeeping as the synchronous store
// so the session's own view is immediate; the remote authority performs
// the authoritative increment and pushes the merged aggregate back
// through SetStats.
func (b *BridgeStore) UpdateStats(ctx context.Context, cluesUsed, score int, category string, won bool) error {
	s, err := b.Stats(ctx)
	if err != nil {
		return err
	}
	applyUpdate(&s, cluesUsed, score, category, won, daily.DateKey(b.now(), b.loc))
	return b.SaveStats(ctx, s)
}

// ------------------------------ id sets ------------------------------------

func (b *BridgeStore) idSet(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if _, err := b.readJSON(ctx, key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (b *BridgeStore) addID(ctx context.Context, key, id string) error {
	ids, err := b.idSet(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return b.write(key, append(ids, id))
}

func (b *BridgeStore) PlayedPuzzles(ctx context.Context) ([]string, error) {
	return b.idSet(ctx, KeyPlayed)
}

func (b *BridgeStore) AddPlayedPuzzle(ctx context.Context, id string) error {
	return b.addID(ctx, KeyPlayed, id)
}

func (b *BridgeStore) CompletedDailies(ctx context.Context) ([]string, error) {
	return b.idSet(ctx, KeyCompletedDailies)
}

func (b *BridgeStore) AddCompletedDaily(ctx context.Context, id string) error {
	return b.addID(ctx, KeyCompletedDailies, id)
}

// ----------------------------- settings ------------------------------------

func (b *BridgeStore) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	if _, err := b.readJSON(ctx, KeySettings, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (b *BridgeStore) SaveSettings(ctx context.Context, s Settings) error {
	return b.write(KeySettings, s)
}

// ClearAll marks every known key absent in the mirror and dispatches the
// deletes. Idempotent.
func (b *BridgeStore) ClearAll(ctx context.Context) error {
	for _, k := range Keys() {
		if err := b.del(k); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*BridgeStore)(nil)
