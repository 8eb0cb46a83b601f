package persist

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// capturedSender records outbound messages for inspection.
type capturedSender struct {
	mu   sync.Mutex
	msgs []Outbound
}

func (c *capturedSender) send(msg Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capturedSender) readRequests(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.RequestReadKey == key {
			n++
		}
	}
	return n
}

func newTestBridge() (*BridgeStore, *capturedSender) {
	s := &capturedSender{}
	b := NewBridgeStore(s.send, time.UTC, zerolog.Nop())
	return b, s
}

func respond(b *BridgeStore, key string, value *string) {
	b.HandleInbound(Inbound{Key: key, Value: value})
}

// TestBridgeReadBlocksUntilResponse: a read for an unseen key parks until
// HandleInbound delivers the correlated response.
func TestBridgeReadBlocksUntilResponse(t *testing.T) {
	b, sender := newTestBridge()

	done := make(chan *AttemptRecord, 1)
	go func() {
		rec, err := b.DailyAttempt(context.Background())
		if err != nil {
			t.Errorf("DailyAttempt: %v", err)
		}
		done <- rec
	}()

	// Wait for the outbound read request, then answer it.
	deadline := time.After(2 * time.Second)
	for sender.readRequests(KeyDailyAttempt) == 0 {
		select {
		case <-deadline:
			t.Fatal("read request never dispatched")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	raw, _ := json.Marshal(AttemptRecord{PuzzleID: "geo-001", CluesRevealed: 2})
	v := string(raw)
	respond(b, KeyDailyAttempt, &v)

	select {
	case rec := <-done:
		if rec == nil || rec.PuzzleID != "geo-001" {
			t.Fatalf("resolved record = %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read never resolved")
	}
}

// TestBridgeAbsentKeyResolvesNil: a null-valued response means the key
// does not exist remotely; the answer is cached so later reads return
// immediately.
func TestBridgeAbsentKeyResolvesNil(t *testing.T) {
	b, sender := newTestBridge()

	done := make(chan *AttemptRecord, 1)
	go func() {
		rec, _ := b.QuickPlayAttempt(context.Background())
		done <- rec
	}()
	deadline := time.After(2 * time.Second)
	for sender.readRequests(KeyQuickPlayAttempt) == 0 {
		select {
		case <-deadline:
			t.Fatal("read request never dispatched")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	respond(b, KeyQuickPlayAttempt, nil)

	if rec := <-done; rec != nil {
		t.Fatalf("absent key returned %+v", rec)
	}

	// Cached: no second outbound request.
	if rec, err := b.QuickPlayAttempt(context.Background()); err != nil || rec != nil {
		t.Fatalf("cached read = %v, %v", rec, err)
	}
	if n := sender.readRequests(KeyQuickPlayAttempt); n != 1 {
		t.Errorf("outbound read requests = %d, want 1", n)
	}
}

// TestBridgeSharedInflightRead: concurrent reads of one missing key share
// a single outbound request and all resolve together.
func TestBridgeSharedInflightRead(t *testing.T) {
	b, sender := newTestBridge()

	const readers = 5
	var wg sync.WaitGroup
	results := make(chan []string, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := b.PlayedPuzzles(context.Background())
			if err != nil {
				t.Errorf("PlayedPuzzles: %v", err)
			}
			results <- ids
		}()
	}

	deadline := time.After(2 * time.Second)
	for sender.readRequests(KeyPlayed) == 0 {
		select {
		case <-deadline:
			t.Fatal("read request never dispatched")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	// Give every reader a chance to join the waiter list before
	// responding; late joiners would otherwise hit the mirror anyway.
	time.Sleep(10 * time.Millisecond)

	v := `["p1","p2"]`
	respond(b, KeyPlayed, &v)
	wg.Wait()

	for i := 0; i < readers; i++ {
		if ids := <-results; len(ids) != 2 {
			t.Errorf("reader got %v, want 2 ids", ids)
		}
	}
	if n := sender.readRequests(KeyPlayed); n != 1 {
		t.Errorf("outbound read requests = %d, want 1 shared request", n)
	}
}

// TestBridgeReadHonorsContext: an unanswered read can be abandoned via
// the caller's context without wedging other keys.
func TestBridgeReadHonorsContext(t *testing.T) {
	b, _ := newTestBridge()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.DailyAttempt(ctx); err == nil {
		t.Fatal("expected context error for unanswered read")
	}

	// Other keys are unaffected: answer one and read it.
	v := `{"hardMode":true,"reducedNoise":false}`
	respond(b, KeySettings, &v)
	s, err := b.Settings(context.Background())
	if err != nil || !s.HardMode {
		t.Fatalf("settings after abandoned read = %+v, %v", s, err)
	}
}

// TestBridgeWriteUpdatesMirrorAndDispatches: writes are visible locally
// at once and produce exactly one outbound write message.
func TestBridgeWriteUpdatesMirrorAndDispatches(t *testing.T) {
	b, sender := newTestBridge()

	rec := AttemptRecord{PuzzleID: "sci-002", CluesRevealed: 1, Status: "in-progress"}
	if err := b.SaveDailyAttempt(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := b.DailyAttempt(context.Background())
	if err != nil || got == nil || got.PuzzleID != "sci-002" {
		t.Fatalf("mirror read = %+v, %v", got, err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	writes := 0
	for _, m := range sender.msgs {
		if m.RequestWriteKey == KeyDailyAttempt {
			writes++
			var onWire AttemptRecord
			if err := json.Unmarshal([]byte(m.Value), &onWire); err != nil {
				t.Fatalf("outbound value not JSON: %v", err)
			}
			if onWire.PuzzleID != "sci-002" {
				t.Errorf("outbound value = %+v", onWire)
			}
		}
	}
	if writes != 1 {
		t.Errorf("outbound writes = %d, want 1", writes)
	}
}

// TestBridgeAggregateStatsPush: an unsolicited aggregateStats message
// overwrites the stats mirror wholesale.
func TestBridgeAggregateStatsPush(t *testing.T) {
	b, _ := newTestBridge()

	// Local bookkeeping first.
	v := "null"
	respond(b, KeyStats, &v)
	_ = b.UpdateStats(context.Background(), 1, 100, "geography", true)

	push := Stats{Played: 40, Won: 31, CurrentStreak: 7, MaxStreak: 12, BestScore: 100, TotalScore: 2100,
		CluesDistribution: map[string]int{"1": 10, "2": 14, "3": 7},
		Categories:        map[string]CategoryStats{}}
	raw, _ := json.Marshal(push)
	b.HandleInbound(Inbound{AggregateStats: raw})

	s, err := b.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Played != 40 || s.Won != 31 || s.CurrentStreak != 7 {
		t.Errorf("stats not overwritten: %+v", s)
	}
}

// TestBridgeClearAllDispatchesDeletes: every key is marked absent locally
// and a delete goes out per key.
func TestBridgeClearAllDispatchesDeletes(t *testing.T) {
	b, sender := newTestBridge()

	if err := b.ClearAll(context.Background()); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	// All reads now resolve from the mirror without new requests.
	if rec, err := b.DailyAttempt(context.Background()); err != nil || rec != nil {
		t.Fatalf("daily after clear = %v, %v", rec, err)
	}

	sender.mu.Lock()
	deletes := 0
	for _, m := range sender.msgs {
		if m.RequestDeleteKey != "" {
			deletes++
		}
	}
	sender.mu.Unlock()
	if deletes != len(Keys()) {
		t.Errorf("outbound deletes = %d, want %d", deletes, len(Keys()))
	}
}
