package puzzle

import (
	"errors"
	"testing"
	"time"
)

func testLibrary(t *testing.T, dailyCount int) *Library {
	t.Helper()
	lib := &Library{Categories: map[string][]Puzzle{}}
	for i := 0; i < dailyCount; i++ {
		lib.Daily = append(lib.Daily, Puzzle{
			ID:       "daily-" + string(rune('a'+i)),
			Category: "test",
			Word:     "WORD",
			Clues:    []string{"one", "two", "three"},
		})
	}
	return lib
}

func TestLettersOnly(t *testing.T) {
	cases := map[string]string{
		"INDIA":              "INDIA",
		"New Zealand":        "NEWZEALAND",
		"GREAT BARRIER REEF": "GREATBARRIERREEF",
		"ice-cream":          "ICECREAM",
	}
	for in, want := range cases {
		if got := LettersOnly(in); got != want {
			t.Errorf("LettersOnly(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadEmbeddedContent(t *testing.T) {
	lib, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.Daily) == 0 {
		t.Fatal("no daily puzzles")
	}
	for _, p := range lib.Daily {
		if len(p.Clues) != 3 {
			t.Errorf("puzzle %s has %d clues, want 3", p.ID, len(p.Clues))
		}
		if LettersOnly(p.Word) == "" {
			t.Errorf("puzzle %s has empty letters-only word", p.ID)
		}
	}
	for name, pool := range lib.Categories {
		if len(pool) == 0 {
			t.Errorf("category %s is empty", name)
		}
	}
}

// TestDailyDeterministic: the same date yields the same puzzle on every
// call, and the epoch date maps to index 0.
func TestDailyDeterministic(t *testing.T) {
	s := NewSelector(testLibrary(t, 8), time.UTC)

	if p, err := s.Daily(s.Epoch); err != nil || p.ID != s.Lib.Daily[0].ID {
		t.Fatalf("Daily(epoch) = %v, %v; want index 0", p, err)
	}

	d := s.Epoch.AddDate(0, 0, 11)
	first, err := s.Daily(d)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	for i := 0; i < 5; i++ {
		if p, _ := s.Daily(d); p.ID != first.ID {
			t.Fatalf("Daily not deterministic: %s then %s", first.ID, p.ID)
		}
	}
	// 11 days into a pool of 8 wraps to index 3.
	if first.ID != s.Lib.Daily[3].ID {
		t.Errorf("Daily(+11d) = %s, want %s", first.ID, s.Lib.Daily[3].ID)
	}
}

// TestPickQuickPlayExcludesPlayed: only unplayed puzzles are drawn while
// any remain.
func TestPickQuickPlayExcludesPlayed(t *testing.T) {
	pool := testLibrary(t, 4).Daily
	played := []string{pool[0].ID, pool[1].ID, pool[2].ID}

	for i := 0; i < 20; i++ {
		p, err := PickQuickPlay(pool, played)
		if err != nil {
			t.Fatalf("PickQuickPlay: %v", err)
		}
		if p.ID != pool[3].ID {
			t.Fatalf("drew played puzzle %s", p.ID)
		}
	}
}

// TestPickQuickPlayExhaustion: with every id played, selection falls back
// to the full pool instead of failing.
func TestPickQuickPlayExhaustion(t *testing.T) {
	pool := testLibrary(t, 3).Daily
	played := []string{pool[0].ID, pool[1].ID, pool[2].ID}

	p, err := PickQuickPlay(pool, played)
	if err != nil {
		t.Fatalf("PickQuickPlay on exhausted pool: %v", err)
	}
	if p == nil {
		t.Fatal("nil puzzle")
	}
}

func TestPickQuickPlayEmptyPool(t *testing.T) {
	if _, err := PickQuickPlay(nil, nil); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v, want ErrEmptyPool", err)
	}
}

func TestQuickPlayUnknownCategory(t *testing.T) {
	s := NewSelector(testLibrary(t, 2), time.UTC)
	if _, err := s.QuickPlay("nope", nil, s.Epoch); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v, want ErrEmptyPool", err)
	}
}

// TestUnlockedDailiesEarlyCycle: before one full rotation, only indices
// already visited are unlocked, and never today's.
func TestUnlockedDailiesEarlyCycle(t *testing.T) {
	s := NewSelector(testLibrary(t, 8), time.UTC)

	if got := s.UnlockedDailies(s.Epoch); len(got) != 0 {
		t.Fatalf("day 0 unlocked %d puzzles, want 0", len(got))
	}

	d := s.Epoch.AddDate(0, 0, 3)
	got := s.UnlockedDailies(d)
	if len(got) != 3 {
		t.Fatalf("day 3 unlocked %d puzzles, want 3", len(got))
	}
	today, _ := s.Daily(d)
	for _, p := range got {
		if p.ID == today.ID {
			t.Fatal("today's puzzle is in the unlocked pool")
		}
	}
}

// TestUnlockedDailiesFullCycleBoundary: at exactly daysSinceEpoch ==
// pool size the rotation has wrapped, so every non-today puzzle is
// unlocked.
func TestUnlockedDailiesFullCycleBoundary(t *testing.T) {
	const total = 8
	s := NewSelector(testLibrary(t, total), time.UTC)

	d := s.Epoch.AddDate(0, 0, total)
	got := s.UnlockedDailies(d)
	if len(got) != total-1 {
		t.Fatalf("at one full cycle unlocked %d puzzles, want %d", len(got), total-1)
	}
	today, _ := s.Daily(d) // wraps back to index 0
	if today.ID != s.Lib.Daily[0].ID {
		t.Fatalf("today after full cycle = %s, want index 0", today.ID)
	}
	for _, p := range got {
		if p.ID == today.ID {
			t.Fatal("today's puzzle is in the unlocked pool")
		}
	}
}

// TestQuickPlayArchiveCategory serves unlocked dailies.
func TestQuickPlayArchiveCategory(t *testing.T) {
	s := NewSelector(testLibrary(t, 4), time.UTC)
	d := s.Epoch.AddDate(0, 0, 2)

	p, err := s.QuickPlay(ArchiveCategory, nil, d)
	if err != nil {
		t.Fatalf("archive quick play: %v", err)
	}
	today, _ := s.Daily(d)
	if p.ID == today.ID {
		t.Fatal("archive served today's daily")
	}
}
