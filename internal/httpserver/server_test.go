package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/triclue/triclue/internal/puzzle"
)

// testClient wraps an httptest server with a cookie jar so the anonymous
// player id (and auth cookies) persist across requests like a browser.
type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestClient(t *testing.T) (*testClient, *puzzle.Library) {
	t.Helper()

	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A pooled second connection would see its own empty :memory: DB.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	lib, err := puzzle.Load()
	if err != nil {
		t.Fatalf("load puzzles: %v", err)
	}

	s := New(db, lib, time.UTC)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}}, lib
}

func (c *testClient) do(method, path string, body any) map[string]any {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		c.t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	out["_status"] = float64(res.StatusCode)
	return out
}

func TestHealthAndCategories(t *testing.T) {
	c, lib := newTestClient(t)

	res, err := c.client.Get(c.srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}

	res, err = c.client.Get(c.srv.URL + "/categories")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	defer res.Body.Close()
	var names []string
	if err := json.NewDecoder(res.Body).Decode(&names); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(names) != len(lib.CategoryNames()) {
		t.Errorf("got %d categories, want %d", len(names), len(lib.CategoryNames()))
	}
}

func TestDailyFlow(t *testing.T) {
	c, _ := newTestClient(t)

	state := c.do("POST", "/daily/new", map[string]any{})
	if state["success"] != true {
		t.Fatalf("daily/new failed: %v", state)
	}
	wordLen := int(state["wordLength"].(float64))
	if wordLen == 0 {
		t.Fatal("wordLength is zero")
	}
	if clues, _ := state["clues"].([]any); len(clues) != 1 {
		t.Errorf("fresh attempt shows %d clues, want 1", len(clues))
	}

	// Wrong length is a recoverable advisory, not an HTTP error.
	fail := c.do("POST", "/game/guess", map[string]any{"mode": "daily", "guess": "X"})
	if fail["success"] != false || fail["message"] == "" {
		t.Errorf("short guess = %v, want success:false with message", fail)
	}
	if int(fail["_status"].(float64)) != http.StatusOK {
		t.Errorf("advisory failure returned HTTP %v", fail["_status"])
	}

	// The failed guess left no trace.
	state = c.do("GET", "/game/state?mode=daily", nil)
	if guesses, _ := state["guesses"].([]any); len(guesses) != 0 {
		t.Errorf("state shows %d guesses after rejected submission", len(guesses))
	}
}

func TestDailyWinUpdatesStatsAndCompletion(t *testing.T) {
	c, lib := newTestClient(t)

	state := c.do("POST", "/daily/new", map[string]any{})
	p, ok := lib.ByID(state["puzzleId"].(string))
	if !ok {
		t.Fatalf("daily puzzle %v not in library", state["puzzleId"])
	}

	res := c.do("POST", "/game/guess", map[string]any{
		"mode":  "daily",
		"guess": puzzle.LettersOnly(p.Word),
	})
	if res["success"] != true || res["win"] != true {
		t.Fatalf("winning guess = %v", res)
	}
	if res["score"].(float64) != 100 {
		t.Errorf("first-guess score = %v, want 100", res["score"])
	}
	if res["factoid"] == "" {
		t.Error("win response missing factoid")
	}

	done := c.do("GET", "/daily/completed", nil)
	if done["completed"] != true {
		t.Error("daily not marked completed after win")
	}

	stats := c.do("GET", "/stats", nil)
	if stats["played"].(float64) != 1 || stats["currentStreak"].(float64) != 1 {
		t.Errorf("stats after win = %v", stats)
	}
}

func TestGuestIdentitySurvivesRequests(t *testing.T) {
	c, _ := newTestClient(t)

	c.do("POST", "/daily/new", map[string]any{})
	first := c.do("GET", "/game/state?mode=daily", nil)
	if first["success"] != true {
		t.Fatalf("state not found on second request: %v", first)
	}

	// A fresh client without the anon cookie is a different player.
	jar, _ := cookiejar.New(nil)
	other := &testClient{t: t, srv: c.srv, client: &http.Client{Jar: jar}}
	missing := other.do("GET", "/game/state?mode=daily", nil)
	if missing["success"] != false {
		t.Errorf("new guest sees another guest's session: %v", missing)
	}
}

func TestSignupLoginMe(t *testing.T) {
	c, _ := newTestClient(t)

	res := c.do("POST", "/auth/signup", map[string]string{"username": "player_one", "password": "hunter2hunter2"})
	if res["success"] != true {
		t.Fatalf("signup failed: %v", res)
	}

	me := c.do("GET", "/auth/me", nil)
	user, _ := me["user"].(map[string]any)
	if user["username"] != "player_one" {
		t.Errorf("me = %v", me)
	}

	c.do("POST", "/auth/logout", nil)
	after := c.do("GET", "/auth/me", nil)
	if int(after["_status"].(float64)) != http.StatusUnauthorized {
		t.Errorf("me after logout = %v, want 401", after["_status"])
	}

	// Wrong password is an advisory failure.
	bad := c.do("POST", "/auth/login", map[string]string{"username": "player_one", "password": "wrong-password"})
	if bad["success"] != false {
		t.Errorf("bad login = %v", bad)
	}

	good := c.do("POST", "/auth/login", map[string]string{"username": "player_one", "password": "hunter2hunter2"})
	if good["success"] != true {
		t.Errorf("login failed: %v", good)
	}
}

func TestSignupValidation(t *testing.T) {
	c, _ := newTestClient(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "longenoughpass"},
		{"bad characters", "no spaces!", "longenoughpass"},
		{"short password", "validname", "short"},
	}
	for _, tc := range cases {
		res := c.do("POST", "/auth/signup", map[string]string{"username": tc.username, "password": tc.password})
		if res["success"] != false {
			t.Errorf("%s: signup accepted: %v", tc.name, res)
		}
	}

	c.do("POST", "/auth/signup", map[string]string{"username": "taken_name", "password": "longenoughpass"})
	dup := c.do("POST", "/auth/signup", map[string]string{"username": "Taken_Name", "password": "longenoughpass"})
	if dup["success"] != false {
		t.Errorf("case-insensitive duplicate accepted: %v", dup)
	}
}

func TestStatsResetClearsEverything(t *testing.T) {
	c, lib := newTestClient(t)

	state := c.do("POST", "/daily/new", map[string]any{})
	p, _ := lib.ByID(state["puzzleId"].(string))
	c.do("POST", "/game/guess", map[string]any{"mode": "daily", "guess": puzzle.LettersOnly(p.Word)})

	c.do("POST", "/stats/reset", nil)

	stats := c.do("GET", "/stats", nil)
	if stats["played"].(float64) != 0 {
		t.Errorf("stats after reset = %v", stats)
	}
	done := c.do("GET", "/daily/completed", nil)
	if done["completed"] != false {
		t.Error("daily still completed after full reset")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)

	c.do("POST", "/settings", map[string]bool{"hardMode": true, "reducedNoise": false})
	got := c.do("GET", "/settings", nil)
	if got["hardMode"] != true || got["reducedNoise"] != false {
		t.Errorf("settings = %v", got)
	}
}
