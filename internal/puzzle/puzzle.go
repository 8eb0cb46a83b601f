// internal/puzzle/puzzle.go
//
// Puzzle content library.
// Content ships embedded in the binary as JSON: one list for the daily
// rotation plus per-category pools for quick play. The library is a
// constructed object — no package-level state — so tests can build small
// pools of their own.
//
// Records are read-only to the game core. Validation of authored content
// is out of scope, but well-formed-but-odd records (a word containing
// separators, for instance) must not break the core; callers always
// compare against the letters-only form.

package puzzle

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/samber/lo"
)

//go:embed puzzles.json
var embeddedContent []byte

// ErrEmptyPool is returned when a selection is asked of an empty pool.
var ErrEmptyPool = errors.New("puzzle pool is empty")

// Puzzle is one immutable content record.
type Puzzle struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	// Word is the display form; it may contain spaces or hyphens as word
	// separators, which are not guessable characters.
	Word    string   `json:"word"`
	Clues   []string `json:"clues"` // exactly 3, in reveal order
	Factoid string   `json:"factoid"`
}

// LettersOnly strips separator characters (space, hyphen) and uppercases,
// yielding the form used for every length and position comparison.
func LettersOnly(word string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.ToUpper(word))
}

// Library holds the full puzzle content for one deployment.
type Library struct {
	Daily      []Puzzle            `json:"daily"`
	Categories map[string][]Puzzle `json:"categories"`
}

// Load parses the embedded content.
func Load() (*Library, error) {
	return Parse(embeddedContent)
}

// Parse builds a Library from raw JSON content.
func Parse(raw []byte) (*Library, error) {
	var lib Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, fmt.Errorf("parse puzzle content: %w", err)
	}
	if len(lib.Daily) == 0 {
		return nil, errors.New("puzzle content has no daily rotation")
	}
	return &lib, nil
}

// CategoryNames returns the quick-play category names, sorted.
func (l *Library) CategoryNames() []string {
	names := lo.Keys(l.Categories)
	// lo.Keys order is nondeterministic; callers want a stable listing.
	sort.Strings(names)
	return names
}

// ByID looks a puzzle up across the daily rotation and every category.
func (l *Library) ByID(id string) (*Puzzle, bool) {
	for i := range l.Daily {
		if l.Daily[i].ID == id {
			return &l.Daily[i], true
		}
	}
	for _, pool := range l.Categories {
		for i := range pool {
			if pool[i].ID == id {
				return &pool[i], true
			}
		}
	}
	return nil, false
}

// pickRandom draws uniformly from pool using crypto/rand.
func pickRandom(pool []Puzzle) (*Puzzle, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		// Entropy failure; the first entry beats failing the selection.
		return &pool[0], nil
	}
	p := pool[n.Int64()]
	return &p, nil
}
