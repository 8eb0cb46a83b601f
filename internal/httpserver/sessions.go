// internal/httpserver/sessions.go
//
// In-memory registry of active game sessions, keyed by player id and
// mode. Sessions are transient: losing one costs nothing but a restore
// round trip through the persistence port on the next request.
//
// Concurrency-safe via RWMutex; individual sessions are still
// single-threaded per player, the registry only guards the map.

package httpserver

import (
	"sync"

	"github.com/triclue/triclue/internal/game"
)

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session // keyed by playerID|mode
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*game.Session)}
}

func sessionKey(playerID string, mode game.Mode) string {
	return playerID + "|" + string(mode)
}

func (r *sessionRegistry) get(playerID string, mode game.Mode) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionKey(playerID, mode)]
	return s, ok
}

func (r *sessionRegistry) put(playerID string, mode game.Mode, s *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey(playerID, mode)] = s
}

func (r *sessionRegistry) drop(playerID string, mode game.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(playerID, mode))
}
