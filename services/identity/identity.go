package identity

import (
	"sync"

	"github.com/samber/mo"

	"pinbot/core/log"
)

// IdentityService holds the bot's own user id for the current gateway session.
// It is written by the dispatch loop on every Ready event and read when filtering
// pin notices; other goroutines (health endpoint) may read it concurrently.
type IdentityService struct {
	mu     sync.RWMutex
	selfID mo.Option[string]
}

func NewIdentityService() *IdentityService {
	return &IdentityService{
		selfID: mo.None[string](),
	}
}

// SetSelfID records the bot's user id. A later Ready (after a reconnect) overwrites it.
func (s *IdentityService) SetSelfID(userID string) {
	if userID == "" {
		log.Warn("⚠️ Ignoring empty self user id from ready event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.selfID.Get(); ok && previous != userID {
		log.Warn("⚠️ Self user id changed between sessions", "previous", previous, "current", userID)
	}
	s.selfID = mo.Some(userID)
}

// SelfID returns the bot's user id, absent until the first Ready event.
func (s *IdentityService) SelfID() mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfID
}

// IsSelf reports whether userID is the bot itself. Always false while the id is unknown.
func (s *IdentityService) IsSelf(userID string) bool {
	selfID, ok := s.SelfID().Get()
	return ok && userID != "" && selfID == userID
}
