package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// PresenceRegistry tracks which users hold live connections. Presence is
// a reference count per user, not a boolean: closing one tab while
// another stays open keeps the user online. The registry holds no durable
// state and starts empty on every hub restart.
//
// Constructed once per hub and passed by handle, so tests can run
// independent instances side by side.
type PresenceRegistry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]map[string]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		conns: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Register records a connection for the user and reports whether this
// was the user's transition to online. The transition decision happens
// under the lock so a concurrent unregister cannot race it.
func (p *PresenceRegistry) Register(userID uuid.UUID, connID string) (wentOnline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}
	wentOnline = len(set) == 0
	set[connID] = struct{}{}
	return wentOnline
}

// Unregister removes a connection and reports whether the user's set
// became empty, i.e. the user went offline. The map entry is dropped
// exactly when the set empties.
func (p *PresenceRegistry) Unregister(userID uuid.UUID, connID string) (wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user holds at least one live connection.
func (p *PresenceRegistry) IsOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID]) > 0
}

// OnlineUserIDs returns the ids of all currently online users.
func (p *PresenceRegistry) OnlineUserIDs() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount returns the number of live connections for a user.
func (p *PresenceRegistry) ConnectionCount(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID])
}
