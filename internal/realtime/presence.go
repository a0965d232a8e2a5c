package realtime

import "sync"

// Presence maps each authenticated user to the connection currently serving
// them. One entry per user: a reconnect overwrites the previous mapping.
// Mutations happen only on the hub goroutine; the lock exists so HTTP
// handlers can Lookup concurrently.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]string)}
}

// Register inserts or overwrites the mapping for userID.
func (p *Presence) Register(userID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = connID
}

// Unregister removes the mapping, but only if connID still owns it. A stale
// disconnect from an overwritten connection must not evict the newer one.
// No-op when the entry is already absent.
func (p *Presence) Unregister(userID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byUser[userID] == connID {
		delete(p.byUser, userID)
	}
}

// Lookup resolves a user to their connection. Absence is a normal outcome:
// the user is offline or connected to another process.
func (p *Presence) Lookup(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.byUser[userID]
	return connID, ok
}
