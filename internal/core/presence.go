package core

import (
	"sort"
	"sync"
)

// Presence is the process-wide registry of who is online right now. A user
// is online iff at least one live connection is registered for their id.
// State is ephemeral: a restart means everyone must rejoin.
//
// Mutations go through the hub's event loop, but queries also come from
// pipeline goroutines and REST handlers, so the maps are mutex-guarded and
// never handed out directly.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // userID -> connID -> client
	byConn map[string]string             // connID -> userID
}

// NewPresence constructs an empty registry.
func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]map[string]*Client),
		byConn: make(map[string]string),
	}
}

// Join records that userID has a live connection. Idempotent per connection.
func (p *Presence) Join(userID string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.byUser[userID]
	if conns == nil {
		conns = make(map[string]*Client)
		p.byUser[userID] = conns
	}
	conns[c.ConnID] = c
	p.byConn[c.ConnID] = userID
}

// Leave removes the entry for a terminated connection. Removal is keyed by
// connection identity, so a stale join for the same user cannot resurrect a
// just-removed entry. Returns the user the connection belonged to and
// whether any connection was actually removed.
func (p *Presence) Leave(connID string) (userID string, removed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[connID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connID)

	if conns := p.byUser[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(p.byUser, userID)
		}
	}
	return userID, true
}

// Online returns the sorted list of user ids with at least one live
// connection.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsOnline reports whether userID has a live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

// Connections returns the live connections registered for userID.
func (p *Presence) Connections(userID string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}
