package server

import (
	"sort"
	"sync"
)

type presenceEntry struct {
	connId string
	client *Client
}

// PresenceRegistry maps each user to their single live connection. A user
// who announces from a second device evicts the first; a disconnect only
// clears the entry if it still belongs to the disconnecting connection, so
// the stale close of an evicted connection cannot knock the newer one
// offline.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[string]presenceEntry),
	}
}

// Announce records userId as online on the given connection. It returns the
// client displaced by this announce, if any, and whether the set of online
// users changed.
func (p *PresenceRegistry) Announce(userId, connId string, c *Client) (evicted *Client, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.entries[userId]
	p.entries[userId] = presenceEntry{connId: connId, client: c}

	if !ok {
		return nil, true
	}
	if prev.connId == connId {
		return nil, false
	}
	return prev.client, false
}

// Release clears userId's entry if it is still held by connId. Returns
// whether the online set changed.
func (p *PresenceRegistry) Release(userId, connId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[userId]
	if !ok || entry.connId != connId {
		return false
	}

	delete(p.entries, userId)
	return true
}

func (p *PresenceRegistry) IsOnline(userId string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[userId]
	return ok
}

// ClientFor returns the live connection for userId, or nil.
func (p *PresenceRegistry) ClientFor(userId string) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if entry, ok := p.entries[userId]; ok {
		return entry.client
	}
	return nil
}

// Snapshot returns the sorted set of online user ids.
func (p *PresenceRegistry) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
