package presence

import (
	"sort"
	"sync"
)

// Registry maps a user ID to its current socket handle. It is the single
// source of truth for "is this user connected right now" and nothing else:
// state is process-scoped, starts empty, and is rebuilt from scratch after
// a restart. Durable session history lives in the session store.
//
// One slot per user: registering a second socket for the same user
// overwrites the first. The displaced socket is not closed here; it stays
// orphaned until its own disconnect fires.
type Registry struct {
	mu      sync.RWMutex
	sockets map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sockets: make(map[string]string)}
}

// Register records socketID as the live connection for userID,
// unconditionally replacing any previous mapping.
func (r *Registry) Register(userID, socketID string) {
	r.mu.Lock()
	r.sockets[userID] = socketID
	r.mu.Unlock()
}

// Unregister removes the mapping for userID. Removing an absent user is
// a no-op, which keeps every cleanup path safe to run twice.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.sockets, userID)
	r.mu.Unlock()
}

// Lookup returns the socket handle for userID, if any.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sockets[userID]
	return id, ok
}

// IsOnline reports whether userID has a registered connection.
func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets)
}

// OnlineUserIDs returns a point-in-time copy of the online user set,
// sorted for stable output.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sockets))
	for id := range r.sockets {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
