package chat

import (
	"sync"

	"linkinpurry/backend/metrics"
)

// Handle is a live real-time connection that events can be pushed to.
type Handle interface {
	ID() string
	Emit(event string, data interface{}) error
}

// Registry maps joined users to their live handle and back. The last join for a user wins.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[int64]Handle
	byHandle map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[int64]Handle),
		byHandle: make(map[string]int64),
	}
}

// Join registers h for userID and returns the handle it replaced, if any.
func (r *Registry) Join(userID int64, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byHandle[h.ID()]; ok && prevUser != userID {
		if cur, ok := r.byUser[prevUser]; ok && cur.ID() == h.ID() {
			delete(r.byUser, prevUser)
		}
	}

	replaced, ok := r.byUser[userID]
	if ok && replaced.ID() != h.ID() {
		delete(r.byHandle, replaced.ID())
	} else {
		replaced = nil
	}

	r.byUser[userID] = h
	r.byHandle[h.ID()] = userID
	metrics.ChatPresenceOnline.Set(float64(len(r.byUser)))
	return replaced
}

// Leave removes h. It returns the user h was joined as and whether h was still that
// user's current handle; a handle replaced by a newer join leaves the newer entry intact.
func (r *Registry) Leave(h Handle) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byHandle[h.ID()]
	if !ok {
		return 0, false
	}
	delete(r.byHandle, h.ID())

	cur, ok := r.byUser[userID]
	if !ok || cur.ID() != h.ID() {
		return userID, false
	}
	delete(r.byUser, userID)
	metrics.ChatPresenceOnline.Set(float64(len(r.byUser)))
	return userID, true
}

// Lookup returns the live handle of userID.
func (r *Registry) Lookup(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// UserOf resolves the user a handle joined as.
func (r *Registry) UserOf(h Handle) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byHandle[h.ID()]
	return userID, ok
}

func (r *Registry) Online(userID int64) bool {
	_, ok := r.Lookup(userID)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
