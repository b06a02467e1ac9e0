package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sessions is the registry of live dashboard sessions keyed by UUID.
// Sessions idle for longer than the configured timeout are swept.
type Sessions struct {
	mu        sync.RWMutex
	stores    map[string]*Store
	myPlaceID string
	idle      time.Duration
	now       func() time.Time
}

// NewSessions creates an empty registry. A non-positive idle disables
// expiry.
func NewSessions(myPlaceID string, idle time.Duration) *Sessions {
	return &Sessions{
		stores:    make(map[string]*Store),
		myPlaceID: myPlaceID,
		idle:      idle,
		now:       time.Now,
	}
}

// Create starts a new session in the default state.
func (r *Sessions) Create() (string, *Store) {
	id := uuid.NewString()
	st := newStore(New(r.myPlaceID), r.now)

	r.mu.Lock()
	r.stores[id] = st
	r.mu.Unlock()

	zap.L().Debug("dashboard: session created", zap.String("session_id", id))
	return id, st
}

// Get returns the store for id.
func (r *Sessions) Get(id string) (*Store, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	r.mu.RLock()
	st, ok := r.stores[id]
	r.mu.RUnlock()
	return st, ok
}

// Delete ends a session. It reports whether the session existed.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[id]; !ok {
		return false
	}
	delete(r.stores, id)
	return true
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// Sweep removes sessions idle for longer than the timeout and returns how
// many were removed.
func (r *Sessions) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, st := range r.stores {
		if st.idleSince().Before(cutoff) {
			delete(r.stores, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *Sessions) Run(ctx context.Context, every time.Duration) {
	if r.idle <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				zap.L().Info("dashboard: expired idle sessions", zap.Int("removed", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
