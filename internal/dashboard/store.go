package dashboard

import (
	"sync"
	"time"

	"github.com/sells-group/placemap/internal/model"
)

// Store owns the State of one session. Every mutation runs a reducer under
// the lock, so readers never observe a partial update.
type Store struct {
	mu       sync.RWMutex
	state    State
	version  uint64
	lastUsed time.Time
	now      func() time.Time
}

// NewStore creates a Store holding initial.
func NewStore(initial State) *Store {
	return newStore(initial, time.Now)
}

func newStore(initial State, now func() time.Time) *Store {
	return &Store{state: initial.Clone(), lastUsed: now(), now: now}
}

// Snapshot returns a copy of the current state and its version.
func (st *Store) Snapshot() (State, uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastUsed = st.now()
	return st.state.Clone(), st.version
}

// State returns a copy of the current state.
func (st *Store) State() State {
	s, _ := st.Snapshot()
	return s
}

// Update applies fn atomically. On error the state is left unchanged.
func (st *Store) Update(fn func(State) (State, error)) (State, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next, err := fn(st.state)
	if err != nil {
		return st.state.Clone(), err
	}
	st.state = next
	st.version++
	st.lastUsed = st.now()
	return next.Clone(), nil
}

// ToggleSelection applies ToggleSelection.
func (st *Store) ToggleSelection(e model.Entity) State {
	s, _ := st.Update(func(s State) (State, error) { return ToggleSelection(s, e), nil })
	return s
}

// SetCustomerAnalysis applies SetCustomerAnalysis.
func (st *Store) SetCustomerAnalysis(p CustomerAnalysisPatch) (State, error) {
	return st.Update(func(s State) (State, error) { return SetCustomerAnalysis(s, p) })
}

// SetPlaceAnalysis applies SetPlaceAnalysis.
func (st *Store) SetPlaceAnalysis(p PlaceAnalysisPatch) (State, error) {
	return st.Update(func(s State) (State, error) { return SetPlaceAnalysis(s, p) })
}

// ShowHomeZipcodesFor applies ShowHomeZipcodesFor.
func (st *Store) ShowHomeZipcodesFor(id string) (State, error) {
	return st.Update(func(s State) (State, error) { return ShowHomeZipcodesFor(s, id) })
}

// SetTooltip applies SetTooltip.
func (st *Store) SetTooltip(t *Tooltip) State {
	s, _ := st.Update(func(s State) (State, error) { return SetTooltip(s, t), nil })
	return s
}

// SetMapView applies SetMapView.
func (st *Store) SetMapView(v MapView) (State, error) {
	return st.Update(func(s State) (State, error) { return SetMapView(s, v) })
}

// SetCompetitorMode applies SetCompetitorMode.
func (st *Store) SetCompetitorMode(m CompetitorMode) (State, error) {
	return st.Update(func(s State) (State, error) { return SetCompetitorMode(s, m) })
}

// SetPlacesVisible applies SetPlacesVisible.
func (st *Store) SetPlacesVisible(visible bool) State {
	s, _ := st.Update(func(s State) (State, error) { return SetPlacesVisible(s, visible), nil })
	return s
}

func (st *Store) idleSince() time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.lastUsed
}
