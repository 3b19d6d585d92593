package mapview

import (
	"sync"

	"github.com/urbansound/noisemap/internal/domain"
)

// Store is the ordered, in-memory sequence of noise events shown on the map.
// Insertion order is display order. There is no deduplication and no
// capacity bound.
type Store struct {
	// notifyMu orders mutations with their notifications, so handlers see
	// snapshots in the order the mutations happened
	notifyMu sync.Mutex

	mu       sync.Mutex
	events   []domain.NoiseEvent
	onChange func([]domain.NoiseEvent)
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// OnChange registers the handler called with a snapshot after every mutation.
// Calls are serialized; fn must not mutate the store.
func (s *Store) OnChange(fn func([]domain.NoiseEvent)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Subscribe registers fn like OnChange and immediately calls it with the
// current contents, with no mutation able to slip in between
func (s *Store) Subscribe(fn func([]domain.NoiseEvent)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.onChange = fn
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	fn(snapshot)
}

// ReplaceAll discards prior contents and sets them to events
func (s *Store) ReplaceAll(events []domain.NoiseEvent) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.events = append([]domain.NoiseEvent(nil), events...)
	snapshot, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Append adds one event at the end
func (s *Store) Append(event domain.NoiseEvent) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.events = append(s.events, event)
	snapshot, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Events returns a copy of the current contents
func (s *Store) Events() []domain.NoiseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// At returns the event at index i
func (s *Store) At(i int) (domain.NoiseEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.events) {
		return domain.NoiseEvent{}, false
	}
	return s.events[i], true
}

// Len returns the number of stored events
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Store) snapshotLocked() []domain.NoiseEvent {
	return append([]domain.NoiseEvent(nil), s.events...)
}
