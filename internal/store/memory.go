package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
// It backs the dashboard's ephemeral mode and tests.
type MemoryStore struct {
	mu sync.RWMutex

	// newest first
	items []Location

	// max number of saved locations; the oldest are dropped beyond it
	maxEntries int
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
	}
}

// List returns a copy of the saved locations, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Location, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Add prepends city unless it is already saved, then enforces retention.
func (s *MemoryStore) Add(ctx context.Context, city string) (Location, bool, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, false, err
	}
	city, err := NormalizeName(city)
	if err != nil {
		return Location{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.items {
		if l.City == city {
			return l, false, nil
		}
	}

	loc := Location{ID: uuid.New(), City: city, CreatedAt: time.Now().UTC()}
	s.items = append([]Location{loc}, s.items...)

	// Enforce retention by count.
	if s.maxEntries > 0 && len(s.items) > s.maxEntries {
		s.items = s.items[:s.maxEntries]
	}
	return loc, true, nil
}

// Remove deletes city, returning ErrNotFound if it is not saved.
func (s *MemoryStore) Remove(ctx context.Context, city string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	city, err := NormalizeName(city)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.items {
		if l.City == city {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
