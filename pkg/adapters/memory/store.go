package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SessionSnapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SessionSnapshot),
	}
}

func clone(snap *domain.SessionSnapshot) *domain.SessionSnapshot {
	c := *snap
	c.Messages = slices.Clone(snap.Messages)
	c.State = maps.Clone(snap.State)
	return &c
}

// Save keeps a copy of the snapshot.
func (s *Store) Save(_ context.Context, snap *domain.SessionSnapshot) error {
	c := clone(snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.ID] = c
	return nil
}

// Load returns a copy so callers cannot mutate the stored snapshot.
func (s *Store) Load(_ context.Context, sessionID string) (*domain.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(snap), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs in lexical order.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
