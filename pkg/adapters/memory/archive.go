package memory

import (
	"context"
	"sync"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Archive implements ports.TripArchive in memory, keeping the latest trip
// per session.
type Archive struct {
	mu    sync.RWMutex
	trips map[string]domain.Trip
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{trips: make(map[string]domain.Trip)}
}

func (a *Archive) Save(_ context.Context, trip domain.Trip) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trips[trip.SessionID] = trip
	return nil
}

// Get returns the archived trip of a session.
func (a *Archive) Get(sessionID string) (domain.Trip, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.trips[sessionID]
	return t, ok
}

// Len returns the number of archived trips.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.trips)
}
