package ports

import (
	"context"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// SnapshotStore persists session snapshots so sessions survive restarts.
type SnapshotStore interface {
	// Save persists the snapshot under its ID, replacing any previous one.
	Save(ctx context.Context, snap *domain.SessionSnapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all persisted session IDs.
	List(ctx context.Context) ([]string, error)
}

// TripArchive stores finished travel plans outside of the session lifecycle.
type TripArchive interface {
	Save(ctx context.Context, trip domain.Trip) error
}
