package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/domain"
)

func contractSnapshot(id string) *domain.SessionSnapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.SessionSnapshot{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    domain.StatusWaitingInput,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "5 days in Lisbon", Timestamp: now},
		},
		State: map[string]any{
			"trip_info":           map[string]any{"destination": "Lisbon"},
			"clarification_round": 1,
		},
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(sessionID)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, domain.StatusWaitingInput, loaded.Status)
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, "5 days in Lisbon", loaded.Messages[0].Content)
		assert.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))
		// JSON backends turn ints into float64, so only check presence.
		assert.NotNil(t, loaded.State["clarification_round"])
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := contractSnapshot(sessionID)
		snap.Status = domain.StatusComplete
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusComplete, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot(sessionID)))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, contractSnapshot(id1))
		_ = store.Save(ctx, contractSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
