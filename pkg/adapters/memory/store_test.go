package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/adapters/memory"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, memory.NewStore())
}

func TestMemoryStore_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	snap := &domain.SessionSnapshot{ID: "s1", State: map[string]any{"k": "v"}}
	require.NoError(t, store.Save(ctx, snap))

	snap.State["k"] = "changed"
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.State["k"])

	loaded.State["k"] = "mutated"
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.State["k"])
}

func TestArchive(t *testing.T) {
	a := memory.NewArchive()
	require.NoError(t, a.Save(context.Background(), domain.Trip{SessionID: "s1", Guide: "v1"}))
	require.NoError(t, a.Save(context.Background(), domain.Trip{SessionID: "s1", Guide: "v2"}))

	trip, ok := a.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "v2", trip.Guide)
	assert.Equal(t, 1, a.Len())
}
