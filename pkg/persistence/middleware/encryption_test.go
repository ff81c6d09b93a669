package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/adapters/memory"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/persistence/middleware"
	"github.com/aretw0/wayfarer/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.SnapshotStore, active []byte, fallback ...[]byte) ports.SnapshotStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
	require.NoError(t, err)
	return mw(next)
}

func secretSnapshot(id string) *domain.SessionSnapshot {
	return &domain.SessionSnapshot{
		ID:     id,
		Status: domain.StatusWaitingInput,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "my passport number is X123"},
		},
		State: map[string]any{"secret": "my-secret-sauce"},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, encrypted(t, memory.NewStore(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, generateKey(t))
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, secretSnapshot("test-session")))

	stored, err := underlying.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.NotContains(t, stored.State, "secret")
	assert.Contains(t, stored.State, middleware.EnvelopeKey)
	assert.Empty(t, stored.Messages)
	assert.Equal(t, domain.StatusWaitingInput, stored.Status, "status stays readable")

	loaded, err := secure.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State["secret"])
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "my passport number is X123", loaded.Messages[0].Content)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	require.NoError(t, encrypted(t, underlying, oldKey).Save(ctx, secretSnapshot("rotation")))

	loaded, err := encrypted(t, underlying, newKey, oldKey).Load(ctx, "rotation")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State["secret"])

	_, err = encrypted(t, underlying, newKey).Load(ctx, "rotation")
	assert.Error(t, err, "without the old key the snapshot cannot be opened")
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, secretSnapshot("plain")))

	_, err := encrypted(t, underlying, generateKey(t)).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrMissingEnvelope)
}

func TestNewEncryptionMiddleware_KeySize(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}

func TestDecodeKey(t *testing.T) {
	raw := generateKey(t)

	key, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	key, err = middleware.DecodeKey("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = middleware.DecodeKey("not-a-key")
	assert.Error(t, err)
}
