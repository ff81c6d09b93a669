package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/adapters/memory"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	snap := &domain.SessionSnapshot{
		ID: "pii-session",
		State: map[string]any{
			"username":      "jdoe",
			"user_password": "secret123",
			"details": map[string]any{
				"address":    "123 St",
				"ssn_number": "999-99-9999",
			},
			"travelers": []any{
				map[string]any{"name": "Ana", "ssn": "111-11-1111"},
			},
		},
	}

	require.NoError(t, secure.Save(ctx, snap))

	assert.Equal(t, "secret123", snap.State["user_password"], "live snapshot must not be modified")
	assert.Equal(t, "999-99-9999", snap.State["details"].(map[string]any)["ssn_number"])

	stored, err := underlying.Load(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.State["username"])
	assert.Equal(t, middleware.Mask, stored.State["user_password"])

	details := stored.State["details"].(map[string]any)
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, middleware.Mask, details["ssn_number"])

	traveler := stored.State["travelers"].([]any)[0].(map[string]any)
	assert.Equal(t, "Ana", traveler["name"])
	assert.Equal(t, middleware.Mask, traveler["ssn"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.SessionSnapshot{
		ID:    "chained",
		State: map[string]any{"password": "hunter2", "city": "Rome"},
	}))

	stored, err := underlying.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Contains(t, stored.State, middleware.EnvelopeKey)

	loaded, err := store.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.State["password"])
	assert.Equal(t, "Rome", loaded.State["city"])
}
