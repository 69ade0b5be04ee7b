package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	inner := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "^token$"})
	require.NoError(t, err)
	store := mw(inner)
	ctx := context.Background()

	state := domain.NewState("/login", domain.EventNavigate)
	state.Extra["user"] = "jdoe"
	state.Extra["user_password"] = "secret123"
	state.Extra["query"] = map[string]string{"token": "abc", "page": "2"}
	state.Extra["profile"] = map[string]any{"password_hint": "cat"}

	require.NoError(t, store.Save(ctx, "s1", state))
	assert.Equal(t, "secret123", state.Extra["user_password"], "caller state must not change")

	stored, err := inner.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Extra["user"])
	assert.Equal(t, middleware.Mask, stored.Extra["user_password"])
	assert.Equal(t, map[string]any{"token": middleware.Mask, "page": "2"}, stored.Extra["query"])
	assert.Equal(t, map[string]any{"password_hint": middleware.Mask}, stored.Extra["profile"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	inner := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"secret"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(7)})
	require.NoError(t, err)

	store := middleware.Chain(inner, pii, enc)
	ctx := context.Background()
	state := domain.NewState("/", "")
	state.Extra["secret"] = "x"
	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Extra["secret"])

	raw, err := inner.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, raw.Extra, "__encrypted__")
}
