package middleware_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/persistence/middleware"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw
}

func TestEncryption_Contract(t *testing.T) {
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(1)})(memory.NewStore())
	ports.RunStateStoreContract(t, store)
}

func TestEncryption_HidesState(t *testing.T) {
	inner := memory.NewStore()
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(1)})(inner)
	ctx := context.Background()

	state := domain.NewState("/account?token=abc", domain.EventNavigate)
	state.Route = "account"
	state.Extra["token"] = "abc"
	require.NoError(t, store.Save(ctx, "s1", state))

	raw, err := inner.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, raw.Resource)
	assert.Equal(t, "account", raw.Route)
	assert.NotContains(t, raw.Extra, "token")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state.Resource, loaded.Resource)
	assert.Equal(t, "abc", loaded.Extra["token"])
}

func TestEncryption_KeyRotation(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()

	old := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(1)})(inner)
	require.NoError(t, old.Save(ctx, "s1", domain.NewState("/old", "")))

	rotated := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(2), FallbackKeys: [][]byte{key(1)}})(inner)
	loaded, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "/old", loaded.Resource)

	wrong := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(3)})(inner)
	_, err = wrong.Load(ctx, "s1")
	assert.Error(t, err)
}

func TestEncryption_RefusesPlainStates(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, inner.Save(ctx, "plain", domain.NewState("/", "")))

	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: key(1)})(inner)
	_, err := store.Load(ctx, "plain")
	assert.Error(t, err)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNewEncryptionMiddleware_KeySize(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1), FallbackKeys: [][]byte{{1}}})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}
