package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState("/catalog/42", domain.EventNavigate)
		state.Route = "catalog"
		state.PrevRoute = "home"
		state.Extra["id"] = "42"

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Resource, loaded.Resource)
		assert.Equal(t, state.Route, loaded.Route)
		assert.Equal(t, state.PrevRoute, loaded.PrevRoute)
		assert.Equal(t, "42", loaded.Extra["id"])
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Extra["id"] = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "42", again.Extra["id"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := sessionID + "-other"
		require.NoError(t, store.Save(ctx, other, domain.NewState("/", domain.EventInit)))

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, sessionID)
		assert.Contains(t, sessions, other)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})
}

// RunEventBusContract verifies that events published on a topic reach its subscribers only.
func RunEventBusContract(t *testing.T, pub EventPublisher, sub EventSubscriber) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	topic := "contract-" + time.Now().Format("150405.000000")

	events, err := sub.Subscribe(ctx, topic)
	require.NoError(t, err)
	other, err := sub.Subscribe(ctx, topic+"-other")
	require.NoError(t, err)

	sent := domain.HostStatusEvent{
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Details:   domain.StatusDetails{Status: domain.StatusError, Message: "boom", Level: domain.LevelError},
		Slots:     map[string]domain.Status{"header": domain.StatusError},
	}
	require.NoError(t, pub.Publish(ctx, topic, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Details, got.Details)
		assert.Equal(t, sent.Slots, got.Slots)
		assert.True(t, sent.Timestamp.Equal(got.Timestamp))
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}

	select {
	case got := <-other:
		t.Fatalf("unexpected event on other topic: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
