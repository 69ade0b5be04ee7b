package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GatesAreReleased(t *testing.T) {
	m := NewManager(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%5)
			assert.NoError(t, m.Save(ctx, id, domain.NewState("/", domain.EventInit)))
			_, err := m.Resume(ctx, id, "")
			assert.NoError(t, err)
			assert.NoError(t, m.Delete(ctx, id))
		}()
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.gates)
}

func TestManager_GateOutlivesWaitingHolders(t *testing.T) {
	m := NewManager(memory.NewStore())
	ctx := context.Background()

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.WithLock(ctx, "s1", func(context.Context) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	waiting := make(chan struct{})
	go func() {
		defer close(waiting)
		_ = m.WithLock(ctx, "s1", func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.gates["s1"] != nil && m.gates["s1"].holders == 2
	}, time.Second, time.Millisecond)

	close(release)
	<-done
	<-waiting

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.gates)
}
