package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRegistry_SingleConnection(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New()

	assert.False(t, p.IsOnline(userID))

	wentOnline := p.Register(userID, "conn-1")
	assert.True(t, wentOnline)
	assert.True(t, p.IsOnline(userID))

	wentOffline := p.Unregister(userID, "conn-1")
	assert.True(t, wentOffline)
	assert.False(t, p.IsOnline(userID))
}

func TestPresenceRegistry_MultiDeviceRefCount(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New()

	assert.True(t, p.Register(userID, "phone"))
	assert.False(t, p.Register(userID, "laptop"), "second device must not re-announce online")
	assert.Equal(t, 2, p.ConnectionCount(userID))

	assert.False(t, p.Unregister(userID, "phone"), "user still online on the laptop")
	assert.True(t, p.IsOnline(userID))

	assert.True(t, p.Unregister(userID, "laptop"), "last device going away flips offline")
	assert.False(t, p.IsOnline(userID))
	assert.Equal(t, 0, p.ConnectionCount(userID))
}

func TestPresenceRegistry_DuplicateRegisterAndUnknownUnregister(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New()

	assert.True(t, p.Register(userID, "conn-1"))
	assert.False(t, p.Register(userID, "conn-1"), "same connection id registered twice")
	assert.Equal(t, 1, p.ConnectionCount(userID))

	assert.False(t, p.Unregister(userID, "ghost"), "unknown connection must not flip offline")
	assert.True(t, p.IsOnline(userID))

	assert.True(t, p.Unregister(userID, "conn-1"))
	assert.False(t, p.Unregister(userID, "conn-1"), "double unregister is a no-op")
}

func TestPresenceRegistry_OnlineUserIDs(t *testing.T) {
	p := NewPresenceRegistry()
	a, b := uuid.New(), uuid.New()

	p.Register(a, "c1")
	p.Register(b, "c2")
	p.Register(b, "c3")

	ids := p.OnlineUserIDs()
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)

	p.Unregister(b, "c2")
	p.Unregister(b, "c3")
	assert.ElementsMatch(t, []uuid.UUID{a}, p.OnlineUserIDs())
}

func TestPresenceRegistry_ConcurrentTransitions(t *testing.T) {
	p := NewPresenceRegistry()
	userID := uuid.New()
	const connections = 50

	var onlineEvents, offlineEvents int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < connections; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if p.Register(userID, fmt.Sprintf("conn-%d", i)) {
				mu.Lock()
				onlineEvents++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), onlineEvents, "exactly one registration observes the offline->online transition")
	require.Equal(t, connections, p.ConnectionCount(userID))

	for i := 0; i < connections; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if p.Unregister(userID, fmt.Sprintf("conn-%d", i)) {
				mu.Lock()
				offlineEvents++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), offlineEvents, "exactly one unregistration observes the online->offline transition")
	assert.False(t, p.IsOnline(userID))
}
