package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceTracksOnlineAndOffline(t *testing.T) {
	bus := NewBus()
	tr := NewPresenceTracker(bus)

	assert.False(t, tr.IsUserOnline("alice"))

	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	bus.publishPresence(PresenceEvent{UserID: "bob", Online: true})
	assert.True(t, tr.IsUserOnline("alice"))
	assert.True(t, tr.IsUserOnline("bob"))
	assert.Equal(t, 2, tr.OnlineCount())

	bus.publishPresence(PresenceEvent{UserID: "alice", Online: false})
	assert.False(t, tr.IsUserOnline("alice"))
	assert.True(t, tr.IsUserOnline("bob"))
}

func TestPresenceIsIdempotent(t *testing.T) {
	bus := NewBus()
	tr := NewPresenceTracker(bus)

	// Duplicate online signals must not require two offline signals to clear.
	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	assert.Equal(t, 1, tr.OnlineCount())

	bus.publishPresence(PresenceEvent{UserID: "alice", Online: false})
	assert.False(t, tr.IsUserOnline("alice"))

	bus.publishPresence(PresenceEvent{UserID: "alice", Online: false})
	assert.Equal(t, 0, tr.OnlineCount())
}

func TestPresenceClearedOnDisconnect(t *testing.T) {
	bus := NewBus()
	tr := NewPresenceTracker(bus)

	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	bus.publishDisconnected(DisconnectedEvent{})

	assert.False(t, tr.IsUserOnline("alice"))
	assert.Equal(t, 0, tr.OnlineCount())
}
