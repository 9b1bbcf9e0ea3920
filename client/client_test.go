package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseDropsSubscribers(t *testing.T) {
	c := New(Options{Dialer: &fakeDialer{}})

	var delivered atomic.Int32
	c.Events().OnNewMessage(func(NewMessageEvent) { delivered.Add(1) })

	c.Close()

	c.Events().publishNewMessage(NewMessageEvent{ConversationID: "conv-1"})
	assert.Equal(t, int32(0), delivered.Load())
}

func TestCloseWhileConnected(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(conn, newFakeConn())
	c := New(Options{Dialer: dialer})

	c.Connect("token")
	require.Eventually(t, c.IsConnected, 2*time.Second, 5*time.Millisecond)

	c.Close()
	require.Eventually(t, func() bool { return !c.IsConnected() }, 2*time.Second, 5*time.Millisecond)

	// Terminal: no reconnect after close.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

// Reset must leave the bus usable: the mutex survives and new subscribers
// can attach afterwards.
func TestBusResetKeepsBusUsable(t *testing.T) {
	bus := NewBus()

	var before, after atomic.Int32
	bus.OnPresence(func(PresenceEvent) { before.Add(1) })

	bus.Reset()
	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	assert.Equal(t, int32(0), before.Load())

	bus.OnPresence(func(PresenceEvent) { after.Add(1) })
	bus.publishPresence(PresenceEvent{UserID: "alice", Online: true})
	assert.Equal(t, int32(1), after.Load())
}
