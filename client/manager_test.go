package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, dialer Dialer) (*Manager, *Bus) {
	t.Helper()
	bus := NewBus()
	mgr := NewManager(dialer, bus, nil)
	t.Cleanup(mgr.Close)
	return mgr, bus
}

func waitConnected(t *testing.T, mgr *Manager) {
	t.Helper()
	require.Eventually(t, mgr.IsConnected, 2*time.Second, 5*time.Millisecond)
}

func TestConnectWithoutCredentialIsNoop(t *testing.T) {
	dialer := &fakeDialer{}
	mgr, _ := newTestManager(t, dialer)

	mgr.Connect("")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, dialer.dialCount())
	assert.Equal(t, StateDisconnected, mgr.State())
}

func TestConnectIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	dialer.enqueue(newFakeConn(), newFakeConn())
	mgr, _ := newTestManager(t, dialer)

	mgr.Connect("token")
	mgr.Connect("token")
	waitConnected(t, mgr)
	mgr.Connect("token")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestConnectedFrameReachesSubscribers(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(conn)
	mgr, bus := newTestManager(t, dialer)

	var gotUser atomic.Value
	bus.OnConnected(func(ev ConnectedEvent) { gotUser.Store(ev.UserID) })

	mgr.Connect("token")
	waitConnected(t, mgr)
	conn.push(&Frame{Type: eventConnected, UserID: "user-1"})

	require.Eventually(t, func() bool {
		v, _ := gotUser.Load().(string)
		return v == "user-1"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBackgroundDisconnectsForegroundReconnects(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(first, second)
	mgr, bus := newTestManager(t, dialer)

	var disconnects atomic.Int32
	bus.OnDisconnected(func(DisconnectedEvent) { disconnects.Add(1) })

	mgr.Connect("token")
	waitConnected(t, mgr)

	mgr.SetForeground(false)
	require.Eventually(t, func() bool {
		return mgr.State() == StateDisconnected && disconnects.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())

	mgr.SetForeground(true)
	waitConnected(t, mgr)
	assert.Equal(t, 2, dialer.dialCount())
	assert.Equal(t, int32(1), disconnects.Load())
}

func TestBackgroundWhileDisconnectedDoesNothing(t *testing.T) {
	dialer := &fakeDialer{}
	mgr, bus := newTestManager(t, dialer)

	var disconnects atomic.Int32
	bus.OnDisconnected(func(DisconnectedEvent) { disconnects.Add(1) })

	mgr.SetForeground(false)
	mgr.SetForeground(true)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, dialer.dialCount())
	assert.Equal(t, int32(0), disconnects.Load())
}

func TestTransportLossReconnects(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(first, second)
	mgr, _ := newTestManager(t, dialer)

	mgr.Connect("token")
	waitConnected(t, mgr)

	// Kill the transport out from under the client; backoff starts at 1s.
	_ = first.Close()

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 2 && mgr.IsConnected()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDialFailureReportsAndRetries(t *testing.T) {
	second := newFakeConn()
	dialer := &fakeDialer{}
	mgr, _ := newTestManager(t, dialer)

	var reported atomic.Int32
	mgr.OnConnectError(func(string) { reported.Add(1) })

	mgr.Connect("token")
	require.Eventually(t, func() bool { return reported.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	dialer.enqueue(second)
	waitConnected(t, mgr)
}

func TestConnectErrorFrameReachesCallback(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(conn)
	mgr, _ := newTestManager(t, dialer)

	var gotMessage atomic.Value
	mgr.OnConnectError(func(msg string) { gotMessage.Store(msg) })

	mgr.Connect("token")
	waitConnected(t, mgr)
	conn.push(&Frame{Type: eventConnectError, Error: "authentication failed"})

	require.Eventually(t, func() bool {
		v, _ := gotMessage.Load().(string)
		return v == "authentication failed"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseIsTerminal(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.enqueue(conn, newFakeConn())
	bus := NewBus()
	mgr := NewManager(dialer, bus, nil)

	mgr.Connect("token")
	waitConnected(t, mgr)

	mgr.Close()
	mgr.Connect("token")
	mgr.SetForeground(true)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
	assert.False(t, mgr.IsConnected())
}

func TestWriteFrameWhileDisconnected(t *testing.T) {
	mgr, _ := newTestManager(t, &fakeDialer{})

	err := mgr.writeFrame(outboundFrame{Type: frameTyping})
	assert.ErrorIs(t, err, errNotConnected)
}
