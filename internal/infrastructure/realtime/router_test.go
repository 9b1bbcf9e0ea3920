package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConn builds a Connection backed by a real websocket pair and returns
// the peer side for asserting delivery.
func newTestConn(t *testing.T, userID string) (*Connection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverSide <- ws
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := NewConnection(userID, <-serverSide)
	t.Cleanup(func() { conn.Close(websocket.CloseNormalClosure, "test done") })
	return conn, client
}

func readPayload(t *testing.T, client *websocket.Conn) string {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	return string(payload)
}

type presenceRecorder struct {
	mu     sync.Mutex
	events []string
}

func (p *presenceRecorder) hook(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := "offline"
	if online {
		state = "online"
	}
	p.events = append(p.events, userID+":"+state)
}

func (p *presenceRecorder) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func TestAttachDetachDrivesPresence(t *testing.T) {
	router := NewRouter()
	rec := &presenceRecorder{}
	router.OnPresence(rec.hook)

	conn, _ := newTestConn(t, "alice")
	router.Attach(conn)

	assert.True(t, router.IsUserOnline("alice"))
	assert.Equal(t, []string{"alice:online"}, rec.all())

	router.Detach(conn)
	assert.False(t, router.IsUserOnline("alice"))
	assert.Equal(t, []string{"alice:online", "alice:offline"}, rec.all())
}

func TestSessionReplacementIsNotPresenceTransition(t *testing.T) {
	router := NewRouter()
	rec := &presenceRecorder{}
	router.OnPresence(rec.hook)

	first, firstClient := newTestConn(t, "alice")
	second, _ := newTestConn(t, "alice")

	router.Attach(first)
	router.Attach(second)

	// The replaced session is closed out from under its client.
	require.NoError(t, firstClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := firstClient.ReadMessage()
	require.Error(t, err)

	assert.True(t, router.IsUserOnline("alice"))
	assert.Equal(t, []string{"alice:online"}, rec.all())

	// Detaching the stale session must not flap presence either.
	router.Detach(first)
	assert.True(t, router.IsUserOnline("alice"))
	assert.Equal(t, []string{"alice:online"}, rec.all())

	router.Detach(second)
	assert.False(t, router.IsUserOnline("alice"))
	assert.Equal(t, []string{"alice:online", "alice:offline"}, rec.all())
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	router := NewRouter()

	alice, _ := newTestConn(t, "alice")
	bob, bobClient := newTestConn(t, "bob")
	carol, _ := newTestConn(t, "carol")
	router.Attach(alice)
	router.Attach(bob)
	router.Attach(carol)

	router.Join("conv-1", alice)
	router.Join("conv-1", bob)

	delivered := router.Broadcast("conv-1", []byte(`{"type":"newMessage"}`), "alice")
	assert.Equal(t, 1, delivered)
	assert.Equal(t, `{"type":"newMessage"}`, readPayload(t, bobClient))
}

func TestBroadcastAfterLeave(t *testing.T) {
	router := NewRouter()

	alice, _ := newTestConn(t, "alice")
	router.Attach(alice)
	router.Join("conv-1", alice)
	router.Leave("conv-1", alice)

	assert.Equal(t, 0, router.Broadcast("conv-1", []byte("x"), ""))
}

func TestDetachLeavesJoinedRooms(t *testing.T) {
	router := NewRouter()

	alice, _ := newTestConn(t, "alice")
	router.Attach(alice)
	router.Join("conv-1", alice)

	router.Detach(alice)
	assert.Equal(t, 0, router.Broadcast("conv-1", []byte("x"), ""))
}

func TestJoinRequiresAttachedSession(t *testing.T) {
	router := NewRouter()

	alice, _ := newTestConn(t, "alice")
	router.Join("conv-1", alice)

	assert.Equal(t, 0, router.Broadcast("conv-1", []byte("x"), ""))
}

func TestNotifyUser(t *testing.T) {
	router := NewRouter()

	bob, bobClient := newTestConn(t, "bob")
	router.Attach(bob)

	require.True(t, router.NotifyUser("bob", []byte(`{"type":"notification"}`)))
	assert.Equal(t, `{"type":"notification"}`, readPayload(t, bobClient))

	assert.False(t, router.NotifyUser("nobody", []byte("x")))
}

func TestBroadcastAllExcludesSender(t *testing.T) {
	router := NewRouter()

	alice, _ := newTestConn(t, "alice")
	bob, bobClient := newTestConn(t, "bob")
	router.Attach(alice)
	router.Attach(bob)

	router.BroadcastAll([]byte(`{"type":"userOnline"}`), "alice")
	assert.Equal(t, `{"type":"userOnline"}`, readPayload(t, bobClient))
}
