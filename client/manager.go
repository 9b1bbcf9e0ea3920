package client

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	backoffInitial = 1 * time.Second
	backoffCap     = 10 * time.Second
	dialTimeout    = 15 * time.Second
)

var errNotConnected = errors.New("client: not connected")

// Manager owns the lifecycle of one persistent connection per client
// instance. It is the exclusive owner of the transport: every other
// component emits through writeFrame and consumes through the bus, never
// touching the connection directly.
//
// Transport loss while foregrounded is retried indefinitely with bounded
// exponential backoff; there is deliberately no "gave up" state. Moving to
// background disconnects explicitly; returning to foreground reconnects if
// the connection was left down.
type Manager struct {
	dialer Dialer
	bus    *Bus
	log    *logrus.Entry

	mu         sync.Mutex
	state      State
	conn       Conn
	credential string
	foreground bool
	closed     bool
	// generation invalidates a running connect loop when the connection is
	// explicitly torn down, so a stale loop never reconnects.
	generation     uint64
	onConnectError func(message string)

	writeMu sync.Mutex

	closeCh chan struct{}
}

// NewManager constructs a Manager in the Disconnected, foregrounded state.
func NewManager(dialer Dialer, bus *Bus, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		dialer:     dialer,
		bus:        bus,
		foreground: true,
		closeCh:    make(chan struct{}),
		log:        logger.WithField("component", "chat_client"),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the connection is live.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// OnConnectError registers the callback that receives connection-level
// failure messages. Failures are reported, never thrown: the caller decides
// presentation.
func (m *Manager) OnConnectError(fn func(message string)) {
	m.mu.Lock()
	m.onConnectError = fn
	m.mu.Unlock()
}

// Connect establishes the persistent connection authenticated by credential.
// With no credential available the call is a silent no-op. Duplicate calls
// while already connecting or connected are idempotent no-ops: exactly one
// active connection is permitted per client instance.
func (m *Manager) Connect(credential string) {
	if credential == "" {
		return
	}
	m.mu.Lock()
	if m.closed || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.credential = credential
	m.state = StateConnecting
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	go m.run(gen)
}

// Disconnect tears the connection down explicitly without scheduling a
// reconnect. Foreground transitions and Close use it; it is also available
// to callers that want a manual cycle.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.disconnectLocked()
	m.mu.Unlock()
}

// SetForeground reacts to app lifecycle transitions: backgrounding while
// connected disconnects to conserve resources; foregrounding reconnects if
// the connection was left down.
func (m *Manager) SetForeground(fg bool) {
	m.mu.Lock()
	if m.closed || m.foreground == fg {
		m.mu.Unlock()
		return
	}
	m.foreground = fg

	if !fg {
		if m.state != StateDisconnected {
			m.disconnectLocked()
		}
		m.mu.Unlock()
		return
	}

	needReconnect := m.state == StateDisconnected && m.credential != ""
	cred := m.credential
	m.mu.Unlock()

	if needReconnect {
		m.Connect(cred)
	}
}

// Close is terminal: it tears down the connection and stops any pending
// backoff. A closed Manager never connects again.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.disconnectLocked()
	m.mu.Unlock()
	close(m.closeCh)
}

// writeFrame sends one frame over the live connection, serializing writers.
func (m *Manager) writeFrame(frame outboundFrame) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || conn == nil {
		return errNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// run is the connect/reconnect loop for one generation. It exits when the
// Manager is closed, backgrounded, or the generation is invalidated by an
// explicit disconnect.
func (m *Manager) run(gen uint64) {
	attempt := 0
	for {
		if !m.shouldRun(gen) {
			return
		}

		m.mu.Lock()
		cred := m.credential
		m.mu.Unlock()

		dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		conn, err := m.dialer.Dial(dialCtx, cred)
		cancel()
		if err != nil {
			m.reportConnectError(err.Error())
			attempt++
			if !m.sleepBackoff(gen, attempt) {
				return
			}
			continue
		}

		m.mu.Lock()
		if m.closed || gen != m.generation {
			m.mu.Unlock()
			_ = conn.Close()
			return
		}
		m.conn = conn
		m.state = StateConnected
		m.mu.Unlock()
		attempt = 0

		m.log.Debug("connection established")
		m.readLoop(conn)

		// Components observe the loss before any reconnect: pending sends
		// settle nil, presence and typing state reset.
		m.bus.publishDisconnected(DisconnectedEvent{})

		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		if m.closed || gen != m.generation || !m.foreground {
			if gen == m.generation && !m.closed {
				m.state = StateDisconnected
			}
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()

		attempt++
		if !m.sleepBackoff(gen, attempt) {
			return
		}
	}
}

// readLoop processes inbound frames one at a time until the transport dies.
func (m *Manager) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			_ = conn.Close()
			return
		}
		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame *Frame) {
	switch frame.Type {
	case eventConnected:
		m.bus.publishConnected(ConnectedEvent{UserID: frame.UserID})
	case eventConnectError:
		m.reportConnectError(frame.Error)
	case eventAck:
		m.bus.publishAck(AckEvent{AckID: frame.AckID, Message: frame.Message, Error: frame.Error})
	case eventNewMessage:
		if frame.Message != nil {
			m.bus.publishNewMessage(NewMessageEvent{
				ConversationID: frame.ConversationID,
				Message:        *frame.Message,
			})
		}
	case eventMessagesRead:
		ev := MessagesReadEvent{ConversationID: frame.ConversationID, UserID: frame.UserID}
		if frame.ReadAt != nil {
			ev.ReadAt = *frame.ReadAt
		}
		m.bus.publishMessagesRead(ev)
	case eventMessageDeleted:
		m.bus.publishMessageDeleted(MessageDeletedEvent{
			ConversationID: frame.ConversationID,
			MessageID:      frame.MessageID,
		})
	case eventMessageRecalled:
		m.bus.publishMessageRecalled(MessageRecalledEvent{
			ConversationID: frame.ConversationID,
			MessageID:      frame.MessageID,
		})
	case eventUserTyping:
		m.bus.publishUserTyping(UserTypingEvent{
			ConversationID: frame.ConversationID,
			UserID:         frame.UserID,
			IsTyping:       frame.IsTyping,
		})
	case eventUserOnline:
		m.bus.publishPresence(PresenceEvent{UserID: frame.UserID, Online: true})
	case eventUserOffline:
		m.bus.publishPresence(PresenceEvent{UserID: frame.UserID, Online: false})
	case eventNotification:
		m.bus.publishNotification(NotificationEvent{Data: frame.Data})
	case eventError:
		m.bus.publishServerError(ServerErrorEvent{Code: frame.Code, Message: frame.Error})
	default:
		m.log.WithField("frame_type", frame.Type).Debug("ignoring unknown frame")
	}
}

func (m *Manager) shouldRun(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.generation || !m.foreground {
		if gen == m.generation && !m.closed && m.state == StateConnecting {
			m.state = StateDisconnected
		}
		return false
	}
	return true
}

// sleepBackoff waits the bounded exponential delay with jitter. Returns
// false when the loop should stop instead of retrying.
func (m *Manager) sleepBackoff(gen uint64, attempt int) bool {
	delay := backoffCap
	if attempt < 5 {
		delay = backoffInitial << (attempt - 1)
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	// Up to 25% jitter keeps a fleet of clients from reconnecting in phase.
	delay += time.Duration(rand.Int63n(int64(delay/4) + 1))

	select {
	case <-time.After(delay):
	case <-m.closeCh:
		return false
	}
	return m.shouldRun(gen)
}

func (m *Manager) reportConnectError(message string) {
	m.mu.Lock()
	fn := m.onConnectError
	m.mu.Unlock()

	m.log.WithField("error", message).Warn("connect error")
	if fn != nil {
		fn(message)
	}
}

func (m *Manager) disconnectLocked() {
	m.generation++
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
}
