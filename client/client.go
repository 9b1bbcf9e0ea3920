package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures a Client. Zero values fall back to the documented
// defaults; only Dialer is required.
type Options struct {
	Dialer Dialer

	// Store holds the local conversation cache. Defaults to a MemoryStore.
	Store ConversationStore

	// AckTimeout bounds the wait for a send acknowledgement.
	AckTimeout time.Duration

	// TypingWindow is how long a peer stays typing without a fresh signal.
	TypingWindow time.Duration

	Logger *logrus.Logger
}

// Client is the top-level entry point: one instance per authenticated user
// session, owning one connection and the state derived from it.
type Client struct {
	bus      *Bus
	mgr      *Manager
	store    ConversationStore
	presence *PresenceTracker
	typing   *TypingCoordinator
	channel  *MessageChannel
	sync     *Synchronizer
	receipts *ReadReceipts
}

// New wires the client components onto a shared event bus. The returned
// client is disconnected; call Connect to go live.
func New(opts Options) *Client {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}

	bus := NewBus()
	mgr := NewManager(opts.Dialer, bus, opts.Logger)

	return &Client{
		bus:      bus,
		mgr:      mgr,
		store:    store,
		presence: NewPresenceTracker(bus),
		typing:   NewTypingCoordinator(bus, mgr, opts.TypingWindow),
		channel:  NewMessageChannel(bus, mgr, opts.AckTimeout),
		sync:     NewSynchronizer(bus, store),
		receipts: NewReadReceipts(mgr),
	}
}

// Connect establishes the persistent connection. A missing credential makes
// the call a silent no-op; duplicates while connecting or connected are
// ignored.
func (c *Client) Connect(credential string) { c.mgr.Connect(credential) }

// Disconnect tears the connection down without scheduling a reconnect.
func (c *Client) Disconnect() { c.mgr.Disconnect() }

// SetForeground tracks the app lifecycle: background disconnects, foreground
// reconnects if the connection was left down.
func (c *Client) SetForeground(fg bool) { c.mgr.SetForeground(fg) }

// Close releases the client permanently: the connection, every timer and
// every subscriber. The client cannot be reused afterwards.
func (c *Client) Close() {
	c.mgr.Close()
	c.typing.Stop()
	c.bus.Reset()
}

// IsConnected reports whether the connection is live.
func (c *Client) IsConnected() bool { return c.mgr.IsConnected() }

// ConnectionState returns the lifecycle state for display.
func (c *Client) ConnectionState() State { return c.mgr.State() }

// OnConnectError registers the handler for connection-level failures, both
// dial errors and handshake rejections.
func (c *Client) OnConnectError(fn func(message string)) { c.mgr.OnConnectError(fn) }

// Events exposes the bus for subscribing to transport events.
func (c *Client) Events() *Bus { return c.bus }

// JoinConversation subscribes the connection to a conversation's room so
// subsequent broadcasts for it are delivered. Fire-and-forget.
func (c *Client) JoinConversation(conversationID string) {
	_ = c.mgr.writeFrame(outboundFrame{
		Type:           frameJoinConversation,
		ConversationID: conversationID,
	})
}

// SendMessage sends content into the conversation and waits for the
// acknowledgement. It returns the created message, or nil when the send did
// not complete: disconnected, rejected, timed out or the context ended.
// Callers needing delivery on nil fall back to the request/response path.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) *Message {
	return c.channel.SendMessage(ctx, conversationID, content)
}

// SendTyping emits a typing signal for the conversation. Fire-and-forget.
func (c *Client) SendTyping(conversationID string, isTyping bool) {
	c.typing.SendTyping(conversationID, isTyping)
}

// TypingUsers returns the users currently typing in the conversation.
func (c *Client) TypingUsers(conversationID string) []string {
	return c.typing.TypingUsers(conversationID)
}

// MarkRead signals that the caller has read the conversation.
func (c *Client) MarkRead(conversationID string) { c.receipts.MarkRead(conversationID) }

// IsUserOnline reports whether the user is known to be online.
func (c *Client) IsUserOnline(userID string) bool { return c.presence.IsUserOnline(userID) }

// Conversation returns the locally cached view of a conversation.
func (c *Client) Conversation(conversationID string) (CachedConversation, bool) {
	return c.store.Get(conversationID)
}

// Store exposes the underlying cache for callers that fetch full state over
// the request/response path and need to seed or invalidate it.
func (c *Client) Store() ConversationStore { return c.store }
