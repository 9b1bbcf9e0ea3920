// Package client implements the client half of the realtime private
// messaging layer: connection lifecycle, presence, typing indicators, the
// send/acknowledge protocol and local cache synchronization.
//
// All inbound events for one connection are dispatched from a single read
// loop, one handler at a time, so subscribers can mutate their own state
// without locking against each other. Subscribers that expose state to other
// goroutines (presence set, typing map) carry their own mutex.
package client

import (
	"encoding/json"
	"sync"
	"time"
)

// Events delivered by the transport. Each type gets its own subscriber list
// so handlers stay decoupled from wire framing and are unit-testable without
// a live connection.

type ConnectedEvent struct {
	UserID string
}

type DisconnectedEvent struct{}

type AckEvent struct {
	AckID   string
	Message *Message
	Error   string
}

type NewMessageEvent struct {
	ConversationID string
	Message        Message
}

type MessagesReadEvent struct {
	ConversationID string
	UserID         string
	ReadAt         time.Time
}

type MessageDeletedEvent struct {
	ConversationID string
	MessageID      string
}

type MessageRecalledEvent struct {
	ConversationID string
	MessageID      string
}

type UserTypingEvent struct {
	ConversationID string
	UserID         string
	IsTyping       bool
}

type PresenceEvent struct {
	UserID string
	Online bool
}

type NotificationEvent struct {
	Data json.RawMessage
}

type ServerErrorEvent struct {
	Code    string
	Message string
}

// Bus dispatches typed events to subscriber closures. Publishing happens on
// the connection's read loop; subscribing is safe from any goroutine.
type Bus struct {
	mu sync.RWMutex

	connected    []func(ConnectedEvent)
	disconnected []func(DisconnectedEvent)
	ack          []func(AckEvent)
	newMessage   []func(NewMessageEvent)
	read         []func(MessagesReadEvent)
	deleted      []func(MessageDeletedEvent)
	recalled     []func(MessageRecalledEvent)
	typing       []func(UserTypingEvent)
	presence     []func(PresenceEvent)
	notification []func(NotificationEvent)
	serverError  []func(ServerErrorEvent)
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) OnConnected(fn func(ConnectedEvent)) {
	b.mu.Lock()
	b.connected = append(b.connected, fn)
	b.mu.Unlock()
}

func (b *Bus) OnDisconnected(fn func(DisconnectedEvent)) {
	b.mu.Lock()
	b.disconnected = append(b.disconnected, fn)
	b.mu.Unlock()
}

func (b *Bus) OnAck(fn func(AckEvent)) {
	b.mu.Lock()
	b.ack = append(b.ack, fn)
	b.mu.Unlock()
}

func (b *Bus) OnNewMessage(fn func(NewMessageEvent)) {
	b.mu.Lock()
	b.newMessage = append(b.newMessage, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessagesRead(fn func(MessagesReadEvent)) {
	b.mu.Lock()
	b.read = append(b.read, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessageDeleted(fn func(MessageDeletedEvent)) {
	b.mu.Lock()
	b.deleted = append(b.deleted, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessageRecalled(fn func(MessageRecalledEvent)) {
	b.mu.Lock()
	b.recalled = append(b.recalled, fn)
	b.mu.Unlock()
}

func (b *Bus) OnUserTyping(fn func(UserTypingEvent)) {
	b.mu.Lock()
	b.typing = append(b.typing, fn)
	b.mu.Unlock()
}

func (b *Bus) OnPresence(fn func(PresenceEvent)) {
	b.mu.Lock()
	b.presence = append(b.presence, fn)
	b.mu.Unlock()
}

func (b *Bus) OnNotification(fn func(NotificationEvent)) {
	b.mu.Lock()
	b.notification = append(b.notification, fn)
	b.mu.Unlock()
}

func (b *Bus) OnServerError(fn func(ServerErrorEvent)) {
	b.mu.Lock()
	b.serverError = append(b.serverError, fn)
	b.mu.Unlock()
}

// Reset drops every subscriber. Called when the owning client is torn down.
// The lists are cleared in place; replacing the whole struct would also
// replace the mutex currently held.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.connected = nil
	b.disconnected = nil
	b.ack = nil
	b.newMessage = nil
	b.read = nil
	b.deleted = nil
	b.recalled = nil
	b.typing = nil
	b.presence = nil
	b.notification = nil
	b.serverError = nil
	b.mu.Unlock()
}

func (b *Bus) publishConnected(ev ConnectedEvent) {
	b.mu.RLock()
	fns := b.connected
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishDisconnected(ev DisconnectedEvent) {
	b.mu.RLock()
	fns := b.disconnected
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishAck(ev AckEvent) {
	b.mu.RLock()
	fns := b.ack
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishNewMessage(ev NewMessageEvent) {
	b.mu.RLock()
	fns := b.newMessage
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishMessagesRead(ev MessagesReadEvent) {
	b.mu.RLock()
	fns := b.read
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishMessageDeleted(ev MessageDeletedEvent) {
	b.mu.RLock()
	fns := b.deleted
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishMessageRecalled(ev MessageRecalledEvent) {
	b.mu.RLock()
	fns := b.recalled
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishUserTyping(ev UserTypingEvent) {
	b.mu.RLock()
	fns := b.typing
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishPresence(ev PresenceEvent) {
	b.mu.RLock()
	fns := b.presence
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishNotification(ev NotificationEvent) {
	b.mu.RLock()
	fns := b.notification
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) publishServerError(ev ServerErrorEvent) {
	b.mu.RLock()
	fns := b.serverError
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
