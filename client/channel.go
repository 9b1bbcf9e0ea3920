package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAckTimeout bounds the wait for a send acknowledgement. Without it a
// peer that never acknowledges would leak a pending call forever.
const DefaultAckTimeout = 10 * time.Second

// MessageChannel implements the send-with-acknowledgement protocol. Each
// send is correlated by a generated ack id and settles exactly once: with
// the created message on success, with nil on failure, rejection, timeout or
// a dead connection. No retry happens at this layer; retry policy belongs to
// the caller so it is not duplicated across two layers.
type MessageChannel struct {
	mgr        *Manager
	ackTimeout time.Duration

	mu      sync.Mutex
	pending map[string]chan *Message
}

// NewMessageChannel subscribes the channel to acknowledgement events and
// fails all in-flight sends on disconnect.
func NewMessageChannel(bus *Bus, mgr *Manager, ackTimeout time.Duration) *MessageChannel {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	ch := &MessageChannel{
		mgr:        mgr,
		ackTimeout: ackTimeout,
		pending:    make(map[string]chan *Message),
	}
	bus.OnAck(ch.applyAck)
	bus.OnDisconnected(func(DisconnectedEvent) { ch.failAll() })
	return ch
}

// SendMessage sends content into the conversation over the live connection
// and waits for the single acknowledgement. When the connection is down it
// returns nil without any network transmission; callers needing delivery
// then fall back to the request/response path themselves and invalidate
// their own cache afterwards.
func (ch *MessageChannel) SendMessage(ctx context.Context, conversationID, content string) *Message {
	if !ch.mgr.IsConnected() {
		return nil
	}

	ackID := uuid.NewString()
	wait := make(chan *Message, 1)

	ch.mu.Lock()
	ch.pending[ackID] = wait
	ch.mu.Unlock()

	err := ch.mgr.writeFrame(outboundFrame{
		Type:           frameSendMessage,
		AckID:          ackID,
		ConversationID: conversationID,
		Content:        content,
	})
	if err != nil {
		ch.take(ackID)
		return nil
	}

	timer := time.NewTimer(ch.ackTimeout)
	defer timer.Stop()

	select {
	case msg := <-wait:
		return msg
	case <-timer.C:
		ch.take(ackID)
		return nil
	case <-ctx.Done():
		ch.take(ackID)
		return nil
	}
}

// applyAck resolves the matching pending send. An ack carrying an error
// resolves to nil; unmatched acks (already timed out) are dropped.
func (ch *MessageChannel) applyAck(ev AckEvent) {
	wait := ch.take(ev.AckID)
	if wait == nil {
		return
	}
	if ev.Error != "" {
		wait <- nil
		return
	}
	wait <- ev.Message
}

// take removes and returns the pending entry, guaranteeing each send settles
// at most once regardless of which path wins.
func (ch *MessageChannel) take(ackID string) chan *Message {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	wait, ok := ch.pending[ackID]
	if !ok {
		return nil
	}
	delete(ch.pending, ackID)
	return wait
}

func (ch *MessageChannel) failAll() {
	ch.mu.Lock()
	pending := ch.pending
	ch.pending = make(map[string]chan *Message)
	ch.mu.Unlock()
	for _, wait := range pending {
		wait <- nil
	}
}
