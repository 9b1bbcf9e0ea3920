package realtime

import (
	"encoding/json"
	"time"
)

// Wire vocabulary for the chat socket. Client → server frames expect at most
// one acknowledgement (sendMessage only); everything else is fire-and-forget.
const (
	FrameJoinConversation = "joinConversation"
	FrameSendMessage      = "sendMessage"
	FrameTyping           = "typing"
	FrameMarkRead         = "markRead"

	EventConnected       = "connected"
	EventConnectError    = "connect_error"
	EventAck             = "ack"
	EventNewMessage      = "newMessage"
	EventMessagesRead    = "messagesRead"
	EventMessageDeleted  = "messageDeleted"
	EventMessageRecalled = "messageRecalled"
	EventUserTyping      = "userTyping"
	EventUserOnline      = "userOnline"
	EventUserOffline     = "userOffline"
	EventNotification    = "notification"
	EventError           = "error"
)

// InboundFrame is the single decode target for all client → server frames.
type InboundFrame struct {
	Type           string `json:"type"`
	AckID          string `json:"ack_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// MessagePayload is the wire form of a persisted message.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	Deleted        bool      `json:"deleted"`
	Recalled       bool      `json:"recalled"`
}

// AckFrame answers exactly one sendMessage frame. Message is set on success,
// Error carries the failure reason otherwise; never both.
type AckFrame struct {
	Type    string          `json:"type"`
	AckID   string          `json:"ack_id"`
	Message *MessagePayload `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// EventFrame is the generic server → client envelope for everything that is
// not a send acknowledgement.
type EventFrame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	IsTyping       bool            `json:"is_typing,omitempty"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	Message        *MessagePayload `json:"message,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Code           string          `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
}
