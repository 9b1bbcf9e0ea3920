package client

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Message is the client-side view of a chat message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	Deleted        bool      `json:"deleted"`
	Recalled       bool      `json:"recalled"`
}

// Frame is the decode target for every server → client frame.
type Frame struct {
	Type           string          `json:"type"`
	AckID          string          `json:"ack_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	IsTyping       bool            `json:"is_typing,omitempty"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	Message        *Message        `json:"message,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Code           string          `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// outboundFrame is the encode source for every client → server frame.
type outboundFrame struct {
	Type           string `json:"type"`
	AckID          string `json:"ack_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// Wire type strings, matching the gateway's vocabulary.
const (
	frameJoinConversation = "joinConversation"
	frameSendMessage      = "sendMessage"
	frameTyping           = "typing"
	frameMarkRead         = "markRead"

	eventConnected       = "connected"
	eventConnectError    = "connect_error"
	eventAck             = "ack"
	eventNewMessage      = "newMessage"
	eventMessagesRead    = "messagesRead"
	eventMessageDeleted  = "messageDeleted"
	eventMessageRecalled = "messageRecalled"
	eventUserTyping      = "userTyping"
	eventUserOnline      = "userOnline"
	eventUserOffline     = "userOffline"
	eventNotification    = "notification"
	eventError           = "error"
)

// Conn is one live transport session. Implementations need not be safe for
// concurrent writes; the Manager serializes them.
type Conn interface {
	ReadFrame() (*Frame, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens transport sessions. The credential travels in the handshake,
// never in individual frames.
type Dialer interface {
	Dial(ctx context.Context, credential string) (Conn, error)
}

// WebsocketDialer dials the gateway's chat endpoint over gorilla/websocket.
type WebsocketDialer struct {
	// URL is the ws:// or wss:// endpoint, e.g. wss://host/api/v1/chat/ws.
	URL string

	// HandshakeTimeout bounds the dial; defaults to 10s.
	HandshakeTimeout time.Duration
}

var _ Dialer = (*WebsocketDialer)(nil)

func (d *WebsocketDialer) Dial(ctx context.Context, credential string) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", credential)
	u.RawQuery = q.Encode()

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadFrame() (*Frame, error) {
	var frame Frame
	if err := c.ws.ReadJSON(&frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

func (c *wsConn) WriteJSON(v interface{}) error {
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
