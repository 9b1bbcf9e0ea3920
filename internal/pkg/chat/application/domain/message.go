package chat

import (
	"strings"
	"time"
)

// RecallWindow is how long after sending a message its sender may recall it.
// Enforced server-side; clients expose the action without checking the window.
const RecallWindow = 2 * time.Minute

// Message is a log entry in a conversation. Content is immutable once
// persisted; recall and delete change visibility flags, not storage.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	Read           bool      `db:"read"`
	Deleted        bool      `db:"deleted"`
	Recalled       bool      `db:"recalled"`
}

// NewMessage validates and normalizes a message prior to persistence.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, ErrMissingIdentity
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return nil, ErrEmptyMessage
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}

// CanRecall reports whether the sender may still recall the message at "now".
func (m *Message) CanRecall(userID string, now time.Time) error {
	if m.SenderID != userID {
		return ErrNotSender
	}
	if m.Recalled {
		return ErrAlreadyRecalled
	}
	if now.Sub(m.CreatedAt) > RecallWindow {
		return ErrRecallWindowElapsed
	}
	return nil
}
