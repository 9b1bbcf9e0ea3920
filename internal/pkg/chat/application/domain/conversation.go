package chat

import (
	"strings"
	"time"
)

// Conversation is a private 1:1 thread between two platform users. The
// participant pair is stored in normalized order so the same two users can
// never own two threads. Conversations are never hard-deleted.
type Conversation struct {
	ID            string     `db:"id"`
	UserA         string     `db:"user_a"`
	UserB         string     `db:"user_b"`
	CreatedAt     time.Time  `db:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

// Participant captures per-user conversation state: the pin flag and the
// last time the user acknowledged the thread as read.
// Primary key: (ConversationID, UserID).
type Participant struct {
	ConversationID string     `db:"conversation_id"`
	UserID         string     `db:"user_id"`
	Pinned         bool       `db:"pinned"`
	LastReadAt     *time.Time `db:"last_read_at"`
}

// NormalizePair orders two user ids into the canonical (UserA, UserB) form.
func NormalizePair(a, b string) (string, string) {
	if strings.Compare(a, b) > 0 {
		return b, a
	}
	return a, b
}

// HasParticipant tells whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	return c.UserA == userID || c.UserB == userID
}

// PeerOf returns the other member of the pair, or "" if userID is not a member.
func (c *Conversation) PeerOf(userID string) string {
	switch {
	case c == nil:
		return ""
	case c.UserA == userID:
		return c.UserB
	case c.UserB == userID:
		return c.UserA
	default:
		return ""
	}
}
