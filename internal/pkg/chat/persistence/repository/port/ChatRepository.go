package repository

import (
	"context"
	"time"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the private messaging
// domain. The message store is the system of record; the realtime layer
// never trusts its own caches over it.
type ChatRepository interface {
	// FindOrCreateConversation returns the conversation between the two users,
	// creating it (with both participant rows) on first eligible contact.
	FindOrCreateConversation(ctx context.Context, userA, userB string) (*chat.Conversation, error)

	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)

	// ListConversations returns the user's conversations, pinned first, then
	// by last-message timestamp descending.
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)

	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
	SetPinned(ctx context.Context, conversationID, userID string, pinned bool) error

	// SaveMessage persists the message, advances the conversation's
	// last-message timestamp, and returns the generated id.
	SaveMessage(ctx context.Context, m chat.Message) (string, error)

	GetMessage(ctx context.Context, messageID string) (*chat.Message, error)

	// GetMessagesByConversation excludes soft-deleted messages; recalled
	// messages are returned with the flag set so clients can render a stub.
	GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error)

	// MarkMessagesRead flags every message in the conversation not sent by
	// userID as read and stamps the participant row. Read is per-direction,
	// not per-message.
	MarkMessagesRead(ctx context.Context, conversationID, userID string, readAt time.Time) error

	SetMessageDeleted(ctx context.Context, messageID string) error
	SetMessageRecalled(ctx context.Context, messageID string) error
}
