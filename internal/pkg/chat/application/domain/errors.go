package chat

import "errors"

// Domain-level errors for private messaging behaviors.
var (
	ErrMissingIdentity      = errors.New("chat: conversation_id and sender_id are required")
	ErrEmptyMessage         = errors.New("chat: message content is empty")
	ErrNotParticipant       = errors.New("chat: user is not a participant in the conversation")
	ErrNotMutualFollow      = errors.New("chat: users do not mutually follow each other")
	ErrUserBlocked          = errors.New("chat: messaging not allowed because one of the parties is blocked")
	ErrInsufficientRole     = errors.New("chat: both users need an elevated trust role to message")
	ErrNotSender            = errors.New("chat: only the sender may perform this action")
	ErrAlreadyRecalled      = errors.New("chat: message is already recalled")
	ErrRecallWindowElapsed  = errors.New("chat: recall window has elapsed")
	ErrMessageNotFound      = errors.New("chat: message not found")
	ErrConversationNotFound = errors.New("chat: conversation not found")
)
