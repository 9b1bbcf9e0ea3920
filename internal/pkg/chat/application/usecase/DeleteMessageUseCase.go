package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// DeleteMessageInput identifies the message and who is deleting it.
type DeleteMessageInput struct {
	MessageID string
	UserID    string
}

// DeleteMessageUseCase soft-deletes a message: it disappears from normal
// views but stays in storage. Only the sender may delete, with no time window.
type DeleteMessageUseCase struct {
	Repo      repository.ChatRepository
	Summaries *SummaryCache
}

func NewDeleteMessageUseCase(repo repository.ChatRepository, summaries *SummaryCache) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{Repo: repo, Summaries: summaries}
}

// Execute returns the deleted message so the gateway can broadcast the event.
func (uc *DeleteMessageUseCase) Execute(ctx context.Context, in DeleteMessageInput) (*chat.Message, error) {
	if in.MessageID == "" || in.UserID == "" {
		return nil, fmt.Errorf("message_id and user_id are required")
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg.SenderID != in.UserID {
		return nil, chat.ErrNotSender
	}

	if err := uc.Repo.SetMessageDeleted(ctx, in.MessageID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.Deleted = true

	// A deleted message changes both participants' summary views, not just
	// the deleter's. A failed conversation lookup only skips invalidation;
	// the delete itself already committed.
	if conv, err := uc.Repo.GetConversation(ctx, msg.ConversationID); err == nil {
		uc.Summaries.Invalidate(ctx, conv.UserA, conv.UserB)
	}
	return msg, nil
}
