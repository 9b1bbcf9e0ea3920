package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// RecallMessageInput identifies the message and who is recalling it.
type RecallMessageInput struct {
	MessageID string
	UserID    string
}

// RecallMessageUseCase recalls a sent message. The recall window is a
// product-level policy enforced here, server-side; clients expose the action
// without their own window check.
type RecallMessageUseCase struct {
	Repo      repository.ChatRepository
	Summaries *SummaryCache

	// now is swappable for tests.
	now func() time.Time
}

func NewRecallMessageUseCase(repo repository.ChatRepository, summaries *SummaryCache) *RecallMessageUseCase {
	return &RecallMessageUseCase{Repo: repo, Summaries: summaries, now: time.Now}
}

// Execute returns the recalled message so the gateway can broadcast the event.
func (uc *RecallMessageUseCase) Execute(ctx context.Context, in RecallMessageInput) (*chat.Message, error) {
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

	if err := msg.CanRecall(in.UserID, uc.now().UTC()); err != nil {
		return nil, err
	}

	if err := uc.Repo.SetMessageRecalled(ctx, in.MessageID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.Recalled = true

	// The peer's summary shows the recalled message too; invalidate both
	// sides like the send path does.
	if conv, err := uc.Repo.GetConversation(ctx, msg.ConversationID); err == nil {
		uc.Summaries.Invalidate(ctx, conv.UserA, conv.UserB)
	}
	return msg, nil
}
