package usecase

import (
	"context"
	"fmt"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch a conversation's history.
type GetMessageInput struct {
	ConversationID string
	UserID         string
	Limit          int
	Offset         int
}

// GetMessageUseCase fetches message history from the system of record. This
// is the full-fetch path clients fall back to when their event-patched cache
// may be stale.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("conversation_id and user_id are required")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNotParticipant
	}

	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
