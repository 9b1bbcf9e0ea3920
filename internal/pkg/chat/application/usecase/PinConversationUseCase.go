package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// PinConversationInput toggles the per-participant pin flag.
type PinConversationInput struct {
	ConversationID string
	UserID         string
	Pinned         bool
}

// PinConversationUseCase pins or unpins a conversation for one participant.
type PinConversationUseCase struct {
	Repo      repository.ChatRepository
	Summaries *SummaryCache
}

func NewPinConversationUseCase(repo repository.ChatRepository, summaries *SummaryCache) *PinConversationUseCase {
	return &PinConversationUseCase{Repo: repo, Summaries: summaries}
}

func (uc *PinConversationUseCase) Execute(ctx context.Context, in PinConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("conversation_id and user_id are required")
	}

	err := uc.Repo.SetPinned(ctx, in.ConversationID, in.UserID, in.Pinned)
	if err != nil {
		if errors.Is(err, chat.ErrNotParticipant) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.Summaries.Invalidate(ctx, in.UserID)
	return nil
}
