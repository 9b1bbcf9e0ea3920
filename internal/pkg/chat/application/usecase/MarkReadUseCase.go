package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// MarkReadInput identifies who read which conversation.
type MarkReadInput struct {
	ConversationID string
	UserID         string
	ReadAt         time.Time
}

// MarkReadUseCase flags every message not sent by the user as read. The
// gateway calls it fire-and-forget; callers never await an acknowledgement.
type MarkReadUseCase struct {
	Repo      repository.ChatRepository
	Summaries *SummaryCache
}

func NewMarkReadUseCase(repo repository.ChatRepository, summaries *SummaryCache) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, Summaries: summaries}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("conversation_id and user_id are required")
	}
	if in.ReadAt.IsZero() {
		in.ReadAt = time.Now().UTC()
	}

	err := uc.Repo.MarkMessagesRead(ctx, in.ConversationID, in.UserID, in.ReadAt)
	if err != nil {
		if errors.Is(err, chat.ErrNotParticipant) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.Summaries.Invalidate(ctx, in.UserID)
	return nil
}
