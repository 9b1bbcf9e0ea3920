package usecase

import (
	"context"
	"fmt"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// ListConversationsInput wraps the user whose threads are listed.
type ListConversationsInput struct {
	UserID string
}

// ListConversationsUseCase returns the user's conversation summary list,
// pinned first then most-recent. Served from the summary cache when warm.
type ListConversationsUseCase struct {
	Repo      repository.ChatRepository
	Summaries *SummaryCache
}

func NewListConversationsUseCase(repo repository.ChatRepository, summaries *SummaryCache) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Summaries: summaries}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.Conversation, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	if convs, ok := uc.Summaries.Read(ctx, in.UserID); ok {
		return convs, nil
	}

	convs, err := uc.Repo.ListConversations(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.Summaries.Write(ctx, in.UserID, convs)
	return convs, nil
}
