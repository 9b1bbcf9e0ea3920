package usecase

import (
	"context"
	"fmt"

	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// OpenConversationInput carries the pair of users opening a thread.
type OpenConversationInput struct {
	InitiatorID string
	PeerID      string
}

// OpenConversationUseCase creates (or finds) the conversation between two
// users after consulting the authorization gate. A conversation exists only
// between users who were mutually following and not blocking at creation time.
type OpenConversationUseCase struct {
	Repo repository.ChatRepository
	Gate authzport.Gate
}

func NewOpenConversationUseCase(repo repository.ChatRepository, gate authzport.Gate) *OpenConversationUseCase {
	return &OpenConversationUseCase{Repo: repo, Gate: gate}
}

func (uc *OpenConversationUseCase) Execute(ctx context.Context, in OpenConversationInput) (*chat.Conversation, error) {
	if in.InitiatorID == "" || in.PeerID == "" {
		return nil, fmt.Errorf("initiator and peer ids are required")
	}
	if in.InitiatorID == in.PeerID {
		return nil, fmt.Errorf("cannot open a conversation with yourself")
	}

	rel, err := uc.Gate.Relation(ctx, in.InitiatorID, in.PeerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if err := rel.Eligible(); err != nil {
		return nil, err
	}

	conv, err := uc.Repo.FindOrCreateConversation(ctx, in.InitiatorID, in.PeerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conv, nil
}
