package usecase

import (
	"context"
	"errors"
	"fmt"

	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	repository "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
}

// SendMessageUseCase persists a message into an existing conversation.
// Eligibility is re-checked on every send: a block or unfollow after the
// conversation was created must stop traffic immediately.
type SendMessageUseCase struct {
	Repo      repository.ChatRepository
	Gate      authzport.Gate
	Summaries *SummaryCache
}

func NewSendMessageUseCase(repo repository.ChatRepository, gate authzport.Gate, summaries *SummaryCache) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Gate: gate, Summaries: summaries}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("conversation_id and sender_id are required")
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, chat.ErrNotParticipant
	}

	if uc.Gate != nil {
		rel, err := uc.Gate.Relation(ctx, conv.UserA, conv.UserB)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthorization, err)
		}
		if err := rel.Eligible(); err != nil {
			return nil, err
		}
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
	})
	if err != nil {
		return nil, err
	}

	id, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	uc.Summaries.Invalidate(ctx, conv.UserA, conv.UserB)
	return msg, nil
}
