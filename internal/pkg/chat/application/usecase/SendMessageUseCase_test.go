package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

func openTestConversation(t *testing.T, repo *fakeRepo) *chat.Conversation {
	t.Helper()
	conv, err := repo.FindOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	return conv
}

func TestSendMessagePersistsAndStampsConversation(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	uc := NewSendMessageUseCase(repo, newFakeGate(eligiblePair()), nil)

	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Content:        "  Hello!  ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	assert.Equal(t, "Hello!", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())

	stored, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *stored.LastMessageAt)
}

func TestSendMessageRequiresParticipant(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	uc := NewSendMessageUseCase(repo, newFakeGate(eligiblePair()), nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "mallory",
		Content:        "hi",
	})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	uc := NewSendMessageUseCase(repo, newFakeGate(eligiblePair()), nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Content:        "   ",
	})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	uc := NewSendMessageUseCase(newFakeRepo(), newFakeGate(eligiblePair()), nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-404",
		SenderID:       "alice",
		Content:        "hi",
	})
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
}

// Eligibility is re-checked per send: a block after the conversation was
// created must stop traffic even though the thread exists.
func TestSendMessageReChecksEligibility(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	gate := newFakeGate(eligiblePair())
	uc := NewSendMessageUseCase(repo, gate, nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "first",
	})
	require.NoError(t, err)

	gate.set(chat.RelationView{MutualFollow: true, Blocked: true, RoleA: chat.RoleTrusted, RoleB: chat.RoleTrusted})

	_, err = uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "second",
	})
	assert.ErrorIs(t, err, chat.ErrUserBlocked)

	gate.set(chat.RelationView{MutualFollow: false, RoleA: chat.RoleTrusted, RoleB: chat.RoleTrusted})

	_, err = uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "third",
	})
	assert.ErrorIs(t, err, chat.ErrNotMutualFollow)
}

func TestSendMessageInvalidatesBothSummaries(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	cache := newFakeCache()
	summaries := NewSummaryCache(cache)
	summaries.Write(context.Background(), "alice", nil)
	summaries.Write(context.Background(), "bob", nil)

	uc := NewSendMessageUseCase(repo, newFakeGate(eligiblePair()), summaries)
	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "hi",
	})
	require.NoError(t, err)

	_, ok := summaries.Read(context.Background(), "alice")
	assert.False(t, ok)
	_, ok = summaries.Read(context.Background(), "bob")
	assert.False(t, ok)
}

func TestSendMessageWithoutGateSkipsCheck(t *testing.T) {
	repo := newFakeRepo()
	conv := openTestConversation(t, repo)
	uc := NewSendMessageUseCase(repo, nil, nil)

	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: "bob", Content: "hi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
}
