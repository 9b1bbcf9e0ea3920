package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

func TestJoinConversationChecksMembership(t *testing.T) {
	repo := newFakeRepo()
	conv, err := repo.FindOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	uc := NewJoinConversationUseCase(repo)

	assert.NoError(t, uc.Execute(context.Background(), JoinConversationInput{ConversationID: conv.ID, UserID: "alice"}))
	assert.ErrorIs(t,
		uc.Execute(context.Background(), JoinConversationInput{ConversationID: conv.ID, UserID: "mallory"}),
		chat.ErrNotParticipant)
}

func TestPinConversation(t *testing.T) {
	repo := newFakeRepo()
	conv, err := repo.FindOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	uc := NewPinConversationUseCase(repo, nil)
	require.NoError(t, uc.Execute(context.Background(), PinConversationInput{ConversationID: conv.ID, UserID: "alice", Pinned: true}))
	assert.True(t, repo.participants[partKey(conv.ID, "alice")].Pinned)

	// The pin is per-participant; bob's row is untouched.
	assert.False(t, repo.participants[partKey(conv.ID, "bob")].Pinned)

	require.NoError(t, uc.Execute(context.Background(), PinConversationInput{ConversationID: conv.ID, UserID: "alice", Pinned: false}))
	assert.False(t, repo.participants[partKey(conv.ID, "alice")].Pinned)

	assert.ErrorIs(t,
		uc.Execute(context.Background(), PinConversationInput{ConversationID: conv.ID, UserID: "mallory", Pinned: true}),
		chat.ErrNotParticipant)
}

func TestGetMessagesRequiresMembership(t *testing.T) {
	repo := newFakeRepo()
	conv, err := repo.FindOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	uc := NewGetMessageUseCase(repo)
	_, err = uc.Execute(context.Background(), GetMessageInput{ConversationID: conv.ID, UserID: "mallory"})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
}
