package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

func TestOpenConversationCreatesOnce(t *testing.T) {
	repo := newFakeRepo()
	gate := newFakeGate(eligiblePair())
	uc := NewOpenConversationUseCase(repo, gate)

	conv, err := uc.Execute(context.Background(), OpenConversationInput{InitiatorID: "bob", PeerID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, conv)

	// Pair order is normalized, so the reverse direction finds the same thread.
	again, err := uc.Execute(context.Background(), OpenConversationInput{InitiatorID: "alice", PeerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, "alice", conv.UserA)
	assert.Equal(t, "bob", conv.UserB)
}

func TestOpenConversationEligibility(t *testing.T) {
	cases := []struct {
		name string
		rel  chat.RelationView
		want error
	}{
		{
			name: "blocked",
			rel:  chat.RelationView{MutualFollow: true, Blocked: true, RoleA: chat.RoleTrusted, RoleB: chat.RoleTrusted},
			want: chat.ErrUserBlocked,
		},
		{
			name: "not mutual follow",
			rel:  chat.RelationView{MutualFollow: false, RoleA: chat.RoleTrusted, RoleB: chat.RoleTrusted},
			want: chat.ErrNotMutualFollow,
		},
		{
			name: "initiator role too low",
			rel:  chat.RelationView{MutualFollow: true, RoleA: chat.RoleBasic, RoleB: chat.RoleTrusted},
			want: chat.ErrInsufficientRole,
		},
		{
			name: "peer role too low",
			rel:  chat.RelationView{MutualFollow: true, RoleA: chat.RoleTrusted, RoleB: chat.RoleBasic},
			want: chat.ErrInsufficientRole,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			uc := NewOpenConversationUseCase(repo, newFakeGate(tc.rel))

			_, err := uc.Execute(context.Background(), OpenConversationInput{InitiatorID: "alice", PeerID: "bob"})
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, repo.conversations)
		})
	}
}

func TestOpenConversationGateFailure(t *testing.T) {
	gate := newFakeGate(eligiblePair())
	gate.err = assert.AnError
	uc := NewOpenConversationUseCase(newFakeRepo(), gate)

	_, err := uc.Execute(context.Background(), OpenConversationInput{InitiatorID: "alice", PeerID: "bob"})
	assert.ErrorIs(t, err, ErrAuthorization)
}

func TestOpenConversationWithSelf(t *testing.T) {
	uc := NewOpenConversationUseCase(newFakeRepo(), newFakeGate(eligiblePair()))

	_, err := uc.Execute(context.Background(), OpenConversationInput{InitiatorID: "alice", PeerID: "alice"})
	assert.Error(t, err)
}
