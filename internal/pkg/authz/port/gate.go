package port

import (
	"context"

	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

// Gate answers whether two users may hold a private conversation. The
// decision itself (mutual follow, block, trust role) is computed by the
// external relationship service; this core consumes it and never caches it,
// since relationships change while a conversation is alive.
type Gate interface {
	// Relation fetches the current relationship view between a and b.
	// Call RelationView.Eligible on the result to apply the messaging rule.
	Relation(ctx context.Context, a, b string) (chat.RelationView, error)
}
