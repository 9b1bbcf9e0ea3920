package usecase

import (
	"context"
	"encoding/json"
	"time"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

// summaryTTL bounds staleness if an invalidation is ever lost.
const summaryTTL = 10 * time.Minute

// SummaryCache caches each user's conversation summary list. Ordering and
// preview state of that list cannot be derived from a single conversation's
// patched state, so every message mutation invalidates it wholesale.
// All methods are nil-safe so use cases can run without a cache in tests.
type SummaryCache struct {
	Cache cacheport.Cache
}

func NewSummaryCache(c cacheport.Cache) *SummaryCache {
	return &SummaryCache{Cache: c}
}

// Read returns the cached list for userID, or ok=false on miss or any error.
func (s *SummaryCache) Read(ctx context.Context, userID string) ([]chat.Conversation, bool) {
	if s == nil || s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, cacheport.SummaryKey(userID))
	if err != nil {
		return nil, false
	}
	var convs []chat.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, false
	}
	return convs, true
}

// Write stores the list best-effort; failures are ignored.
func (s *SummaryCache) Write(ctx context.Context, userID string, convs []chat.Conversation) {
	if s == nil || s.Cache == nil {
		return
	}
	raw, err := json.Marshal(convs)
	if err != nil {
		return
	}
	_ = s.Cache.Set(ctx, cacheport.SummaryKey(userID), string(raw), summaryTTL)
}

// Invalidate drops the cached lists for the given users, best-effort.
func (s *SummaryCache) Invalidate(ctx context.Context, userIDs ...string) {
	if s == nil || s.Cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheport.SummaryKey(id))
	}
	_, _ = s.Cache.Del(ctx, keys...)
}
