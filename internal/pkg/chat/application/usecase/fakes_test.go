package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

// fakeRepo is an in-memory ChatRepository with the same identity and ordering
// rules as the Postgres adapter.
type fakeRepo struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	participants  map[string]*chat.Participant // conversationID+"|"+userID
	messages      map[string]*chat.Message
	order         []string // message ids in insertion order
	nextID        int

	// failWith, when set, makes every call return it.
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversations: make(map[string]*chat.Conversation),
		participants:  make(map[string]*chat.Participant),
		messages:      make(map[string]*chat.Message),
	}
}

func partKey(conversationID, userID string) string { return conversationID + "|" + userID }

func (r *fakeRepo) FindOrCreateConversation(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}

	a, b := chat.NormalizePair(userA, userB)
	for _, conv := range r.conversations {
		if conv.UserA == a && conv.UserB == b {
			c := *conv
			return &c, nil
		}
	}

	r.nextID++
	conv := &chat.Conversation{
		ID:        fmt.Sprintf("conv-%d", r.nextID),
		UserA:     a,
		UserB:     b,
		CreatedAt: time.Now().UTC(),
	}
	r.conversations[conv.ID] = conv
	r.participants[partKey(conv.ID, a)] = &chat.Participant{ConversationID: conv.ID, UserID: a}
	r.participants[partKey(conv.ID, b)] = &chat.Participant{ConversationID: conv.ID, UserID: b}
	c := *conv
	return &c, nil
}

func (r *fakeRepo) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	c := *conv
	return &c, nil
}

func (r *fakeRepo) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []chat.Conversation
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, *conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	_, ok := r.participants[partKey(conversationID, userID)]
	return ok, nil
}

func (r *fakeRepo) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	return []string{conv.UserA, conv.UserB}, nil
}

func (r *fakeRepo) SetPinned(ctx context.Context, conversationID, userID string, pinned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	p, ok := r.participants[partKey(conversationID, userID)]
	if !ok {
		return chat.ErrNotParticipant
	}
	p.Pinned = pinned
	return nil
}

func (r *fakeRepo) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return "", r.failWith
	}
	conv, ok := r.conversations[m.ConversationID]
	if !ok {
		return "", chat.ErrConversationNotFound
	}

	r.nextID++
	m.ID = fmt.Sprintf("msg-%d", r.nextID)
	r.messages[m.ID] = &m
	r.order = append(r.order, m.ID)

	at := m.CreatedAt
	conv.LastMessageAt = &at
	return m.ID, nil
}

func (r *fakeRepo) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	m, ok := r.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeRepo) GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []chat.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ConversationID != conversationID || m.Deleted {
			continue
		}
		out = append(out, *m)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) MarkMessagesRead(ctx context.Context, conversationID, userID string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	p, ok := r.participants[partKey(conversationID, userID)]
	if !ok {
		return chat.ErrNotParticipant
	}
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != userID {
			m.Read = true
		}
	}
	at := readAt
	p.LastReadAt = &at
	return nil
}

func (r *fakeRepo) SetMessageDeleted(ctx context.Context, messageID string) error {
	return r.setFlag(messageID, func(m *chat.Message) { m.Deleted = true })
}

func (r *fakeRepo) SetMessageRecalled(ctx context.Context, messageID string) error {
	return r.setFlag(messageID, func(m *chat.Message) { m.Recalled = true })
}

func (r *fakeRepo) setFlag(messageID string, apply func(*chat.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	m, ok := r.messages[messageID]
	if !ok {
		return chat.ErrMessageNotFound
	}
	apply(m)
	return nil
}

// fakeGate answers every relation query with a fixed view. Mutable between
// calls so tests can flip eligibility mid-scenario.
type fakeGate struct {
	mu   sync.Mutex
	rel  chat.RelationView
	err  error
	hits int
}

func newFakeGate(rel chat.RelationView) *fakeGate { return &fakeGate{rel: rel} }

func (g *fakeGate) set(rel chat.RelationView) {
	g.mu.Lock()
	g.rel = rel
	g.mu.Unlock()
}

func (g *fakeGate) Relation(ctx context.Context, a, b string) (chat.RelationView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hits++
	if g.err != nil {
		return chat.RelationView{}, g.err
	}
	return g.rel, nil
}

// fakeCache is an in-memory cacheport.Cache without TTL expiry.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[string]string)} }

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := c.values[key]; ok {
			delete(c.values, key)
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }
func (c *fakeCache) Close() error                   { return nil }

// eligiblePair is the relation that passes every gate check.
func eligiblePair() chat.RelationView {
	return chat.RelationView{MutualFollow: true, RoleA: chat.RoleTrusted, RoleB: chat.RoleTrusted}
}
