package client

import "sync"

// CachedConversation is the locally held view of one thread. It is patched
// in place from transport events and only re-fetched from the system of
// record when the caller decides the cache may be stale.
type CachedConversation struct {
	ID       string
	Messages []Message
}

// ConversationStore is the narrow cache surface the synchronizer depends on,
// keeping the synchronization logic cache-library-agnostic. Patch must apply
// the mutation atomically with respect to Get.
type ConversationStore interface {
	Get(conversationID string) (CachedConversation, bool)
	Patch(conversationID string, apply func(*CachedConversation))

	// InvalidateSummaries drops any cached summary list of conversations:
	// its ordering and preview text cannot be derived from a single
	// conversation's patched state.
	InvalidateSummaries()
}

// MemoryStore is the in-memory ConversationStore used by default.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*CachedConversation
	summaryEpoch  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*CachedConversation)}
}

var _ ConversationStore = (*MemoryStore)(nil)

func (s *MemoryStore) Get(conversationID string) (CachedConversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return CachedConversation{}, false
	}
	out := CachedConversation{ID: conv.ID, Messages: make([]Message, len(conv.Messages))}
	copy(out.Messages, conv.Messages)
	return out, true
}

func (s *MemoryStore) Patch(conversationID string, apply func(*CachedConversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &CachedConversation{ID: conversationID}
		s.conversations[conversationID] = conv
	}
	apply(conv)
}

func (s *MemoryStore) InvalidateSummaries() {
	s.mu.Lock()
	s.summaryEpoch++
	s.mu.Unlock()
}

// SummaryEpoch increments on every invalidation; consumers compare epochs to
// decide whether their rendered list is current.
func (s *MemoryStore) SummaryEpoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryEpoch
}

// Synchronizer applies inbound delta events to the conversation store as
// pure transformations: append, filter-out or flag-set. It never re-fetches;
// a missed event leaves the cache stale until the next full fetch.
type Synchronizer struct {
	store ConversationStore
}

// NewSynchronizer subscribes the synchronizer to the bus.
func NewSynchronizer(bus *Bus, store ConversationStore) *Synchronizer {
	s := &Synchronizer{store: store}
	bus.OnNewMessage(s.applyNewMessage)
	bus.OnMessageDeleted(s.applyDeleted)
	bus.OnMessageRecalled(s.applyRecalled)
	bus.OnMessagesRead(s.applyRead)
	return s
}

// applyNewMessage appends the message unless its id is already cached. The
// dedup guards the sender, who sees its own message twice: once from the
// acknowledgement and once from the room broadcast.
func (s *Synchronizer) applyNewMessage(ev NewMessageEvent) {
	inserted := false
	s.store.Patch(ev.ConversationID, func(conv *CachedConversation) {
		for _, m := range conv.Messages {
			if m.ID == ev.Message.ID {
				return
			}
		}
		conv.Messages = append(conv.Messages, ev.Message)
		inserted = true
	})
	if inserted {
		s.store.InvalidateSummaries()
	}
}

func (s *Synchronizer) applyDeleted(ev MessageDeletedEvent) {
	s.store.Patch(ev.ConversationID, func(conv *CachedConversation) {
		kept := conv.Messages[:0]
		for _, m := range conv.Messages {
			if m.ID != ev.MessageID {
				kept = append(kept, m)
			}
		}
		conv.Messages = kept
	})
}

func (s *Synchronizer) applyRecalled(ev MessageRecalledEvent) {
	s.store.Patch(ev.ConversationID, func(conv *CachedConversation) {
		for i := range conv.Messages {
			if conv.Messages[i].ID == ev.MessageID {
				conv.Messages[i].Recalled = true
				return
			}
		}
	})
}

// applyRead marks every cached message not sent by the acknowledging user as
// read. Read state is per-direction; there is no per-message read timestamp.
func (s *Synchronizer) applyRead(ev MessagesReadEvent) {
	s.store.Patch(ev.ConversationID, func(conv *CachedConversation) {
		for i := range conv.Messages {
			if conv.Messages[i].SenderID != ev.UserID {
				conv.Messages[i].Read = true
			}
		}
	})
}
