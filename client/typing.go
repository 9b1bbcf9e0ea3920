package client

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingWindow is how long a peer stays in the typing set without a
// fresh typing signal. The expiry recovers from stop signals lost to a
// dropped connection.
const DefaultTypingWindow = 3 * time.Second

// TypingCoordinator maintains, per conversation, the set of users currently
// typing. Outbound signals are emitted unconditionally and immediately;
// debouncing keystrokes into a steady typing/stopped cadence is the caller's
// job, not this component's.
type TypingCoordinator struct {
	mgr    *Manager
	window time.Duration

	mu     sync.RWMutex
	typing map[string]map[string]struct{} // conversationID -> set of userIDs

	timers *timerArena
}

// NewTypingCoordinator subscribes the coordinator to typing events. All
// typing state is dropped on disconnect; peers will re-signal.
func NewTypingCoordinator(bus *Bus, mgr *Manager, window time.Duration) *TypingCoordinator {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	c := &TypingCoordinator{
		mgr:    mgr,
		window: window,
		typing: make(map[string]map[string]struct{}),
		timers: newTimerArena(),
	}
	bus.OnUserTyping(c.apply)
	bus.OnDisconnected(func(DisconnectedEvent) { c.clear() })
	return c
}

// SendTyping emits the signal fire-and-forget; a dead connection drops it.
func (c *TypingCoordinator) SendTyping(conversationID string, isTyping bool) {
	_ = c.mgr.writeFrame(outboundFrame{
		Type:           frameTyping,
		ConversationID: conversationID,
		IsTyping:       isTyping,
	})
}

// TypingUsers returns the users currently typing in the conversation,
// sorted for stable rendering.
func (c *TypingCoordinator) TypingUsers(conversationID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.typing[conversationID]
	if len(set) == 0 {
		return nil
	}
	users := make([]string, 0, len(set))
	for id := range set {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// Stop releases all timers. Terminal; used when the client is torn down.
func (c *TypingCoordinator) Stop() {
	c.timers.StopAll()
}

func (c *TypingCoordinator) apply(ev UserTypingEvent) {
	key := timerKey{conversationID: ev.ConversationID, userID: ev.UserID}

	if !ev.IsTyping {
		c.remove(ev.ConversationID, ev.UserID)
		c.timers.Cancel(key)
		return
	}

	c.mu.Lock()
	set := c.typing[ev.ConversationID]
	if set == nil {
		set = make(map[string]struct{})
		c.typing[ev.ConversationID] = set
	}
	set[ev.UserID] = struct{}{}
	c.mu.Unlock()

	// Re-arming resets the existing timer rather than stacking a second one.
	c.timers.Arm(key, c.window, func() {
		c.remove(ev.ConversationID, ev.UserID)
	})
}

func (c *TypingCoordinator) remove(conversationID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.typing[conversationID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(c.typing, conversationID)
		}
	}
}

func (c *TypingCoordinator) clear() {
	c.mu.Lock()
	c.typing = make(map[string]map[string]struct{})
	c.mu.Unlock()
	c.timers.Reset()
}
