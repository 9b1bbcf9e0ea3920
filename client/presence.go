package client

import "sync"

// PresenceTracker maintains the set of currently-online user ids from
// userOnline/userOffline broadcasts. Insertion and removal are idempotent:
// presence is a set, not a count.
//
// No snapshot of already-online users is requested at connect time, so a
// freshly connected client knows nothing about peers until a fresh signal
// arrives for them.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresenceTracker subscribes the tracker to presence events and clears
// the set on disconnect, since every entry is stale once signals stop.
func NewPresenceTracker(bus *Bus) *PresenceTracker {
	t := &PresenceTracker{online: make(map[string]struct{})}
	bus.OnPresence(t.apply)
	bus.OnDisconnected(func(DisconnectedEvent) { t.clear() })
	return t
}

// IsUserOnline reports whether an online signal for id has been observed
// without a matching offline signal since.
func (t *PresenceTracker) IsUserOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// OnlineCount returns the number of distinct users known to be online.
func (t *PresenceTracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.online)
}

func (t *PresenceTracker) apply(ev PresenceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.Online {
		t.online[ev.UserID] = struct{}{}
	} else {
		delete(t.online, ev.UserID)
	}
}

func (t *PresenceTracker) clear() {
	t.mu.Lock()
	t.online = make(map[string]struct{})
	t.mu.Unlock()
}
