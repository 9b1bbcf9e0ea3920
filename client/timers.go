package client

import (
	"sync"
	"time"
)

// timerKey identifies one (conversation, user) expiry timer.
type timerKey struct {
	conversationID string
	userID         string
}

// timerArena owns a registry of keyed expiry timers. Arming an existing key
// resets its timer instead of stacking a second one. Each coordinator
// instance owns its own arena, so parallel client instances in tests cannot
// leak timers into each other.
type timerArena struct {
	mu      sync.Mutex
	timers  map[timerKey]*time.Timer
	stopped bool
}

func newTimerArena() *timerArena {
	return &timerArena{timers: make(map[timerKey]*time.Timer)}
}

// Arm schedules fn to run after d, replacing any timer already armed for key.
func (a *timerArena) Arm(key timerKey, d time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if t, ok := a.timers[key]; ok {
		t.Stop()
	}
	// The callback checks that it is still the timer registered for key. A
	// fired callback can sit blocked on the mutex while the key is re-armed;
	// without the identity check it would tear down the fresh timer's entry
	// and run fn anyway.
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		a.mu.Lock()
		if a.stopped || a.timers[key] != t {
			a.mu.Unlock()
			return
		}
		delete(a.timers, key)
		a.mu.Unlock()
		fn()
	})
	a.timers[key] = t
}

// Cancel stops and forgets the timer for key, if any.
func (a *timerArena) Cancel(key timerKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[key]; ok {
		t.Stop()
		delete(a.timers, key)
	}
}

// StopAll cancels every timer and rejects further arming. Terminal.
func (a *timerArena) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for key, t := range a.timers {
		t.Stop()
		delete(a.timers, key)
	}
}

// Reset cancels every timer but keeps the arena usable; used on disconnect.
func (a *timerArena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, t := range a.timers {
		t.Stop()
		delete(a.timers, key)
	}
}
