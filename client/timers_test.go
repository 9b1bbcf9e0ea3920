package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaArmReplacesExistingTimer(t *testing.T) {
	a := newTimerArena()
	defer a.StopAll()

	var first, second atomic.Int32
	key := timerKey{conversationID: "conv-1", userID: "alice"}

	a.Arm(key, 30*time.Millisecond, func() { first.Add(1) })
	a.Arm(key, 30*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

// A fired callback can be waiting on the arena lock while its key is
// re-armed. Only the timer still registered for the key may remove the
// entry and run its function; the fresh timer has to survive.
func TestArenaReArmWhileExpiryInFlight(t *testing.T) {
	key := timerKey{conversationID: "conv-1", userID: "alice"}

	for i := 0; i < 25; i++ {
		a := newTimerArena()
		var late atomic.Int32

		a.Arm(key, time.Millisecond, func() {})

		// Hold the lock across the deadline so the expiry callback is stuck
		// on it, then race a re-arm against its release.
		a.mu.Lock()
		time.Sleep(10 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			a.Arm(key, time.Hour, func() { late.Add(1) })
			close(done)
		}()
		time.Sleep(5 * time.Millisecond)
		a.mu.Unlock()
		<-done

		time.Sleep(10 * time.Millisecond)

		a.mu.Lock()
		_, armed := a.timers[key]
		a.mu.Unlock()
		require.True(t, armed)
		require.Equal(t, int32(0), late.Load())

		a.StopAll()
	}
}
