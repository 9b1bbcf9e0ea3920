package realtime

import (
	"encoding/json"
)

// WirePresence hooks the router's presence transitions to userOnline /
// userOffline broadcasts. No snapshot of already-online users is sent to a
// newly attached session; presence knowledge is forward-only from fresh
// signals.
func WirePresence(r *Router) {
	r.OnPresence(func(userID string, online bool) {
		typ := EventUserOnline
		if !online {
			typ = EventUserOffline
		}
		payload, err := json.Marshal(EventFrame{Type: typ, UserID: userID})
		if err != nil {
			return
		}
		r.BroadcastAll(payload, userID)
	})
}
