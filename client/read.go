package client

// ReadReceipts emits read markers for conversations. Outbound only: the
// inbound messagesRead broadcast is applied to the cache by the
// Synchronizer, which marks every message not sent by the acknowledging
// user as read.
type ReadReceipts struct {
	mgr *Manager
}

func NewReadReceipts(mgr *Manager) *ReadReceipts {
	return &ReadReceipts{mgr: mgr}
}

// MarkRead signals that the caller has read the conversation. Fire-and-
// forget: no acknowledgement is awaited and a dead connection drops it.
func (r *ReadReceipts) MarkRead(conversationID string) {
	_ = r.mgr.writeFrame(outboundFrame{
		Type:           frameMarkRead,
		ConversationID: conversationID,
	})
}
