package engine

import (
	"chat-server/internal/metrics"
	"chat-server/internal/models"

	"github.com/samber/lo"
)

// MarkDelivered records that the connection's identity received the
// message. The add is idempotent and the set only grows. References to
// evicted or unknown messages are dropped silently; the stale-reference
// counter is the only trace.
func (e *Engine) MarkDelivered(id ConnID, roomName, messageID string) {
	c := e.connByID(id)
	if c == nil {
		return
	}
	r := e.room(roomName)
	if r == nil {
		metrics.StaleReferencesTotal.Inc()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.find(messageID)
	if msg == nil {
		metrics.StaleReferencesTotal.Inc()
		return
	}
	if lo.Contains(msg.DeliveredTo, c.identityID) {
		return
	}
	msg.DeliveredTo = append(msg.DeliveredTo, c.identityID)

	if frame, ok := encode(models.ServerEvent{
		Type:      models.EventDelivered,
		Room:      roomName,
		MessageID: messageID,
		UserID:    c.identityID,
	}); ok {
		r.emit(frame, "")
	}
}

// MarkRead records a read receipt and, when the state actually changed,
// broadcasts the updated readBy set to the room. Same idempotence and
// stale-reference tolerance as MarkDelivered.
func (e *Engine) MarkRead(id ConnID, roomName, messageID string) {
	c := e.connByID(id)
	if c == nil {
		return
	}
	r := e.room(roomName)
	if r == nil {
		metrics.StaleReferencesTotal.Inc()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.find(messageID)
	if msg == nil {
		metrics.StaleReferencesTotal.Inc()
		return
	}
	if lo.Contains(msg.ReadBy, c.identityID) {
		return
	}
	msg.ReadBy = append(msg.ReadBy, c.identityID)

	if frame, ok := encode(models.ServerEvent{
		Type:      models.EventRead,
		Room:      roomName,
		MessageID: messageID,
		ReadBy:    append([]string(nil), msg.ReadBy...),
	}); ok {
		r.emit(frame, "")
	}
}
