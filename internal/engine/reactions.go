package engine

import (
	"chat-server/internal/metrics"
	"chat-server/internal/models"

	"github.com/samber/lo"
)

// ToggleReaction flips the identity's presence in the symbol's reaction
// set: reacting twice with the same symbol cancels the reaction. Symbols
// are opaque; there is no allowed-set validation. Emptied sets are kept
// around, their memory is reclaimed when the parent message is evicted.
func (e *Engine) ToggleReaction(id ConnID, roomName, messageID, symbol string) {
	c := e.connByID(id)
	if c == nil || symbol == "" {
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

	ids := msg.Reactions[symbol]
	if idx := lo.IndexOf(ids, c.identityID); idx >= 0 {
		msg.Reactions[symbol] = append(ids[:idx], ids[idx+1:]...)
	} else {
		msg.Reactions[symbol] = append(ids, c.identityID)
	}

	reactions := make(map[string][]string, len(msg.Reactions))
	for sym, who := range msg.Reactions {
		reactions[sym] = append([]string(nil), who...)
	}
	if frame, ok := encode(models.ServerEvent{
		Type:      models.EventReaction,
		Room:      roomName,
		MessageID: messageID,
		Reactions: reactions,
	}); ok {
		r.emit(frame, "")
	}
}
