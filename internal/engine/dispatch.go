package engine

import (
	"errors"
	"time"

	"chat-server/internal/metrics"
	"chat-server/internal/models"

	"github.com/samber/lo"
)

var (
	ErrEmptyMessage      = errors.New("message needs text or an attachment")
	ErrUnknownConnection = errors.New("unknown connection")
)

// SendBroadcast stores the message in the room's log and fans it out to
// every connection currently joined. DeliveredTo is seeded from an atomic
// snapshot of the membership at send time; it is a snapshot, not a promise
// of future delivery.
func (e *Engine) SendBroadcast(id ConnID, roomName, text string, file *models.FileRef) (*models.Message, error) {
	if text == "" && file == nil {
		return nil, ErrEmptyMessage
	}

	e.mu.Lock()
	c, ok := e.conns[id]
	if !ok {
		e.mu.Unlock()
		return nil, ErrUnknownConnection
	}
	if roomName == "" {
		roomName = e.defaultRoom
	}
	r := e.ensureRoomLocked(roomName)
	e.mu.Unlock()

	r.mu.Lock()
	// id assignment happens under the room lock so log order and id order
	// never diverge
	msg := e.newMessage(c, roomName, text, file)
	r.append(msg, e.historyCap)
	for _, member := range r.members {
		if !lo.Contains(msg.DeliveredTo, member.identityID) {
			msg.DeliveredTo = append(msg.DeliveredTo, member.identityID)
		}
	}
	if frame, ok := encode(models.ServerEvent{Type: models.EventReceiveMessage, Message: msg}); ok {
		r.emit(frame, "")
	}
	stored := msg.Clone()
	r.mu.Unlock()

	metrics.MessagesTotal.Inc()
	return stored, nil
}

// SendPrivate stores the message tagged private and delivers it to the
// target's current connection when one exists. The sender always receives
// an echo, even when the target is offline; delivery is then deferred to
// the target's next history fetch.
func (e *Engine) SendPrivate(id ConnID, roomName, targetID, text string, file *models.FileRef) (*models.Message, error) {
	if text == "" && file == nil {
		return nil, ErrEmptyMessage
	}

	e.mu.Lock()
	c, ok := e.conns[id]
	if !ok {
		e.mu.Unlock()
		return nil, ErrUnknownConnection
	}
	if roomName == "" {
		roomName = e.defaultRoom
	}
	r := e.ensureRoomLocked(roomName)
	var target *conn
	if targetConn, online := e.byIdentity[targetID]; online {
		target = e.conns[targetConn]
	}
	e.mu.Unlock()

	r.mu.Lock()
	msg := e.newMessage(c, roomName, text, file)
	msg.IsPrivate = true
	msg.To = targetID
	r.append(msg, e.historyCap)
	if target != nil {
		msg.DeliveredTo = append(msg.DeliveredTo, targetID)
	}
	if frame, ok := encode(models.ServerEvent{Type: models.EventPrivateMessage, Message: msg}); ok {
		if target != nil && target.id != c.id {
			target.sender.Send(frame)
		}
		c.sender.Send(frame)
	}
	stored := msg.Clone()
	r.mu.Unlock()

	metrics.PrivateMessagesTotal.Inc()
	return stored, nil
}

// Typing relays a typing indicator to everyone else in the room. Typing
// events are ephemeral and never hit the message log.
func (e *Engine) Typing(id ConnID, roomName string, isTyping bool) {
	c := e.connByID(id)
	if c == nil {
		return
	}
	if roomName == "" {
		roomName = e.defaultRoom
	}
	r := e.room(roomName)
	if r == nil {
		return
	}
	frame, ok := encode(models.ServerEvent{
		Type:     models.EventUserTyping,
		Room:     roomName,
		UserID:   c.identityID,
		Username: c.username,
		IsTyping: isTyping,
	})
	if !ok {
		return
	}
	r.mu.Lock()
	r.emit(frame, id)
	r.mu.Unlock()
}

// NotifySystem sends an ephemeral system line to the room's current
// membership. System notices are never persisted, so they are invisible to
// history and search.
func (e *Engine) NotifySystem(roomName, text string) {
	r := e.room(roomName)
	if r == nil {
		return
	}
	frame, ok := encode(systemEvent(roomName, text))
	if !ok {
		return
	}
	r.mu.Lock()
	r.emit(frame, "")
	r.mu.Unlock()
}

func (e *Engine) newMessage(c *conn, roomName, text string, file *models.FileRef) *models.Message {
	now := time.Now().UTC()
	return &models.Message{
		ID:          e.ids.next(now),
		Room:        roomName,
		SenderID:    c.identityID,
		Sender:      c.username,
		Text:        text,
		File:        file,
		Timestamp:   now,
		DeliveredTo: []string{},
		ReadBy:      []string{},
		Reactions:   map[string][]string{},
	}
}

func systemEvent(roomName, text string) models.ServerEvent {
	return models.ServerEvent{
		Type:      models.EventSystemMessage,
		Room:      roomName,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}
