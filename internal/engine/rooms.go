package engine

import (
	"sort"

	"chat-server/internal/metrics"
	"chat-server/internal/models"
)

// ensureRoomLocked returns the room, materializing it on first reference.
// Any connection can create any room name; this is a simplicity tradeoff,
// not a security boundary. Caller holds e.mu for writing.
func (e *Engine) ensureRoomLocked(name string) *room {
	if r, ok := e.rooms[name]; ok {
		return r
	}
	r := &room{name: name, members: make(map[ConnID]*conn)}
	e.rooms[name] = r
	e.roomNames = append(e.roomNames, name)
	metrics.Rooms.Inc()
	return r
}

// Join adds the connection to the room, creating the room if needed, and
// announces the join to the room's prior members. Returns a membership
// snapshot including the new member.
func (e *Engine) Join(id ConnID, roomName string) []models.Identity {
	c := e.connByID(id)
	if c == nil {
		return nil
	}
	return e.joinRoom(id, roomName, c.username+" joined "+roomName)
}

func (e *Engine) joinRoom(id ConnID, roomName, notice string) []models.Identity {
	e.mu.Lock()
	c, ok := e.conns[id]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	r := e.ensureRoomLocked(roomName)
	c.rooms[roomName] = struct{}{}
	e.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, already := r.members[id]; !already {
		// a disconnect may have raced us between the index update and
		// here; a dead connection must not enter the member set
		if e.connByID(id) == nil {
			return nil
		}
		if frame, ok := encode(systemEvent(roomName, notice)); ok {
			r.emit(frame, "")
		}
		r.members[id] = c
		r.emitRosterLocked()
	}
	return r.membersLocked()
}

// Leave removes the connection from the room's membership and notifies the
// remaining members. Leaving a room the connection never joined is a no-op,
// not an error.
func (e *Engine) Leave(id ConnID, roomName string) {
	e.mu.Lock()
	c := e.conns[id]
	r := e.rooms[roomName]
	if c != nil {
		delete(c.rooms, roomName)
	}
	e.mu.Unlock()
	if c == nil || r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, present := r.members[id]; !present {
		return
	}
	delete(r.members, id)
	if frame, ok := encode(systemEvent(roomName, c.username+" left "+roomName)); ok {
		r.emit(frame, "")
	}
	r.emitRosterLocked()
}

// Rooms lists every known room name in creation order.
func (e *Engine) Rooms() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.roomNames...)
}

// Members returns a snapshot of the room's current membership. Members are
// live connections, so they are online by definition.
func (e *Engine) Members(roomName string) []models.Identity {
	r := e.room(roomName)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked()
}

// emitRosterLocked pushes the room's updated membership to everyone still
// in it. Caller holds r.mu.
func (r *room) emitRosterLocked() {
	frame, ok := encode(models.ServerEvent{
		Type:    models.EventRoomMembers,
		Room:    r.name,
		Members: r.membersLocked(),
	})
	if ok {
		r.emit(frame, "")
	}
}

// Caller holds r.mu.
func (r *room) membersLocked() []models.Identity {
	members := make([]models.Identity, 0, len(r.members))
	for _, c := range r.members {
		members = append(members, models.Identity{ID: c.identityID, Name: c.username, Online: true})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].ID < members[j].ID
	})
	return members
}
