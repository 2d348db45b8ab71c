// Package engine owns all room, message and presence state. It is the
// single in-memory authority: connection handlers call into it from their
// own goroutines and every mutation happens under either the engine index
// lock or the owning room's lock.
package engine

import (
	"encoding/json"
	"sort"
	"sync"

	"chat-server/internal/metrics"
	"chat-server/internal/models"
	"chat-server/pkg/logger"

	"github.com/samber/lo"
)

// ConnID identifies one live transport session.
type ConnID string

// Sender delivers an encoded server event to a single connection. It must
// not block; implementations report false when the frame was dropped.
type Sender interface {
	Send(frame []byte) bool
}

const (
	DefaultHistoryCap = 2000
	MaxPageLimit      = 100
	DefaultPageLimit  = 20
	MaxSearchResults  = 200
)

type Options struct {
	HistoryCap  int
	DefaultRoom string
	SeedRooms   []string
}

type conn struct {
	id         ConnID
	identityID string
	username   string
	sender     Sender
	rooms      map[string]struct{} // guarded by Engine.mu
}

type room struct {
	mu      sync.Mutex
	name    string
	members map[ConnID]*conn
	log     []*models.Message
}

type Engine struct {
	mu         sync.RWMutex
	identities map[string]*models.Identity
	conns      map[ConnID]*conn
	byIdentity map[string]ConnID // at most one live connection per identity
	rooms      map[string]*room
	roomNames  []string // insertion order, rooms are never deleted

	ids         idGen
	historyCap  int
	defaultRoom string
}

func New(opts Options) *Engine {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "global"
	}

	e := &Engine{
		identities:  make(map[string]*models.Identity),
		conns:       make(map[ConnID]*conn),
		byIdentity:  make(map[string]ConnID),
		rooms:       make(map[string]*room),
		historyCap:  opts.HistoryCap,
		defaultRoom: opts.DefaultRoom,
	}

	e.mu.Lock()
	e.ensureRoomLocked(opts.DefaultRoom)
	for _, name := range opts.SeedRooms {
		e.ensureRoomLocked(name)
	}
	e.mu.Unlock()
	return e
}

// Connect binds a connection to an identity, marks it online and joins it
// to the default room. A reconnect for the same identity overwrites the
// previous reverse mapping: most recent connection wins.
func (e *Engine) Connect(id ConnID, identity models.Identity, sender Sender) {
	e.mu.Lock()
	ident, ok := e.identities[identity.ID]
	if !ok {
		ident = &models.Identity{ID: identity.ID}
		e.identities[identity.ID] = ident
	}
	ident.Name = identity.Name
	ident.Online = true

	c := &conn{
		id:         id,
		identityID: ident.ID,
		username:   ident.Name,
		sender:     sender,
		rooms:      make(map[string]struct{}),
	}
	e.conns[id] = c
	e.byIdentity[ident.ID] = id
	roomList := append([]string(nil), e.roomNames...)
	e.mu.Unlock()

	metrics.OpenConnections.Inc()

	e.joinRoom(id, e.defaultRoom, c.username+" joined")
	e.broadcastRoster()
	e.emitTo(c, models.ServerEvent{Type: models.EventRoomList, Rooms: roomList})
	logger.Info("connection %s attached as %s (%s)", id, c.username, c.identityID)
}

// Disconnect detaches a connection: membership is dropped from every room
// it joined and, when it is still the identity's current connection, the
// identity goes offline and a presence update is broadcast. A stale
// connection superseded by a reconnect cleans up silently.
func (e *Engine) Disconnect(id ConnID) {
	e.mu.Lock()
	c, ok := e.conns[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.conns, id)

	current := e.byIdentity[c.identityID] == id
	if current {
		delete(e.byIdentity, c.identityID)
		if ident, ok := e.identities[c.identityID]; ok {
			ident.Online = false
		}
	}
	joined := lo.Keys(c.rooms)
	e.mu.Unlock()

	for _, name := range joined {
		if r := e.room(name); r != nil {
			r.mu.Lock()
			delete(r.members, id)
			r.mu.Unlock()
		}
	}

	metrics.OpenConnections.Dec()

	if current {
		e.broadcastRoster()
		e.NotifySystem(e.defaultRoom, c.username+" left")
	}
	logger.Info("connection %s detached (%s)", id, c.identityID)
}

// Roster returns every identity ever seen, online flag included, sorted by
// name for stable output.
func (e *Engine) Roster() []models.Identity {
	e.mu.RLock()
	users := lo.MapToSlice(e.identities, func(_ string, ident *models.Identity) models.Identity {
		return *ident
	})
	e.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (e *Engine) room(name string) *room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rooms[name]
}

func (e *Engine) connByID(id ConnID) *conn {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.conns[id]
}

func (e *Engine) broadcastRoster() {
	frame, ok := encode(models.ServerEvent{Type: models.EventUserList, Users: e.Roster()})
	if !ok {
		return
	}
	e.mu.RLock()
	for _, c := range e.conns {
		c.sender.Send(frame)
	}
	e.mu.RUnlock()
}

func (e *Engine) emitTo(c *conn, ev models.ServerEvent) {
	if frame, ok := encode(ev); ok {
		c.sender.Send(frame)
	}
}

func encode(ev models.ServerEvent) ([]byte, bool) {
	frame, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encoding %s event: %v", ev.Type, err)
		return nil, false
	}
	return frame, true
}

// emit sends a frame to every member, optionally skipping one connection.
// Callers hold r.mu so the member set is a consistent snapshot.
func (r *room) emit(frame []byte, except ConnID) {
	for id, member := range r.members {
		if id == except {
			continue
		}
		member.sender.Send(frame)
	}
}
