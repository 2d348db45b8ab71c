package engine

import (
	"encoding/json"
	"sync"
	"testing"

	"chat-server/internal/models"

	"github.com/stretchr/testify/require"
)

// recorder is a Sender that decodes every frame it is handed, so tests can
// assert on the event stream a connection would have seen.
type recorder struct {
	mu     sync.Mutex
	events []models.ServerEvent
}

func (r *recorder) Send(frame []byte) bool {
	var ev models.ServerEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return true
}

func (r *recorder) byType(t models.EventType) []models.ServerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServerEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newTestEngine() *Engine {
	return New(Options{SeedRooms: []string{"global", "general", "random"}})
}

func connect(e *Engine, id ConnID, identityID, name string) *recorder {
	rec := &recorder{}
	e.Connect(id, models.Identity{ID: identityID, Name: name}, rec)
	return rec
}

func TestConnectBroadcastsRosterAndRoomList(t *testing.T) {
	e := newTestEngine()

	alice := connect(e, "c1", "u1", "alice")
	bob := connect(e, "c2", "u2", "bob")

	users := e.Roster()
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Name)
	require.True(t, users[0].Online)
	require.Equal(t, "bob", users[1].Name)
	require.True(t, users[1].Online)

	// bob's connect pushed a fresh roster to alice too
	lists := alice.byType(models.EventUserList)
	require.NotEmpty(t, lists)
	require.Len(t, lists[len(lists)-1].Users, 2)

	roomLists := bob.byType(models.EventRoomList)
	require.Len(t, roomLists, 1)
	require.Equal(t, []string{"global", "general", "random"}, roomLists[0].Rooms)
}

func TestDisconnectMarksOfflineAndNotifies(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")
	bob := connect(e, "c2", "u2", "bob")
	bob.reset()

	e.Disconnect("c1")

	users := e.Roster()
	require.Len(t, users, 2) // identity rows are retained
	require.False(t, users[0].Online)
	require.True(t, users[1].Online)

	require.Len(t, bob.byType(models.EventUserList), 1)
	notices := bob.byType(models.EventSystemMessage)
	require.Len(t, notices, 1)
	require.Equal(t, "alice left", notices[0].Text)
}

func TestReconnectLastWriterWins(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")
	second := connect(e, "c2", "u1", "alice")
	bob := connect(e, "c3", "u2", "bob")

	// the stale connection going away must not flip the identity offline
	e.Disconnect("c1")
	users := e.Roster()
	require.Len(t, users, 2)
	require.True(t, users[0].Online)

	// private traffic lands on the most recent connection
	second.reset()
	_, err := e.SendPrivate("c3", "global", "u1", "psst", nil)
	require.NoError(t, err)
	require.Len(t, second.byType(models.EventPrivateMessage), 1)
	_ = bob
}

func TestJoinAnnouncesToPriorMembersOnly(t *testing.T) {
	e := newTestEngine()
	alice := connect(e, "c1", "u1", "alice")
	bob := connect(e, "c2", "u2", "bob")

	alice.reset()
	bob.reset()

	members := e.Join("c1", "dev")
	require.Len(t, members, 1)
	require.Equal(t, "u1", members[0].ID)
	// empty room: nobody to announce to, not even the joiner
	require.Empty(t, alice.byType(models.EventSystemMessage))

	members = e.Join("c2", "dev")
	require.Len(t, members, 2)
	notices := alice.byType(models.EventSystemMessage)
	require.Len(t, notices, 1)
	require.Equal(t, "bob joined dev", notices[0].Text)
	require.Equal(t, "dev", notices[0].Room)
	require.Empty(t, bob.byType(models.EventSystemMessage))
}

func TestLeaveIsIdempotentAndNotifiesRemaining(t *testing.T) {
	e := newTestEngine()
	alice := connect(e, "c1", "u1", "alice")
	connect(e, "c2", "u2", "bob")
	e.Join("c1", "dev")
	e.Join("c2", "dev")
	alice.reset()

	e.Leave("c2", "dev")
	notices := alice.byType(models.EventSystemMessage)
	require.Len(t, notices, 1)
	require.Equal(t, "bob left dev", notices[0].Text)

	// leaving again, or leaving a never-joined room, is a silent no-op
	alice.reset()
	e.Leave("c2", "dev")
	e.Leave("c2", "no-such-room")
	require.Empty(t, alice.events)
}

func TestImplicitRoomCreation(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")

	require.NotContains(t, e.Rooms(), "den")
	e.Join("c1", "den")
	require.Contains(t, e.Rooms(), "den")

	// rooms are never deleted, even once empty
	e.Leave("c1", "den")
	require.Contains(t, e.Rooms(), "den")
}

func TestMembersSnapshot(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")
	connect(e, "c2", "u2", "bob")
	e.Join("c1", "dev")
	e.Join("c2", "dev")

	members := e.Members("dev")
	require.Len(t, members, 2)
	require.Equal(t, "alice", members[0].Name)
	require.Equal(t, "bob", members[1].Name)
	require.True(t, members[0].Online)

	require.Nil(t, e.Members("no-such-room"))
}

func TestTypingExcludesTypistAndIsEphemeral(t *testing.T) {
	e := newTestEngine()
	alice := connect(e, "c1", "u1", "alice")
	bob := connect(e, "c2", "u2", "bob")
	alice.reset()
	bob.reset()

	e.Typing("c1", "global", true)

	typing := bob.byType(models.EventUserTyping)
	require.Len(t, typing, 1)
	require.Equal(t, "alice", typing[0].Username)
	require.True(t, typing[0].IsTyping)
	require.Empty(t, alice.byType(models.EventUserTyping))

	// typing never reaches the log
	require.Empty(t, e.History("global", "", 100))
}
