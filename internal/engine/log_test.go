package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-server/internal/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func messageIDs(msgs []*models.Message) []string {
	return lo.Map(msgs, func(m *models.Message, _ int) string { return m.ID })
}

func TestIDGenMonotonicWithinSameMillisecond(t *testing.T) {
	var g idGen
	now := time.Now()

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, g.next(now))
	}
	require.IsIncreasing(t, ids)

	// a clock step backwards must not reorder ids
	ids = append(ids, g.next(now.Add(-time.Second)))
	require.IsIncreasing(t, ids)
}

func TestAppendKeepsOrderAndEvictsOldestAtCapacity(t *testing.T) {
	e := New(Options{HistoryCap: 5, DefaultRoom: "global"})
	connect(e, "c1", "u1", "alice")

	var first *models.Message
	for i := 0; i < 7; i++ {
		stored, err := e.SendBroadcast("c1", "global", fmt.Sprintf("msg-%d", i), nil)
		require.NoError(t, err)
		if i == 0 {
			first = stored
		}
	}

	page := e.History("global", "", 100)
	require.Len(t, page, 5)
	require.IsIncreasing(t, messageIDs(page))
	require.Equal(t, "msg-2", page[0].Text)
	require.Equal(t, "msg-6", page[4].Text)

	// the evicted message is gone from every read path, and using its id
	// as a cursor takes the stale-reference fallback
	require.NotContains(t, messageIDs(page), first.ID)
	require.Empty(t, e.Search("msg-0", 200))
	fallback := e.History("global", first.ID, 2)
	require.Equal(t, messageIDs(page[:2]), messageIDs(fallback))
}

func TestHistoryPagination(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")

	var ids []string
	for i := 0; i < 10; i++ {
		stored, err := e.SendBroadcast("c1", "global", fmt.Sprintf("m%d", i), nil)
		require.NoError(t, err)
		ids = append(ids, stored.ID)
	}

	// no cursor: most recent page, oldest-first
	page := e.History("global", "", 4)
	require.Equal(t, ids[6:10], messageIDs(page))

	// cursor: the window immediately preceding it, cursor excluded
	page = e.History("global", ids[6], 4)
	require.Equal(t, ids[2:6], messageIDs(page))
	require.NotContains(t, messageIDs(page), ids[6])

	// window truncates at the start of the log
	page = e.History("global", ids[2], 4)
	require.Equal(t, ids[0:2], messageIDs(page))

	// unknown cursor (evicted or bogus) falls back to the oldest page
	page = e.History("global", "nope", 4)
	require.Equal(t, ids[0:4], messageIDs(page))

	// defaults and clamps
	require.Len(t, e.History("global", "", 0), 10)
	require.Len(t, e.History("global", "", 500), 10)
	require.Empty(t, e.History("no-such-room", "", 10))
}

func TestHistoryReturnsCopies(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "alice")
	stored, err := e.SendBroadcast("c1", "global", "hello", nil)
	require.NoError(t, err)

	page := e.History("global", "", 10)
	page[0].Text = "tampered"
	page[0].ReadBy = append(page[0].ReadBy, "u9")

	again := e.History("global", "", 10)
	require.Equal(t, "hello", again[0].Text)
	require.Empty(t, again[0].ReadBy)
	_ = stored
}

func TestSearchMatchesTextAndSenderAcrossRooms(t *testing.T) {
	e := newTestEngine()
	connect(e, "c1", "u1", "Alice")
	connect(e, "c2", "u2", "bob")
	e.Join("c1", "dev")

	_, err := e.SendBroadcast("c1", "global", "Deploy tonight", nil)
	require.NoError(t, err)
	_, err = e.SendBroadcast("c2", "global", "nothing here", nil)
	require.NoError(t, err)
	_, err = e.SendBroadcast("c1", "dev", "deploy is done", nil)
	require.NoError(t, err)

	// case-insensitive text match, room order then chronological
	results := e.Search("DEPLOY", 200)
	require.Len(t, results, 2)
	require.Equal(t, "global", results[0].Room)
	require.Equal(t, "dev", results[1].Room)

	// sender name matches too
	results = e.Search("alice", 200)
	require.Len(t, results, 2)

	// limit caps the scan
	require.Len(t, e.Search("alice", 1), 1)

	// blank queries match nothing
	require.Empty(t, e.Search("", 200))
	require.Empty(t, e.Search("   ", 200))
}

func TestConcurrentSendsKeepLogConsistent(t *testing.T) {
	e := New(Options{HistoryCap: 2000, DefaultRoom: "global"})

	const conns = 4
	const perConn = 50
	for i := 0; i < conns; i++ {
		connect(e, ConnID(fmt.Sprintf("c%d", i)), fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perConn; j++ {
				_, err := e.SendBroadcast(ConnID(fmt.Sprintf("c%d", i)), "global", fmt.Sprintf("c%d-%d", i, j), nil)
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	page := e.History("global", "", 100)
	require.Len(t, page, 100)
	require.IsIncreasing(t, messageIDs(page))

	all := e.Search("c", MaxSearchResults)
	require.Len(t, all, MaxSearchResults)
	ids := messageIDs(all)
	require.Len(t, lo.Uniq(ids), len(ids))
}
