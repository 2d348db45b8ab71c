package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"chat-server/internal/metrics"
	"chat-server/internal/models"

	"github.com/samber/lo"
)

// idGen hands out unique, monotonically ordered message ids derived from
// the creation timestamp, with a counter breaking same-millisecond ties.
// Ids stay monotonic even if the wall clock steps backwards.
type idGen struct {
	mu         sync.Mutex
	lastMillis int64
	seq        int
}

func (g *idGen) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	millis := now.UnixMilli()
	if millis <= g.lastMillis {
		millis = g.lastMillis
		g.seq++
	} else {
		g.lastMillis = millis
		g.seq = 0
	}
	return fmt.Sprintf("%d-%04d", millis, g.seq)
}

// append adds the message to the log, evicting the oldest entry when the
// capacity is exceeded. Caller holds r.mu.
func (r *room) append(msg *models.Message, capacity int) {
	r.log = append(r.log, msg)
	if len(r.log) > capacity {
		r.log = r.log[1:]
		metrics.EvictionsTotal.Inc()
	}
}

// find locates a message by id, scanning newest-first since receipts and
// reactions overwhelmingly target recent messages. Caller holds r.mu.
func (r *room) find(messageID string) *models.Message {
	for i := len(r.log) - 1; i >= 0; i-- {
		if r.log[i].ID == messageID {
			return r.log[i]
		}
	}
	return nil
}

// History returns a page of the room's log, oldest-first. With no cursor it
// returns the most recent messages. A cursor that is no longer in the log
// (evicted, or never existed) falls back to the oldest page. The cursor
// message itself is never included.
func (e *Engine) History(roomName, beforeID string, limit int) []*models.Message {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	r := e.room(roomName)
	if r == nil {
		return []*models.Message{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	end := len(r.log)
	if beforeID != "" {
		idx := -1
		for i, m := range r.log {
			if m.ID == beforeID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			end = idx
		} else {
			metrics.StaleReferencesTotal.Inc()
			end = min(limit, len(r.log))
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return cloneMessages(r.log[start:end])
}

// Search scans every room's log for a case-insensitive substring match
// against message text or sender name, in room-creation then chronological
// order. The scan is linear over all retained messages, which is bounded by
// the per-room capacity.
func (e *Engine) Search(query string, limit int) []*models.Message {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	q := strings.ToLower(strings.TrimSpace(query))
	results := []*models.Message{}
	if q == "" {
		return results
	}

	for _, name := range e.Rooms() {
		r := e.room(name)
		if r == nil {
			continue
		}
		r.mu.Lock()
		for _, m := range r.log {
			if m.Matches(q) {
				results = append(results, m.Clone())
				if len(results) == limit {
					r.mu.Unlock()
					return results
				}
			}
		}
		r.mu.Unlock()
	}
	return results
}

func cloneMessages(msgs []*models.Message) []*models.Message {
	return lo.Map(msgs, func(m *models.Message, _ int) *models.Message {
		return m.Clone()
	})
}
