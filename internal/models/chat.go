package models

import (
	"strings"
	"time"
)

// Identity is a logical chat participant, distinct from any single live
// connection. Rows are retained after disconnect so offline users stay
// valid private-message targets.
type Identity struct {
	ID     string `json:"userId"`
	Name   string `json:"username"`
	Online bool   `json:"online"`
}

// FileRef points at an uploaded attachment. The engine never checks
// reachability; it only carries the URL.
type FileRef struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Message is immutable after creation except for DeliveredTo, ReadBy and
// Reactions, which are mutated under the owning room's lock.
type Message struct {
	ID          string              `json:"id"`
	Room        string              `json:"room"`
	SenderID    string              `json:"senderId"`
	Sender      string              `json:"sender"`
	Text        string              `json:"text,omitempty"`
	File        *FileRef            `json:"file,omitempty"`
	IsPrivate   bool                `json:"isPrivate"`
	To          string              `json:"to,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	DeliveredTo []string            `json:"deliveredTo"`
	ReadBy      []string            `json:"readBy"`
	Reactions   map[string][]string `json:"reactions"`
}

// Clone returns a deep copy safe to hand out after the room lock is
// released.
func (m *Message) Clone() *Message {
	cp := *m
	cp.DeliveredTo = append([]string(nil), m.DeliveredTo...)
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	if m.Reactions != nil {
		cp.Reactions = make(map[string][]string, len(m.Reactions))
		for symbol, ids := range m.Reactions {
			cp.Reactions[symbol] = append([]string(nil), ids...)
		}
	}
	if m.File != nil {
		file := *m.File
		cp.File = &file
	}
	return &cp
}

// Matches reports whether the message text or sender name contains the
// already-lowercased query.
func (m *Message) Matches(query string) bool {
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(m.Text), query) ||
		strings.Contains(strings.ToLower(m.Sender), query)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=30"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
