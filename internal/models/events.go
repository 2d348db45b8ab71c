package models

import "time"

type EventType string

// Inbound event types.
const (
	EventJoinRoom   EventType = "join_room"
	EventLeaveRoom  EventType = "leave_room"
	EventSend       EventType = "send_message"
	EventDelivered  EventType = "message_delivered"
	EventRead       EventType = "message_read"
	EventReaction   EventType = "message_reaction"
	EventTyping     EventType = "typing"
	EventSearch     EventType = "search"
)

// Outbound event types.
const (
	EventReceiveMessage EventType = "receive_message"
	EventPrivateMessage EventType = "private_message"
	EventSystemMessage  EventType = "system_message"
	EventUserTyping     EventType = "user_typing"
	EventUserList       EventType = "user_list"
	EventRoomList       EventType = "room_list"
	EventRoomMembers    EventType = "room_members"
	EventSearchResults  EventType = "search_results"
	EventAck            EventType = "ack"
)

// ClientEvent is the single inbound frame shape. The type tag selects
// which fields are meaningful; decoding happens once at the transport
// boundary, not per handler.
type ClientEvent struct {
	Type      EventType `json:"type"`
	Seq       int64     `json:"seq,omitempty"`
	Room      string    `json:"room,omitempty"`
	To        string    `json:"to,omitempty"`
	Text      string    `json:"text,omitempty"`
	File      *FileRef  `json:"file,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Reaction  string    `json:"reaction,omitempty"`
	IsTyping  bool      `json:"isTyping,omitempty"`
	Query     string    `json:"q,omitempty"`
}

// ServerEvent is the single outbound frame shape.
type ServerEvent struct {
	Type      EventType           `json:"type"`
	Seq       int64               `json:"seq,omitempty"`
	OK        bool                `json:"ok,omitempty"`
	Error     string              `json:"error,omitempty"`
	Message   *Message            `json:"message,omitempty"`
	MessageID string              `json:"messageId,omitempty"`
	Text      string              `json:"text,omitempty"`
	Room      string              `json:"room,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	Username  string              `json:"username,omitempty"`
	IsTyping  bool                `json:"isTyping,omitempty"`
	ReadBy    []string            `json:"readBy,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	Users     []Identity          `json:"users,omitempty"`
	Members   []Identity          `json:"members,omitempty"`
	Rooms     []string            `json:"rooms,omitempty"`
	Results   []*Message          `json:"results,omitempty"`
	Timestamp time.Time           `json:"timestamp,omitempty"`
}
