// Package transport pumps websocket frames between a connection and the
// engine. Inbound frames are decoded into tagged events exactly once, at
// this boundary.
package transport

import (
	"encoding/json"
	"sync"
	"time"

	"chat-server/internal/engine"
	"chat-server/internal/models"
	"chat-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	engine    *engine.Engine
	connID    engine.ConnID
	identity  models.Identity
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, eng *engine.Engine, identity models.Identity) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		engine:   eng,
		connID:   engine.ConnID(uuid.NewString()),
		identity: identity,
	}
}

// Start attaches the connection to the engine and runs both pumps.
func (c *Client) Start() {
	c.engine.Connect(c.connID, c.identity, c)
	go c.writePump()
	go c.readPump()
}

// Send queues a frame for delivery. A full buffer means the consumer is
// not keeping up; the connection is dropped rather than blocking the
// engine's fan-out.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		logger.Warn("dropping slow connection %s (%s)", c.connID, c.identity.ID)
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.engine.Disconnect(c.connID)
		c.close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			logger.Debug("discarding malformed frame from %s: %v", c.connID, err)
			continue
		}
		c.handle(ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(ev models.ClientEvent) {
	switch ev.Type {
	case models.EventJoinRoom:
		members := c.engine.Join(c.connID, ev.Room)
		c.reply(models.ServerEvent{
			Type:    models.EventAck,
			Seq:     ev.Seq,
			OK:      true,
			Room:    ev.Room,
			Members: members,
		})

	case models.EventLeaveRoom:
		c.engine.Leave(c.connID, ev.Room)
		c.reply(models.ServerEvent{Type: models.EventAck, Seq: ev.Seq, OK: true, Room: ev.Room})

	case models.EventSend:
		var (
			msg *models.Message
			err error
		)
		if ev.To != "" {
			msg, err = c.engine.SendPrivate(c.connID, ev.Room, ev.To, ev.Text, ev.File)
		} else {
			msg, err = c.engine.SendBroadcast(c.connID, ev.Room, ev.Text, ev.File)
		}
		if err != nil {
			c.reply(models.ServerEvent{Type: models.EventAck, Seq: ev.Seq, Error: err.Error()})
			return
		}
		c.reply(models.ServerEvent{
			Type:      models.EventAck,
			Seq:       ev.Seq,
			OK:        true,
			MessageID: msg.ID,
			Timestamp: msg.Timestamp,
		})

	case models.EventDelivered:
		c.engine.MarkDelivered(c.connID, ev.Room, ev.MessageID)

	case models.EventRead:
		c.engine.MarkRead(c.connID, ev.Room, ev.MessageID)

	case models.EventReaction:
		c.engine.ToggleReaction(c.connID, ev.Room, ev.MessageID, ev.Reaction)

	case models.EventTyping:
		c.engine.Typing(c.connID, ev.Room, ev.IsTyping)

	case models.EventSearch:
		results := c.engine.Search(ev.Query, engine.MaxSearchResults)
		c.reply(models.ServerEvent{Type: models.EventSearchResults, Seq: ev.Seq, Results: results})

	default:
		logger.Debug("unknown event type %q from %s", ev.Type, c.connID)
	}
}

func (c *Client) reply(ev models.ServerEvent) {
	frame, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encoding %s reply: %v", ev.Type, err)
		return
	}
	c.Send(frame)
}
