package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trackroom/internal/config"
	"trackroom/internal/geo"
	"trackroom/internal/metrics"
)

// Client owns one WebSocket connection's lifecycle: connect, at most one
// room join, position updates, leave or drop. A reader goroutine feeds a
// single process loop through an ordered channel, so one connection's events
// are handled strictly in the order sent, while the reader still notices a
// dropped peer immediately and cancels any in-flight join.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	cfg    config.SocketConfig
	logger zerolog.Logger

	send   chan Event
	ctx    context.Context
	cancel context.CancelFunc

	// identity and membership, written by the join path inside the process
	// loop and read again only there or during teardown
	userID   int64
	username string
	roomID   string
}

func NewClient(hub *Hub, conn *websocket.Conn, cfg config.SocketConfig, logger zerolog.Logger, id string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		send:   make(chan Event, cfg.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// trySend enqueues without blocking. A client whose queue is full is too
// slow to keep up with its room and gets dropped.
func (c *Client) trySend(ev Event) bool {
	select {
	case c.send <- ev:
		return true
	default:
		metrics.DroppedSlowClients.Inc()
		c.cancel()
		return false
	}
}

// shutdown forces the connection closed. Events already enqueued (such as a
// join rejection) are flushed by the write pump before the close frame.
func (c *Client) shutdown() {
	c.cancel()
}

// Run drives the connection until it drops, then tears down its room state.
// Teardown happens exactly once, after the process loop has finished, so it
// can never race an in-flight event of the same connection.
func (c *Client) Run() {
	inbound := make(chan []byte, 32)
	go c.readLoop(inbound)

	c.processLoop(inbound)

	c.hub.Teardown(c)
	_ = c.conn.Close()
	metrics.ConnectedClients.Dec()
}

// readLoop pulls frames off the socket. Any read error means the peer is
// gone: the context is canceled first, aborting a join that may be waiting
// on the room service, before the inbound channel is closed.
func (c *Client) readLoop(inbound chan<- []byte) {
	defer func() {
		c.cancel()
		close(inbound)
	}()

	c.conn.SetReadLimit(int64(c.cfg.MaxMessageBytes))
	_ = c.conn.SetReadDeadline(time.Now().Add(time.Duration(c.cfg.PongWaitMS) * time.Millisecond))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(time.Duration(c.cfg.PongWaitMS) * time.Millisecond))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		inbound <- data
	}
}

func (c *Client) processLoop(inbound <-chan []byte) {
	for data := range inbound {
		if c.ctx.Err() != nil {
			// connection is going away; let the reader finish
			go func() {
				for range inbound {
				}
			}()
			return
		}
		metrics.MessagesIn.Inc()
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	switch env.Type {
	case MsgJoinRoom:
		if c.roomID != "" {
			return
		}
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		c.hub.Join(c.ctx, c, p.Token, p.RoomID)

	case MsgLocationUpdate:
		var p LocationUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		if !geo.ValidLatLng(p.Lat, p.Lng) {
			return
		}
		c.hub.Location(c, p.RoomID, p.Lat, p.Lng)

	case MsgStopSharing:
		var p RoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.hub.StopSharing(c, p.RoomID)

	case MsgLeaveRoom:
		var p RoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.hub.Leave(c, p.RoomID)
		if p.RoomID == c.roomID {
			c.roomID = ""
		}

	case MsgUpdateGeofence:
		var p UpdateGeofencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		c.hub.UpdateGeofence(p.RoomID, p.Geofence)

	case MsgAnnounceMeeting:
		var p AnnounceMeetingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		c.hub.AnnounceMeeting(p.RoomID, p.Meeting)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(time.Duration(c.cfg.PingPeriodMS) * time.Millisecond)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	writeWait := time.Duration(c.cfg.WriteWaitMS) * time.Millisecond

	for {
		select {
		case <-c.ctx.Done():
			c.flush(writeWait)
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// flush writes whatever is still queued so a rejection's error event
// reaches the client before the close frame.
func (c *Client) flush(writeWait time.Duration) {
	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		default:
			return
		}
	}
}
