package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/pkg/log"
)

// Client is one websocket connection. Send is drained by WritePump; the
// channel set and closed flag belong to the hub loop.
type Client struct {
	ID      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *domain.Session
	config  config.WebSocketConfig

	channels map[string]struct{}
	attached bool
	closed   bool
}

func NewClient(hub *Hub, conn *websocket.Conn, session *domain.Session, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		ID:       session.ID,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, size),
		Session:  session,
		config:   cfg,
		channels: make(map[string]struct{}),
	}
}

// UserID returns the authenticated user behind the connection.
func (c *Client) UserID() string {
	return c.Session.UserID
}

// ReadPump reads frames until the connection fails, passing each to
// handler on this goroutine. onClose runs once the loop exits.
func (c *Client) ReadPump(handler func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l := log.L()
				l.Debug().Err(err).Str(log.FieldSessionID, c.ID).Msg("websocket read failed")
			}
			return
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
// It returns when the hub closes Send or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
