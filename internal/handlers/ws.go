package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"numrush/internal/game"
	"numrush/pkg/realtime"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMaxMessageSize = 1024
)

// wsCommand is a message sent by a websocket client.
type wsCommand struct {
	Type   string `json:"type"`
	Point  string `json:"point,omitempty"`
	Points int    `json:"points,omitempty"`
}

// wsMessage is a message pushed to a websocket client.
type wsMessage struct {
	Type   string `json:"type"`
	State  any    `json:"state,omitempty"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type wsConn struct {
	id      string
	session *game.Session
	conn    *websocket.Conn
	replies chan wsMessage
	done    chan struct{}
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		u.CheckOrigin = originChecker(allowedOrigins)
	}
	return u
}

// originChecker accepts same-host requests and the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *GameHandler) socket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	hub, ok := h.store.Broadcaster(sess.ID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Debug().Err(err).Str("session", sess.ID).Msg("websocket upgrade failed")
		return
	}

	c := &wsConn{
		id:      uuid.NewString(),
		session: sess,
		conn:    conn,
		replies: make(chan wsMessage, 8),
		done:    make(chan struct{}),
	}
	sub := hub.Subscribe()
	log.Info().Str("connection_id", c.id).Str("session", sess.ID).Msg("websocket connected")

	go h.readPump(c)
	h.writePump(c, hub, sub)

	log.Info().Str("connection_id", c.id).Str("session", sess.ID).Msg("websocket disconnected")
}

// writePump owns all writes to the connection. Bursts of events collapse into
// one state message.
func (h *GameHandler) writePump(c *wsConn, hub *realtime.Broadcaster, sub chan string) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		hub.Unsubscribe(sub)
		c.conn.Close()
	}()

	if err := c.writeState(); err != nil {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case _, ok := <-sub:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			drain(sub)
			if err := c.writeState(); err != nil {
				return
			}
		case msg := <-c.replies:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump applies client commands until the connection fails.
func (h *GameHandler) readPump(c *wsConn) {
	defer close(c.done)

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.reply(wsMessage{Type: "error", Error: "invalid message"})
			continue
		}
		c.reply(h.apply(c.session, cmd))
	}
}

func (h *GameHandler) apply(sess *game.Session, cmd wsCommand) wsMessage {
	switch cmd.Type {
	case "click":
		result, err := h.clickPoint(sess, cmd.Point)
		if err != nil {
			return wsMessage{Type: "error", Error: err.Error()}
		}
		return wsMessage{Type: "click", Result: result.String()}
	case "restart":
		h.restartRound(sess)
		return wsMessage{Type: "restart"}
	case "autoplay":
		on := h.toggleAuto(sess)
		return wsMessage{Type: "autoplay", Result: onOff(on)}
	case "points":
		if _, err := h.setPointCount(sess, cmd.Points); err != nil {
			return wsMessage{Type: "error", Error: err.Error()}
		}
		return wsMessage{Type: "points"}
	default:
		return wsMessage{Type: "error", Error: "unknown command " + cmd.Type}
	}
}

func (c *wsConn) reply(msg wsMessage) {
	select {
	case c.replies <- msg:
	default:
		log.Debug().Str("connection_id", c.id).Str("type", msg.Type).Msg("reply dropped")
	}
}

func (c *wsConn) writeState() error {
	return c.write(wsMessage{Type: "state", State: buildState(c.session.ID, c.session.Engine.Snapshot())})
}

func (c *wsConn) write(msg wsMessage) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.id).Msg("websocket write failed")
		return err
	}
	return nil
}

func drain(ch chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
