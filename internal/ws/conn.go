package ws

import (
	"net/http"
	"time"

	"chatterbox/internal/config"
	"chatterbox/internal/metrics"
	"chatterbox/internal/mw"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client 是一条 websocket 连接。id / joined / closed 只由 hub goroutine 读写。
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	id     int
	joined bool
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, cfg config.Config) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(cfg.EventRate), cfg.EventBurst),
	}
}

// Send 实现 session.Sender：队列满时立即返回 false，绝不阻塞 hub。
func (c *Client) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func Serve(h *Hub, cfg config.Config) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return mw.OriginAllowed(cfg.Env, r.Header.Get("Origin"), r.Host)
		},
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Str("remote", c.Request.RemoteAddr).Msg("websocket upgrade")
			return
		}
		client := newClient(h, conn, cfg)
		if !h.submit(event{kind: evConnect, client: client}) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(cfg.MaxMessageBytes)
	}
}

func (c *Client) readPump(limit int64) {
	defer func() {
		c.hub.submit(event{kind: evDisconnect, client: c})
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(limit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("remote", c.conn.RemoteAddr().String()).Msg("websocket read")
			}
			return
		}
		if !c.limiter.Allow() {
			metrics.WsRejectedTotal.WithLabelValues("rate_limited").Inc()
			log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("event rate exceeded, frame dropped")
			continue
		}
		if !c.hub.submit(event{kind: evMessage, client: c, data: data}) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
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
