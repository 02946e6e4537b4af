package remote

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/hazadus/go-abloop/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// newUpgrader пропускает клиентов без заголовка Origin (не браузеры), страницы того же хоста
// и источники из списка. Остальные страницы не могут управлять плеером.
func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || lo.Contains(origins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// Client - одно WebSocket подключение
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	controller Controller
	logger     *slog.Logger
	remote     string
}

// NewClient создает клиента поверх установленного подключения
func NewClient(hub *Hub, conn *websocket.Conn, controller Controller, logger *slog.Logger) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		controller: controller,
		logger:     logger,
		remote:     conn.RemoteAddr().String(),
	}
}

// StartPumps запускает чтение и запись
func (c *Client) StartPumps() {
	go c.writePump()
	go c.readPump()
}

// readPump принимает команды клиента в виде JSON текстовых сообщений
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("ошибка WebSocket", "remote", c.remote, "error", err)
			}
			return
		}

		intent, err := session.DecodeIntent(message)
		if err != nil {
			// Ошибку разбора видит только отправитель
			c.reply(session.ErrorOccurred{Kind: session.KindOf(err), Text: err.Error()})
			continue
		}
		// Отклоненная команда приходит всем клиентам событием ErrorOccurred
		_ = c.controller.Dispatch(intent)
	}
}

func (c *Client) reply(event session.Event) {
	data, err := session.EncodeEvent(event)
	if err != nil {
		return
	}
	// Канал send закрывает только хаб, поэтому пишем через него
	c.hub.SendTo(c, data)
}

// writePump отправляет события клиенту и поддерживает соединение пингами
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("ошибка записи WebSocket", "remote", c.remote, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
