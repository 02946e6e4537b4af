// Package remote открывает сессию внешнему слою представления: HTTP API на gin и поток событий через WebSocket
package remote

import (
	"context"
	"log/slog"
	"sync"
)

type directMessage struct {
	client  *Client
	message []byte
}

// Hub хранит подключенных клиентов и рассылает им события
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	done       chan struct{}
	logger     *slog.Logger

	mu    sync.RWMutex
	count int
}

// NewHub создает хаб
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обрабатывает подключения и рассылку до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			h.logger.Info("клиент WebSocket подключен", "remote", client.remote)

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Info("клиент WebSocket отключен", "remote", client.remote)
			}

		case dm := <-h.direct:
			if h.clients[dm.client] {
				select {
				case dm.client.send <- dm.message:
				default:
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Медленный клиент отключается, чтобы не задерживать остальных
					h.logger.Warn("очередь клиента переполнена, отключаем", "remote", client.remote)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Clients возвращает количество подключенных клиентов
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Broadcast ставит сообщение в очередь рассылки; при переполнении сообщение отбрасывается
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("очередь рассылки переполнена, событие отброшено")
	}
}

// SendTo отправляет сообщение одному клиенту
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// Register регистрирует клиента; после остановки хаба возвращает false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister отключает клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
