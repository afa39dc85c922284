// Package ws доставляет уведомления подключённым пользователям через WebSocket.
// Hub реализует notify.Sink: пользователь без открытых соединений просто ничего не получает,
// долговременная доставка остаётся за Kafka.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
)

// Hub управляет всеми WebSocket клиентами.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// envelope - формат сообщения для клиента: type содержит имя события, data полезную нагрузку.
type envelope struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию и рассылку до отмены ctx, затем закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register после остановки хаба сразу закрывает канал клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Send ставит событие в очередь рассылки. Блокируется, пока очередь полна или ctx не отменён.
func (h *Hub) Send(ctx context.Context, event notify.Event) error {
	if !h.HasClients(event.UserID) {
		return nil
	}

	raw, err := json.Marshal(envelope{
		ID:         event.ID,
		Type:       event.Type,
		Data:       event.Payload,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{userID: event.UserID, payload: raw}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ws: очередь рассылки переполнена: %w", ctx.Err())
	}
}

// HasClients сообщает, есть ли у пользователя открытые соединения.
func (h *Hub) HasClients(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	metrics.WSConnections.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WSConnections.Dec()
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

// send не ждёт медленных клиентов: переполненный буфер означает отключение.
func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.removeClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
			metrics.WSConnections.Dec()
		}
		delete(h.clients, userID)
	}
}
