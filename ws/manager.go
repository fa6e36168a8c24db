package ws

import (
	"context"
	"errors"
	"sync"

	"paywall_backend/internal/logger"
	"paywall_backend/internal/services"
)

// ErrNoSubscribers - ни один коллаборатор не подключен, уведомление некому доставить
var ErrNoSubscribers = errors.New("no websocket subscribers connected")

// Message - кадр, который получает коллаборатор
type Message struct {
	Type string                `json:"type"`
	Data services.Notification `json:"data"`
}

// WebSocketManager - хаб уведомлений. Реализует services.Notifier:
// уведомление уходит всем подключенным клиентам, чей фильтр его пропускает.
type WebSocketManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx, затем закрывает всех клиентов
func (manager *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(manager.done)
			manager.closeAll()
			logger.Info("websocket hub stopped")
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.ID] = client
			total := len(manager.clients)
			manager.mu.Unlock()
			logger.Info("websocket client registered", "client_id", client.ID, "subject", client.Subject, "total", total)

		case client := <-manager.unregister:
			manager.remove(client)

		case message := <-manager.broadcast:
			manager.broadcastMessage(message)
		}
	}
}

// Register добавляет клиента. false - хаб уже остановлен.
func (manager *WebSocketManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

// Unregister убирает клиента; после остановки хаба ничего не делает
func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// Notify ставит уведомление в очередь рассылки
func (manager *WebSocketManager) Notify(ctx context.Context, principalRef string, n services.Notification) error {
	if manager.GetClientCount() == 0 {
		return ErrNoSubscribers
	}

	n.PrincipalRef = principalRef
	select {
	case manager.broadcast <- Message{Type: "notification", Data: n}:
		return nil
	case <-manager.done:
		return ErrNoSubscribers
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (manager *WebSocketManager) broadcastMessage(message Message) {
	var slow []*Client

	manager.mu.RLock()
	for _, client := range manager.clients {
		if !client.accepts(message.Data.PrincipalRef) {
			continue
		}
		select {
		case client.Send <- message:
		default:
			slow = append(slow, client)
		}
	}
	manager.mu.RUnlock()

	// Канал заполнен, клиент отключается
	for _, client := range slow {
		logger.Warn("websocket client dropped: send buffer full", "client_id", client.ID)
		manager.remove(client)
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if current, ok := manager.clients[client.ID]; ok && current == client {
		close(client.Send)
		delete(manager.clients, client.ID)
		logger.Info("websocket client unregistered", "client_id", client.ID, "total", len(manager.clients))
	}
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for id, client := range manager.clients {
		close(client.Send)
		delete(manager.clients, id)
	}
}

// GetClientCount возвращает количество подключенных клиентов
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

// IsClientConnected проверяет, подключен ли клиент
func (manager *WebSocketManager) IsClientConnected(clientID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	_, exists := manager.clients[clientID]
	return exists
}
