package websocket

import (
	"encoding/json"
	"sync"

	"github.com/mautops/warehouse-gin/internal/metrics"
	"github.com/sirupsen/logrus"
)

// 看板事件类型
const (
	EventTaskCreated         = "task_created"
	EventTaskUpdated         = "task_updated"
	EventTaskDeleted         = "task_deleted"
	EventNotificationCreated = "notification_created"
	EventNotificationUpdated = "notification_updated"
)

// Event 推送给看板的事件信封
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub 管理所有 WebSocket 连接,同时向 SSE 订阅者转发同一事件流
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 广播消息到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// SSE 订阅者,订阅者收到与 WebSocket 客户端相同的字节流
	subscribers map[chan []byte]bool

	logger *logrus.Logger

	// 互斥锁,保护 clients 与 subscribers
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		Broadcast:   make(chan []byte, 64),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		subscribers: make(map[chan []byte]bool),
		logger:      logger,
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.SetWebsocketClients(len(h.clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			metrics.SetWebsocketClients(len(h.clients))
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			for ch := range h.subscribers {
				select {
				case ch <- message:
				default:
					// 订阅者消费过慢,丢弃本条
				}
			}
			metrics.SetWebsocketClients(len(h.clients))
			h.mu.Unlock()
		}
	}
}

// PublishEvent 序列化并广播一个看板事件
// 序列化失败只记日志,事件丢弃
func (h *Hub) PublishEvent(eventType string, payload interface{}) {
	data, err := json.Marshal(&Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.WithError(err).WithField("event_type", eventType).Warn("failed to marshal event")
		return
	}

	select {
	case h.Broadcast <- data:
	default:
		h.logger.WithField("event_type", eventType).Warn("broadcast channel full, dropping event")
	}
}

// Subscribe 注册一个 SSE 订阅通道
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()
	return ch
}

// Unsubscribe 注销 SSE 订阅通道
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
