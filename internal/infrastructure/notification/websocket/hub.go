package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// Типы сообщений
const (
	MessageTypeCycle = "cycle"
	MessageTypeAlert = "alert"
)

// ErrHubBusy возвращается, если очередь рассылки заполнена
var ErrHubBusy = errors.New("websocket hub queue is full")

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "cycle" или "alert"
	Data interface{} `json:"data"`
}

// AlertMessage уведомление, отправляемое клиентам
type AlertMessage struct {
	Channel    string    `json:"channel"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Recipients []string  `json:"recipients"`
	CycleID    string    `json:"cycle_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Hub управляет WebSocket клиентами и рассылает результаты циклов.
// Реализует port.LiveFeed и port.NotificationService.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast сообщений
	broadcast chan Message

	// Каналы регистрации и удаления клиентов
	register   chan *Client
	unregister chan *Client

	// Последний отчет цикла, отправляется новым клиентам
	last *dto.CycleReportDTO

	// Закрывается при остановке Run
	done chan struct{}

	// Mutex для защиты clients и last
	mu sync.RWMutex

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает hub до отмены контекста (в отдельной goroutine)
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			last := h.last
			total := len(h.clients)
			h.mu.Unlock()

			// Новый клиент сразу получает последний отчет
			if last != nil {
				h.deliver(client, Message{Type: MessageTypeCycle, Data: last})
			}
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver отправляет сообщение клиенту; переполненный клиент отключается
func (h *Hub) deliver(client *Client, message Message) {
	if !client.Accepts(message.Type) {
		return
	}

	select {
	case client.send <- message:
	default:
		h.mu.Lock()
		h.remove(client)
		h.mu.Unlock()
		h.logger.Warn("Client channel full, disconnected")
	}
}

// remove вызывается под h.mu
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.remove(client)
	}
}

// Register регистрирует нового клиента. После остановки hub канал клиента сразу закрывается.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastCycle отправляет отчет цикла всем клиентам (port.LiveFeed)
func (h *Hub) BroadcastCycle(report *dto.CycleReportDTO) {
	h.mu.Lock()
	h.last = report
	h.mu.Unlock()

	select {
	case h.broadcast <- Message{Type: MessageTypeCycle, Data: report}:
	default:
		h.logger.Warn("Broadcast channel full, dropping cycle report", "cycle_id", report.CycleID)
	}
}

// Name возвращает имя канала доставки (port.NotificationService)
func (h *Hub) Name() string {
	return "websocket"
}

// Notify рассылает уведомление клиентам (port.NotificationService)
func (h *Hub) Notify(ctx context.Context, intent port.NotificationIntent) error {
	alert := AlertMessage{
		Channel:    intent.Channel,
		Severity:   intent.SeverityBand,
		Message:    intent.Message,
		Recipients: intent.Recipients,
		SentAt:     time.Now().UTC(),
	}
	if intent.Report != nil {
		alert.CycleID = intent.Report.CycleID
	}

	select {
	case h.broadcast <- Message{Type: MessageTypeAlert, Data: alert}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrHubBusy
	}
}

// ClientCount возвращает количество подключенных клиентов (port.LiveFeed)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
