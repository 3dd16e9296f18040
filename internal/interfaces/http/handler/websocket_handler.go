package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	wsInfra "github.com/dreschagin/sre-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

const defaultMaxClients = 100

// WebSocketConfig параметры живой ленты циклов
type WebSocketConfig struct {
	AllowedOrigins []string
	MaxClients     int
}

// WebSocketHandler подключает клиентов живой ленты к hub.
// Авторизация выполняется middleware на маршруте /ws.
type WebSocketHandler struct {
	hub            *wsInfra.Hub
	logger         *logger.Logger
	allowedOrigins map[string]struct{}
	allowAny       bool
	maxClients     int
	upgrader       websocket.Upgrader
}

func NewWebSocketHandler(hub *wsInfra.Hub, cfg WebSocketConfig, logger *logger.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		maxClients:     cfg.MaxClients,
	}
	if h.maxClients <= 0 {
		h.maxClients = defaultMaxClients
	}

	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			h.allowAny = true
		default:
			h.allowedOrigins[origin] = struct{}{}
		}
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin допускает только перечисленные origin; пустой список закрывает ленту
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if h.allowAny {
		return true
	}

	_, ok := h.allowedOrigins[parsed.Scheme+"://"+parsed.Host]
	return ok
}

// HandleConnection поднимает соединение; ?types=cycle,alert ограничивает типы сообщений
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if h.hub.ClientCount() >= h.maxClients {
		h.logger.Warn("WebSocket client limit reached",
			"limit", h.maxClients,
			"client_ip", r.RemoteAddr,
		)
		http.Error(w, "Too many live feed clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error(), "origin", r.Header.Get("Origin"))
		return
	}

	client := wsInfra.NewClient(h.hub, conn, r.URL.Query().Get("types"), h.logger)
	h.hub.Register(client)

	h.logger.Debug("WebSocket client connected",
		"remote_addr", r.RemoteAddr,
		"clients", h.hub.ClientCount(),
	)

	go client.WritePump()
	go client.ReadPump()
}
