// internal/handler/telemetry_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"roaster-service/internal/model"
	"roaster-service/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// TelemetryHandler streams roaster readings to WebSocket clients. Every
// successful status poll is broadcast to all connected clients.
type TelemetryHandler struct {
	upgrader websocket.Upgrader
	logger   *utils.ServiceLogger

	mu      sync.RWMutex
	clients map[string]*telemetryClient
}

// telemetryClient is one WebSocket subscriber.
type telemetryClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local control plane; origin checking is the proxy's job.
				return true
			},
		},
		logger:  utils.NewServiceLogger(logger, "telemetry-handler"),
		clients: make(map[string]*telemetryClient),
	}
}

// HandleTelemetry upgrades the connection and registers the client for
// reading broadcasts.
func (h *TelemetryHandler) HandleTelemetry(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &telemetryClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.logger.Info("Telemetry client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", c.Request.RemoteAddr),
	)

	go h.writePump(client)
	go h.readPump(client)
}

// BroadcastReading fans one telemetry snapshot out to every client.
// Slow clients are skipped, not waited on.
func (h *TelemetryHandler) BroadcastReading(reading model.RoasterReading) {
	payload, err := json.Marshal(reading)
	if err != nil {
		h.logger.Error("Failed to marshal reading", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// ClientCount returns the number of connected telemetry clients.
func (h *TelemetryHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// unregister removes a client and closes its connection.
func (h *TelemetryHandler) unregister(client *telemetryClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	h.mu.Unlock()

	client.conn.Close()
	h.logger.Info("Telemetry client disconnected", zap.String("client_id", client.id))
}

// readPump drains inbound frames until the client goes away. Clients
// only listen; anything they send is discarded.
func (h *TelemetryHandler) readPump(client *telemetryClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes broadcasts and keepalive pings to the client.
func (h *TelemetryHandler) writePump(client *telemetryClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
