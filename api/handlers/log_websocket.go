package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/pkg/logger"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LogWebSocketHandler streams the log feed to dashboard clients
type LogWebSocketHandler struct {
	bus    *logger.LogBus
	logger *zap.Logger
}

// NewLogWebSocketHandler creates a new WebSocket handler
func NewLogWebSocketHandler(bus *logger.LogBus, log *zap.Logger) *LogWebSocketHandler {
	return &LogWebSocketHandler{
		bus:    bus,
		logger: log,
	}
}

// HandleWebSocket handles GET /ws/log. Each frame carries one feed line,
// the backlog first and live lines after it.
func (h *LogWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sub, err := h.bus.Subscribe()
	if err != nil {
		h.logger.Error("Failed to subscribe to log feed", zap.Error(err))
		return
	}
	defer sub.Close()

	addr := c.Request.RemoteAddr
	h.bus.Info("New client connected: %s", addr)
	defer h.bus.Info("Client disconnected: %s", addr)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the close; clients never send anything meaningful.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(messageType, data)
	}

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		line, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if err := write(websocket.TextMessage, []byte(line)); err != nil {
			h.logger.Debug("Failed to send log line", zap.Error(err))
			return
		}
	}
}
