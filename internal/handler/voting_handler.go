package handler

import (
	"video-voting-be/internal/pkg/logger"
	internalWS "video-voting-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// VotingHandler upgrades HTTP requests to websocket connections and hands
// them to the hub. Each connection gets a fresh opaque id that serves as the
// participant identifier for the life of the connection.
type VotingHandler struct {
	hub        *internalWS.Hub
	dispatcher *internalWS.Dispatcher
	logger     logger.ILogger
}

func NewVotingHandler(hub *internalWS.Hub, dispatcher *internalWS.Dispatcher, log logger.ILogger) *VotingHandler {
	return &VotingHandler{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     log,
	}
}

func (h *VotingHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/ws", h.ServeWs)
}

func (h *VotingHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			connID := uuid.New().String()
			h.logger.Info("VotingHandler", "Starting WebSocket session", map[string]interface{}{"conn_id": connID})
			internalWS.ServeWs(h.hub, conn, connID, h.dispatcher)
			h.logger.Info("VotingHandler", "WebSocket session ended", map[string]interface{}{"conn_id": connID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
