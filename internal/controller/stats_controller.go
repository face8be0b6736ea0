package controller

import (
	"time"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/pkg/serverutils"
	"video-voting-be/internal/service"
	"video-voting-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
)

type IStatsController interface {
	RegisterRoutes(r fiber.Router)
	GetStats(ctx *fiber.Ctx) error
	GetHealth(ctx *fiber.Ctx) error
}

type statsController struct {
	sessions  service.ISessionService
	story     service.IStoryService
	hub       *websocket.Hub
	startedAt time.Time
}

func NewStatsController(sessions service.ISessionService, story service.IStoryService, hub *websocket.Hub) IStatsController {
	return &statsController{
		sessions:  sessions,
		story:     story,
		hub:       hub,
		startedAt: time.Now(),
	}
}

func (c *statsController) RegisterRoutes(r fiber.Router) {
	r.Get("/stats", c.GetStats)
}

func (c *statsController) GetStats(ctx *fiber.Ctx) error {
	res := dto.StatsResponse{
		ActiveSessions:   c.sessions.ActiveSessions(),
		ConnectedClients: c.hub.ConnectedClients(),
		Sessions:         c.sessions.SessionStats(),
		StoryStats:       c.story.Stats(),
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get server stats", res))
}

func (c *statsController) GetHealth(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startedAt).Seconds(),
	})
}
