package bootstrap

import (
	"context"
	"math/rand"
	"time"

	"video-voting-be/internal/config"
	"video-voting-be/internal/controller"
	"video-voting-be/internal/handler"
	"video-voting-be/internal/pkg/logger"
	"video-voting-be/internal/service"
	"video-voting-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	StatsController controller.IStatsController

	// WebSockets
	VotingHandler *handler.VotingHandler
	WebSocketHub  *websocket.Hub

	// Core services
	StoryService        service.IStoryService
	SessionService      service.ISessionService
	VotingService       service.IVotingService
	OrchestratorService service.IOrchestratorService

	Logger logger.ILogger
}

// NewContainer wires the full dependency graph. The context bounds every
// background worker (hub, event bus consumption, settling delays).
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Story graph is immutable after this point; load failure is fatal.
	storyService, err := service.NewStoryService(cfg.Story.ConfigPath, sysLogger)
	if err != nil {
		return nil, err
	}

	sessionService := service.NewSessionService(
		storyService,
		cfg.App.ClientURL,
		cfg.Session.TTL,
		cfg.Session.CleanupInterval,
		sysLogger,
	)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	votingService := service.NewVotingService(sessionService, rng, sysLogger)

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	waitPolicy := service.FixedDelayPolicy{
		ResultsDelay:  cfg.Voting.ResultsDelay,
		PlaybackDelay: cfg.Voting.PlaybackDelay,
	}

	orchestrator := service.NewOrchestratorService(
		ctx,
		sessionService,
		votingService,
		storyService,
		pubSub,
		waitPolicy,
		sysLogger,
	)

	hub := websocket.NewHub(pubSub, sysLogger)
	hub.SetDisconnectHandler(orchestrator.Disconnect)

	dispatcher := websocket.NewDispatcher(orchestrator, hub, sysLogger)
	votingHandler := handler.NewVotingHandler(hub, dispatcher, sysLogger)
	statsController := controller.NewStatsController(sessionService, storyService, hub)

	return &Container{
		StatsController:     statsController,
		VotingHandler:       votingHandler,
		WebSocketHub:        hub,
		StoryService:        storyService,
		SessionService:      sessionService,
		VotingService:       votingService,
		OrchestratorService: orchestrator,
		Logger:              sysLogger,
	}, nil
}
