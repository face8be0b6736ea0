package service

import (
	"context"
	"errors"
	"sync"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/model"
	"video-voting-be/internal/pkg/events"
	"video-voting-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotInSession    = errors.New("not in a session")
	ErrNoParticipants  = errors.New("cannot start voting with no participants")
	ErrNoOptions       = errors.New("current node has no voting options")
	ErrWrongPhase      = errors.New("action not allowed in current phase")
	ErrVoteRejected    = errors.New("failed to record vote")
)

type IOrchestratorService interface {
	CreateSession(connID string) (*dto.SessionCreatedResponse, error)
	JoinSession(sessionID, connID string) (*dto.SessionJoinedResponse, error)
	StartVoting(connID string) error
	Vote(sessionID, connID, optionID string) (*dto.VoteRecordedResponse, error)
	AnnounceUserCount(sessionID string)
	Disconnect(connID string)
	SessionForConn(connID string) (string, bool)
}

// orchestratorService drives the per-session phase machine
// (waiting -> voting -> playing -> waiting|complete). Transitions for one
// session are serialized behind a per-session mutex; sessions never block
// each other. Outbound events go through the in-process event bus, keeping
// the machine free of transport types.
type orchestratorService struct {
	sessions  ISessionService
	voting    IVotingService
	story     IStoryService
	publisher message.Publisher
	wait      WaitPolicy
	logger    logger.ILogger

	ctx context.Context

	membersMu sync.RWMutex
	members   map[string]string // conn id -> session id

	transitions sync.Map // session id -> *sync.Mutex
}

func NewOrchestratorService(
	ctx context.Context,
	sessions ISessionService,
	voting IVotingService,
	story IStoryService,
	publisher message.Publisher,
	wait WaitPolicy,
	log logger.ILogger,
) IOrchestratorService {
	return &orchestratorService{
		sessions:  sessions,
		voting:    voting,
		story:     story,
		publisher: publisher,
		wait:      wait,
		logger:    log,
		ctx:       ctx,
		members:   make(map[string]string),
	}
}

func (s *orchestratorService) CreateSession(connID string) (*dto.SessionCreatedResponse, error) {
	res, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}

	s.membersMu.Lock()
	s.members[connID] = res.SessionID
	s.membersMu.Unlock()

	s.logger.Info("Orchestrator", "Session created", map[string]interface{}{
		"session_id": res.SessionID,
		"conn_id":    connID,
	})
	return res, nil
}

func (s *orchestratorService) JoinSession(sessionID, connID string) (*dto.SessionJoinedResponse, error) {
	if !s.sessions.AddParticipant(sessionID, connID) {
		return nil, ErrSessionNotFound
	}

	s.membersMu.Lock()
	s.members[connID] = sessionID
	s.membersMu.Unlock()

	snap, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.logger.Info("Orchestrator", "Participant joined session", map[string]interface{}{
		"session_id": sessionID,
		"conn_id":    connID,
		"count":      len(snap.ConnectedUsers),
	})

	return &dto.SessionJoinedResponse{
		SessionID:        sessionID,
		CurrentPhase:     snap.CurrentPhase,
		CurrentVideoNode: snap.CurrentVideoNode,
	}, nil
}

// StartVoting opens a voting round on the caller's session. On an ending node
// it short-circuits straight to complete and announces the finished story.
func (s *orchestratorService) StartVoting(connID string) error {
	sessionID, ok := s.SessionForConn(connID)
	if !ok {
		return ErrNotInSession
	}

	mu := s.transitionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	snap, ok := s.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	if s.story.IsEnding(snap.CurrentVideoNode) {
		s.sessions.SetPhase(sessionID, model.PhaseComplete)
		s.emit(sessionID, "", dto.EventStoryComplete, dto.StoryCompleteResponse{
			EndingNodeID: snap.CurrentVideoNode,
			StoryPath:    snap.StoryPath,
		})
		return nil
	}

	options := s.story.GetOptions(snap.CurrentVideoNode)
	if len(options) == 0 {
		return ErrNoOptions
	}
	if snap.CurrentPhase != model.PhaseWaiting {
		return ErrWrongPhase
	}
	if len(snap.ConnectedUsers) == 0 {
		return ErrNoParticipants
	}

	s.sessions.SetPhase(sessionID, model.PhaseVoting)
	s.voting.ResetForNextRound(sessionID)

	var nodeTitle string
	if node, ok := s.story.GetNode(snap.CurrentVideoNode); ok {
		nodeTitle = node.Title
	}

	s.emit(sessionID, "", dto.EventVotingStarted, dto.VotingStartedResponse{
		Options:   options,
		NodeTitle: nodeTitle,
	})

	s.logger.Info("Orchestrator", "Voting started", map[string]interface{}{
		"session_id": sessionID,
		"node_id":    snap.CurrentVideoNode,
	})
	return nil
}

// Vote records a ballot and resolves the round once every connected
// participant has voted.
func (s *orchestratorService) Vote(sessionID, connID, optionID string) (*dto.VoteRecordedResponse, error) {
	snap, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	valid := false
	for _, opt := range s.story.GetOptions(snap.CurrentVideoNode) {
		if opt.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrVoteRejected
	}

	if !s.voting.CastVote(sessionID, connID, optionID) {
		return nil, ErrVoteRejected
	}

	voteCount := s.voting.VoteCount(sessionID)
	totalUsers := s.sessions.ParticipantCount(sessionID)

	if voteCount >= totalUsers && totalUsers > 0 {
		go s.resolveRound(sessionID)
	}

	return &dto.VoteRecordedResponse{
		VoteCount:  voteCount,
		TotalUsers: totalUsers,
	}, nil
}

// AnnounceUserCount broadcasts the current participant count to the room.
// Called after membership changes once the transport has settled room state.
func (s *orchestratorService) AnnounceUserCount(sessionID string) {
	s.emit(sessionID, "", dto.EventUserCountUpdate, dto.UserCountUpdateResponse{
		Count: s.sessions.ParticipantCount(sessionID),
	})
}

// Disconnect removes the connection from its session, drops its ballot and
// re-checks the all-voted condition; the departure of a non-voter can be the
// event that completes a round.
func (s *orchestratorService) Disconnect(connID string) {
	s.membersMu.Lock()
	sessionID, ok := s.members[connID]
	if ok {
		delete(s.members, connID)
	}
	s.membersMu.Unlock()
	if !ok {
		return
	}

	s.sessions.RemoveParticipant(sessionID, connID)

	snap, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}

	s.emit(sessionID, "", dto.EventUserCountUpdate, dto.UserCountUpdateResponse{
		Count: len(snap.ConnectedUsers),
	})

	if snap.CurrentPhase == model.PhaseVoting &&
		len(snap.ConnectedUsers) > 0 &&
		snap.VoteCount >= len(snap.ConnectedUsers) {
		go s.resolveRound(sessionID)
	}

	s.logger.Info("Orchestrator", "Participant disconnected", map[string]interface{}{
		"session_id": sessionID,
		"conn_id":    connID,
		"count":      len(snap.ConnectedUsers),
	})
}

func (s *orchestratorService) SessionForConn(connID string) (string, bool) {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()
	sessionID, ok := s.members[connID]
	return sessionID, ok
}

// resolveRound runs the voting -> playing -> waiting|complete arc for one
// session. The transition mutex keeps a second all-voted trigger (or a
// concurrent startVoting) from interleaving with it.
func (s *orchestratorService) resolveRound(sessionID string) {
	mu := s.transitionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	snap, ok := s.sessions.Get(sessionID)
	if !ok || snap.CurrentPhase != model.PhaseVoting {
		return
	}

	options := s.story.GetOptions(snap.CurrentVideoNode)
	result := s.voting.Tally(sessionID, options)
	if result == nil {
		return
	}

	s.sessions.SetPhase(sessionID, model.PhasePlaying)
	s.emit(sessionID, "", dto.EventVotingResults, dto.VotingResultsResponse{
		WinningOption: result.WinningOption,
		VoteBreakdown: result.VoteBreakdown,
	})

	s.logger.Info("Orchestrator", "Voting resolved", map[string]interface{}{
		"session_id":  sessionID,
		"winner":      result.WinningOption.ID,
		"total_votes": result.TotalVotes,
	})

	s.wait.ResultsPause(s.ctx)

	nextNodeID := result.WinningOption.NextNodeID
	if _, ok := s.story.GetNode(nextNodeID); !ok {
		s.logger.Error("Orchestrator", "Winning option points to missing node", map[string]interface{}{
			"session_id": sessionID,
			"node_id":    nextNodeID,
		})
		s.sessions.SetPhase(sessionID, model.PhaseWaiting)
		return
	}

	s.sessions.AdvanceTo(sessionID, nextNodeID)

	if videoURL, ok := s.story.VideoURL(nextNodeID); ok {
		s.emit(sessionID, "", dto.EventPlayVideo, dto.PlayVideoResponse{
			VideoURL: videoURL,
			NodeID:   nextNodeID,
		})
	}

	s.wait.PlaybackWait(s.ctx, nextNodeID)

	if s.story.IsEnding(nextNodeID) {
		s.sessions.SetPhase(sessionID, model.PhaseComplete)
		if final, ok := s.sessions.Get(sessionID); ok {
			s.emit(sessionID, "", dto.EventStoryComplete, dto.StoryCompleteResponse{
				EndingNodeID: nextNodeID,
				StoryPath:    final.StoryPath,
			})
		}
		return
	}

	s.sessions.SetPhase(sessionID, model.PhaseWaiting)
}

func (s *orchestratorService) transitionLock(sessionID string) *sync.Mutex {
	mu, _ := s.transitions.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *orchestratorService) emit(sessionID, target, event string, payload interface{}) {
	msg, err := events.NewMessage(sessionID, target, event, payload)
	if err != nil {
		s.logger.Error("Orchestrator", "Failed to build event message", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
		return
	}
	if err := s.publisher.Publish(events.TopicSessionEvents, msg); err != nil {
		s.logger.Error("Orchestrator", "Failed to publish event", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
	}
}
