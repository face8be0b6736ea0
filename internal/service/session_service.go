package service

import (
	"fmt"
	"time"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/model"
	"video-voting-be/internal/pkg/logger"
	"video-voting-be/internal/pkg/qr"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/patrickmn/go-cache"
)

const sessionIDLength = 8

type ISessionService interface {
	Create() (*dto.SessionCreatedResponse, error)
	Exists(sessionID string) bool
	Get(sessionID string) (*model.Snapshot, bool)
	AddParticipant(sessionID, participantID string) bool
	RemoveParticipant(sessionID, participantID string)
	SetPhase(sessionID, phase string) bool
	AdvanceTo(sessionID, nodeID string) bool
	ParticipantCount(sessionID string) int
	CastVote(sessionID, participantID, optionID string) bool
	VoteCount(sessionID string) int
	VotesSnapshot(sessionID string) (map[string]string, bool)
	ClearVotes(sessionID string)
	ActiveSessions() int
	SessionStats() []model.SessionStats
}

// sessionService owns the live session map. Sessions live in a go-cache store
// whose janitor sweeps out expired entries; each session carries its own mutex
// so mutations on different sessions never contend.
type sessionService struct {
	store     *cache.Cache
	story     IStoryService
	clientURL string
	logger    logger.ILogger
}

func NewSessionService(story IStoryService, clientURL string, ttl, cleanupInterval time.Duration, log logger.ILogger) ISessionService {
	store := cache.New(ttl, cleanupInterval)
	store.OnEvicted(func(sessionID string, _ interface{}) {
		log.Info("SessionService", "Cleaned up expired session", map[string]interface{}{
			"session_id": sessionID,
		})
	})

	return &sessionService{
		store:     store,
		story:     story,
		clientURL: clientURL,
		logger:    log,
	}
}

func (s *sessionService) Create() (*dto.SessionCreatedResponse, error) {
	var sessionID string
	for attempt := 0; ; attempt++ {
		id, err := gonanoid.New(sessionIDLength)
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		if _, exists := s.store.Get(id); !exists {
			sessionID = id
			break
		}
		if attempt >= 3 {
			return nil, fmt.Errorf("generate session id: exhausted retries")
		}
	}

	session := &model.Session{
		ID:               sessionID,
		CreatedAt:        time.Now(),
		ConnectedUsers:   make(map[string]struct{}),
		Votes:            make(map[string]string),
		CurrentPhase:     model.PhaseWaiting,
		CurrentVideoNode: s.story.StartNodeID(),
		StoryPath:        []string{s.story.StartNodeID()},
	}
	s.store.Set(sessionID, session, cache.DefaultExpiration)

	joinURL := fmt.Sprintf("%s/session/%s", s.clientURL, sessionID)
	qrCodeDataURL, err := qr.DataURL(joinURL)
	if err != nil {
		return nil, fmt.Errorf("render join qr code: %w", err)
	}

	s.logger.Info("SessionService", "Session created", map[string]interface{}{
		"session_id": sessionID,
	})

	return &dto.SessionCreatedResponse{
		SessionID:     sessionID,
		JoinURL:       joinURL,
		QRCodeDataURL: qrCodeDataURL,
	}, nil
}

func (s *sessionService) Exists(sessionID string) bool {
	_, found := s.store.Get(sessionID)
	return found
}

// Get returns a point-in-time copy of the session. No internal references
// escape the service.
func (s *sessionService) Get(sessionID string) (*model.Snapshot, bool) {
	session, ok := s.get(sessionID)
	if !ok {
		return nil, false
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	users := make([]string, 0, len(session.ConnectedUsers))
	for id := range session.ConnectedUsers {
		users = append(users, id)
	}
	path := make([]string, len(session.StoryPath))
	copy(path, session.StoryPath)

	return &model.Snapshot{
		ID:               session.ID,
		CreatedAt:        session.CreatedAt,
		ConnectedUsers:   users,
		VoteCount:        len(session.Votes),
		CurrentPhase:     session.CurrentPhase,
		CurrentVideoNode: session.CurrentVideoNode,
		StoryPath:        path,
	}, true
}

// AddParticipant is idempotent; re-adding a connected participant is a no-op.
func (s *sessionService) AddParticipant(sessionID, participantID string) bool {
	session, ok := s.get(sessionID)
	if !ok {
		return false
	}

	session.Mu.Lock()
	session.ConnectedUsers[participantID] = struct{}{}
	session.Mu.Unlock()
	return true
}

// RemoveParticipant also discards any ballot the participant had cast, so a
// later tally never counts someone who already left.
func (s *sessionService) RemoveParticipant(sessionID, participantID string) {
	session, ok := s.get(sessionID)
	if !ok {
		return
	}

	session.Mu.Lock()
	delete(session.ConnectedUsers, participantID)
	delete(session.Votes, participantID)
	session.Mu.Unlock()
}

func (s *sessionService) SetPhase(sessionID, phase string) bool {
	session, ok := s.get(sessionID)
	if !ok {
		return false
	}

	session.Mu.Lock()
	session.CurrentPhase = phase
	session.Mu.Unlock()
	return true
}

// AdvanceTo moves the session to the given node and appends it to the story
// path. The path only ever grows.
func (s *sessionService) AdvanceTo(sessionID, nodeID string) bool {
	session, ok := s.get(sessionID)
	if !ok {
		return false
	}

	session.Mu.Lock()
	session.CurrentVideoNode = nodeID
	session.StoryPath = append(session.StoryPath, nodeID)
	session.Mu.Unlock()
	return true
}

func (s *sessionService) ParticipantCount(sessionID string) int {
	session, ok := s.get(sessionID)
	if !ok {
		return 0
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()
	return len(session.ConnectedUsers)
}

// CastVote records the participant's choice, overwriting any earlier ballot in
// the same round. The phase guard and the write happen under one lock.
func (s *sessionService) CastVote(sessionID, participantID, optionID string) bool {
	session, ok := s.get(sessionID)
	if !ok {
		return false
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()
	if session.CurrentPhase != model.PhaseVoting {
		return false
	}
	session.Votes[participantID] = optionID
	return true
}

func (s *sessionService) VoteCount(sessionID string) int {
	session, ok := s.get(sessionID)
	if !ok {
		return 0
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()
	return len(session.Votes)
}

func (s *sessionService) VotesSnapshot(sessionID string) (map[string]string, bool) {
	session, ok := s.get(sessionID)
	if !ok {
		return nil, false
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()
	votes := make(map[string]string, len(session.Votes))
	for participantID, optionID := range session.Votes {
		votes[participantID] = optionID
	}
	return votes, true
}

func (s *sessionService) ClearVotes(sessionID string) {
	session, ok := s.get(sessionID)
	if !ok {
		return
	}

	session.Mu.Lock()
	session.Votes = make(map[string]string)
	session.Mu.Unlock()
}

func (s *sessionService) ActiveSessions() int {
	return s.store.ItemCount()
}

func (s *sessionService) SessionStats() []model.SessionStats {
	items := s.store.Items()
	stats := make([]model.SessionStats, 0, len(items))
	for _, item := range items {
		session, ok := item.Object.(*model.Session)
		if !ok {
			continue
		}
		session.Mu.Lock()
		stats = append(stats, model.SessionStats{
			SessionID:        session.ID,
			ParticipantCount: len(session.ConnectedUsers),
			Phase:            session.CurrentPhase,
		})
		session.Mu.Unlock()
	}
	return stats
}

func (s *sessionService) get(sessionID string) (*model.Session, bool) {
	item, found := s.store.Get(sessionID)
	if !found {
		return nil, false
	}
	session, ok := item.(*model.Session)
	return session, ok
}
