package service

import (
	"math/rand"
	"sync"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/model"
	"video-voting-be/internal/pkg/logger"
)

// VoteResult is the outcome of one tallied round.
type VoteResult struct {
	WinningOption model.VotingOption
	VoteBreakdown []dto.OptionVotes
	TotalVotes    int
}

// VotingStats summarizes round participation.
type VotingStats struct {
	TotalUsers        int     `json:"totalUsers"`
	TotalVotes        int     `json:"totalVotes"`
	ParticipationRate float64 `json:"participationRate"`
}

type IVotingService interface {
	CastVote(sessionID, participantID, optionID string) bool
	VoteCount(sessionID string) int
	HasVoted(sessionID, participantID string) bool
	Tally(sessionID string, options []model.VotingOption) *VoteResult
	ResetForNextRound(sessionID string)
	Stats(sessionID string) VotingStats
}

// votingService implements the vote protocol on top of the session registry.
// The random source used for tie-breaking is injected so tests can seed it.
type votingService struct {
	sessions ISessionService
	rngMu    sync.Mutex
	rng      *rand.Rand
	logger   logger.ILogger
}

func NewVotingService(sessions ISessionService, rng *rand.Rand, log logger.ILogger) IVotingService {
	return &votingService{
		sessions: sessions,
		rng:      rng,
		logger:   log,
	}
}

// CastVote records a ballot. Only accepted while the session is in the voting
// phase; a participant voting twice keeps only their latest choice.
func (s *votingService) CastVote(sessionID, participantID, optionID string) bool {
	if !s.sessions.CastVote(sessionID, participantID, optionID) {
		s.logger.Warn("VotingService", "Vote rejected", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    participantID,
		})
		return false
	}

	s.logger.Info("VotingService", "Vote recorded", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    participantID,
		"option_id":  optionID,
	})
	return true
}

func (s *votingService) VoteCount(sessionID string) int {
	return s.sessions.VoteCount(sessionID)
}

func (s *votingService) HasVoted(sessionID, participantID string) bool {
	votes, ok := s.sessions.VotesSnapshot(sessionID)
	if !ok {
		return false
	}
	_, voted := votes[participantID]
	return voted
}

// Tally counts ballots per option, in the order the options were given, and
// picks the option with the strictly greatest count. Ties are resolved
// uniformly at random among the tied options.
func (s *votingService) Tally(sessionID string, options []model.VotingOption) *VoteResult {
	votes, ok := s.sessions.VotesSnapshot(sessionID)
	if !ok || len(options) == 0 {
		return nil
	}

	voteCounts := make(map[string]int, len(options))
	for _, opt := range options {
		voteCounts[opt.ID] = 0
	}
	for _, optionID := range votes {
		if _, known := voteCounts[optionID]; known {
			voteCounts[optionID]++
		}
	}

	maxVotes := 0
	for _, opt := range options {
		if voteCounts[opt.ID] > maxVotes {
			maxVotes = voteCounts[opt.ID]
		}
	}

	var tied []model.VotingOption
	for _, opt := range options {
		if voteCounts[opt.ID] == maxVotes {
			tied = append(tied, opt)
		}
	}

	winningOption := tied[0]
	if len(tied) > 1 {
		s.rngMu.Lock()
		winningOption = tied[s.rng.Intn(len(tied))]
		s.rngMu.Unlock()
		s.logger.Info("VotingService", "Tie detected, winner chosen at random", map[string]interface{}{
			"session_id": sessionID,
			"winner":     winningOption.ID,
			"tied_count": len(tied),
		})
	}

	voteBreakdown := make([]dto.OptionVotes, 0, len(options))
	for _, opt := range options {
		voteBreakdown = append(voteBreakdown, dto.OptionVotes{
			OptionID: opt.ID,
			Votes:    voteCounts[opt.ID],
		})
	}

	return &VoteResult{
		WinningOption: winningOption,
		VoteBreakdown: voteBreakdown,
		TotalVotes:    len(votes),
	}
}

// ResetForNextRound clears ballots only; participants and phase are untouched.
func (s *votingService) ResetForNextRound(sessionID string) {
	s.sessions.ClearVotes(sessionID)
}

func (s *votingService) Stats(sessionID string) VotingStats {
	totalUsers := s.sessions.ParticipantCount(sessionID)
	totalVotes := s.sessions.VoteCount(sessionID)

	stats := VotingStats{TotalUsers: totalUsers, TotalVotes: totalVotes}
	if totalUsers > 0 {
		stats.ParticipationRate = float64(totalVotes) / float64(totalUsers) * 100
	}
	return stats
}
