package model

import (
	"sync"
	"time"
)

const (
	PhaseWaiting  = "waiting"
	PhaseVoting   = "voting"
	PhasePlaying  = "playing"
	PhaseComplete = "complete"
)

// Session is one live voting room. All field access goes through the session
// service, which locks the embedded mutex; callers outside the service only
// ever see Snapshot copies.
type Session struct {
	Mu sync.Mutex

	ID               string
	CreatedAt        time.Time
	ConnectedUsers   map[string]struct{}
	Votes            map[string]string // participant id -> option id
	CurrentPhase     string
	CurrentVideoNode string
	StoryPath        []string
}

// Snapshot is a read-only copy of a session's state at one instant.
type Snapshot struct {
	ID               string    `json:"sessionId"`
	CreatedAt        time.Time `json:"createdAt"`
	ConnectedUsers   []string  `json:"connectedUsers"`
	VoteCount        int       `json:"voteCount"`
	CurrentPhase     string    `json:"currentPhase"`
	CurrentVideoNode string    `json:"currentVideoNode"`
	StoryPath        []string  `json:"storyPath"`
}

// SessionStats is the per-session row of the monitoring surface.
type SessionStats struct {
	SessionID        string `json:"sessionId"`
	ParticipantCount int    `json:"participantCount"`
	Phase            string `json:"phase"`
}
