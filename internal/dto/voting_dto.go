package dto

import "video-voting-be/internal/model"

// Inbound command names accepted over the realtime connection.
const (
	CmdCreateSession = "createSession"
	CmdJoinSession   = "joinSession"
	CmdStartVoting   = "startVoting"
	CmdVote          = "vote"
)

// Outbound event names pushed to clients.
const (
	EventSessionCreated  = "sessionCreated"
	EventSessionJoined   = "sessionJoined"
	EventUserCountUpdate = "userCountUpdate"
	EventVotingStarted   = "votingStarted"
	EventVoteRecorded    = "voteRecorded"
	EventVotingResults   = "votingResults"
	EventPlayVideo       = "playVideo"
	EventStoryComplete   = "storyComplete"
	EventError           = "error"
)

type JoinSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type VoteRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	OptionID  string `json:"optionId" validate:"required"`
}

type SessionCreatedResponse struct {
	SessionID     string `json:"sessionId"`
	JoinURL       string `json:"joinUrl"`
	QRCodeDataURL string `json:"qrCodeDataUrl"`
}

type SessionJoinedResponse struct {
	SessionID        string `json:"sessionId"`
	CurrentPhase     string `json:"currentPhase"`
	CurrentVideoNode string `json:"currentVideoNode"`
}

type UserCountUpdateResponse struct {
	Count int `json:"count"`
}

type VotingStartedResponse struct {
	Options   []model.VotingOption `json:"options"`
	NodeTitle string               `json:"nodeTitle,omitempty"`
}

type VoteRecordedResponse struct {
	VoteCount  int `json:"voteCount"`
	TotalUsers int `json:"totalUsers"`
}

type OptionVotes struct {
	OptionID string `json:"optionId"`
	Votes    int    `json:"votes"`
}

type VotingResultsResponse struct {
	WinningOption model.VotingOption `json:"winningOption"`
	VoteBreakdown []OptionVotes      `json:"voteBreakdown"`
}

type PlayVideoResponse struct {
	VideoURL string `json:"videoUrl"`
	NodeID   string `json:"nodeId"`
}

type StoryCompleteResponse struct {
	EndingNodeID string   `json:"endingNodeId"`
	StoryPath    []string `json:"storyPath"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type StatsResponse struct {
	ActiveSessions   int                  `json:"activeSessions"`
	ConnectedClients int                  `json:"connectedClients"`
	Sessions         []model.SessionStats `json:"sessions"`
	StoryStats       model.StoryStats     `json:"storyStats"`
}
