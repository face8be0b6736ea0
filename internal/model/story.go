package model

const (
	NodeTypeDecision = "decision"
	NodeTypeEnding   = "ending"
)

// VotingOption is one selectable branch out of a decision node.
type VotingOption struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	NextNodeID string `json:"nextNodeId"`
}

// StoryNode is a single point in the branching narrative. Nodes are immutable
// once the story config is loaded.
type StoryNode struct {
	ID        string         `json:"id"`
	VideoFile string         `json:"videoFile"`
	Type      string         `json:"type"` // "decision" | "ending"
	Title     string         `json:"title,omitempty"`
	Options   []VotingOption `json:"options,omitempty"`
}

// StoryConfig mirrors the story configuration file on disk.
type StoryConfig struct {
	Nodes       []StoryNode `json:"nodes"`
	StartNodeID string      `json:"startNodeId"`
}

// StoryStats summarizes graph health for the monitoring endpoint.
type StoryStats struct {
	TotalNodes    int `json:"totalNodes"`
	DecisionNodes int `json:"decisionNodes"`
	EndingNodes   int `json:"endingNodes"`
	OrphanedNodes int `json:"orphanedNodes"`
}
