package service

import (
	"encoding/json"
	"fmt"
	"os"

	"video-voting-be/internal/model"
	"video-voting-be/internal/pkg/logger"
)

type IStoryService interface {
	StartNodeID() string
	GetNode(nodeID string) (*model.StoryNode, bool)
	GetOptions(nodeID string) []model.VotingOption
	IsEnding(nodeID string) bool
	ResolveNext(nodeID, optionID string) (string, bool)
	VideoURL(nodeID string) (string, bool)
	ValidationIssues() []string
	Stats() model.StoryStats
}

type storyService struct {
	config  model.StoryConfig
	nodeMap map[string]*model.StoryNode
	issues  []string
	stats   model.StoryStats
	logger  logger.ILogger
}

// NewStoryService loads and indexes the story configuration. An unreadable or
// unparsable file, or a start node that does not exist, is a fatal error; every
// other graph defect is collected as a validation issue and logged.
func NewStoryService(configPath string, log logger.ILogger) (IStoryService, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read story config %s: %w", configPath, err)
	}

	var cfg model.StoryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse story config %s: %w", configPath, err)
	}

	nodeMap := make(map[string]*model.StoryNode, len(cfg.Nodes))
	for i := range cfg.Nodes {
		nodeMap[cfg.Nodes[i].ID] = &cfg.Nodes[i]
	}

	if cfg.StartNodeID == "" {
		return nil, fmt.Errorf("story config %s: startNodeId is not set", configPath)
	}
	if _, ok := nodeMap[cfg.StartNodeID]; !ok {
		return nil, fmt.Errorf("story config %s: start node '%s' not found", configPath, cfg.StartNodeID)
	}

	s := &storyService{
		config:  cfg,
		nodeMap: nodeMap,
		logger:  log,
	}
	s.issues = s.validate()
	s.stats = s.computeStats()

	log.Info("StoryService", "Story graph loaded", map[string]interface{}{
		"path":        configPath,
		"total_nodes": len(cfg.Nodes),
		"start_node":  cfg.StartNodeID,
	})
	if len(s.issues) > 0 {
		log.Warn("StoryService", "Story graph validation issues", map[string]interface{}{
			"issues": s.issues,
		})
	}

	return s, nil
}

func (s *storyService) StartNodeID() string {
	return s.config.StartNodeID
}

func (s *storyService) GetNode(nodeID string) (*model.StoryNode, bool) {
	node, ok := s.nodeMap[nodeID]
	return node, ok
}

// GetOptions returns the voting options of a decision node. Absent nodes and
// ending nodes yield an empty list.
func (s *storyService) GetOptions(nodeID string) []model.VotingOption {
	node, ok := s.nodeMap[nodeID]
	if !ok || node.Type == model.NodeTypeEnding {
		return nil
	}
	return node.Options
}

// IsEnding reports whether the node terminates a story path. An absent node is
// not an ending.
func (s *storyService) IsEnding(nodeID string) bool {
	node, ok := s.nodeMap[nodeID]
	return ok && node.Type == model.NodeTypeEnding
}

func (s *storyService) ResolveNext(nodeID, optionID string) (string, bool) {
	node, ok := s.nodeMap[nodeID]
	if !ok {
		return "", false
	}
	for _, opt := range node.Options {
		if opt.ID == optionID {
			return opt.NextNodeID, true
		}
	}
	return "", false
}

func (s *storyService) VideoURL(nodeID string) (string, bool) {
	node, ok := s.nodeMap[nodeID]
	if !ok {
		return "", false
	}
	return "/videos/" + node.VideoFile, true
}

func (s *storyService) ValidationIssues() []string {
	return s.issues
}

func (s *storyService) Stats() model.StoryStats {
	return s.stats
}

func (s *storyService) validate() []string {
	var issues []string

	for _, node := range s.config.Nodes {
		if node.Type == model.NodeTypeDecision && len(node.Options) == 0 {
			issues = append(issues, fmt.Sprintf("decision node '%s' has no options", node.ID))
		}
		if node.Type == model.NodeTypeEnding && len(node.Options) > 0 {
			issues = append(issues, fmt.Sprintf("ending node '%s' should not have options", node.ID))
		}
		for _, opt := range node.Options {
			if _, ok := s.nodeMap[opt.NextNodeID]; !ok {
				issues = append(issues, fmt.Sprintf("option '%s' in node '%s' points to non-existent node '%s'", opt.ID, node.ID, opt.NextNodeID))
			}
		}
	}

	return issues
}

func (s *storyService) computeStats() model.StoryStats {
	// BFS from the start node to find everything reachable.
	reachable := make(map[string]struct{})
	queue := []string{s.config.StartNodeID}

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		if _, seen := reachable[nodeID]; seen {
			continue
		}
		reachable[nodeID] = struct{}{}

		if node, ok := s.nodeMap[nodeID]; ok {
			for _, opt := range node.Options {
				queue = append(queue, opt.NextNodeID)
			}
		}
	}

	stats := model.StoryStats{TotalNodes: len(s.config.Nodes)}
	for _, node := range s.config.Nodes {
		switch node.Type {
		case model.NodeTypeDecision:
			stats.DecisionNodes++
		case model.NodeTypeEnding:
			stats.EndingNodes++
		}
		if _, ok := reachable[node.ID]; !ok {
			stats.OrphanedNodes++
		}
	}

	return stats
}
