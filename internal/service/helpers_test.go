package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"video-voting-be/internal/model"

	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func writeStoryConfig(t *testing.T, cfg model.StoryConfig) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "story-config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// twoBranchStory is the canonical test graph: a decision node with two options
// leading to two endings.
func twoBranchStory() model.StoryConfig {
	return model.StoryConfig{
		StartNodeID: "intro",
		Nodes: []model.StoryNode{
			{
				ID:        "intro",
				VideoFile: "intro.mp4",
				Type:      model.NodeTypeDecision,
				Title:     "The Crossroads",
				Options: []model.VotingOption{
					{ID: "A", Text: "Go left", NextNodeID: "branch_a"},
					{ID: "B", Text: "Go right", NextNodeID: "branch_b"},
				},
			},
			{ID: "branch_a", VideoFile: "a.mp4", Type: model.NodeTypeEnding},
			{ID: "branch_b", VideoFile: "b.mp4", Type: model.NodeTypeEnding},
		},
	}
}

func loadStory(t *testing.T, cfg model.StoryConfig) IStoryService {
	t.Helper()
	story, err := NewStoryService(writeStoryConfig(t, cfg), nopLogger{})
	require.NoError(t, err)
	return story
}
