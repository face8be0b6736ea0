package service

import (
	"os"
	"path/filepath"
	"testing"

	"video-voting-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoryService_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.StoryConfig
	}{
		{
			name: "missing start node id",
			cfg: model.StoryConfig{
				Nodes: []model.StoryNode{{ID: "a", Type: model.NodeTypeEnding}},
			},
		},
		{
			name: "start node not in graph",
			cfg: model.StoryConfig{
				StartNodeID: "missing",
				Nodes:       []model.StoryNode{{ID: "a", Type: model.NodeTypeEnding}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStoryService(writeStoryConfig(t, tt.cfg), nopLogger{})
			assert.Error(t, err)
		})
	}
}

func TestNewStoryService_UnparsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story-config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStoryService(path, nopLogger{})
	assert.Error(t, err)

	_, err = NewStoryService(filepath.Join(t.TempDir(), "nope.json"), nopLogger{})
	assert.Error(t, err)
}

func TestStoryService_ValidationIssues(t *testing.T) {
	cfg := model.StoryConfig{
		StartNodeID: "intro",
		Nodes: []model.StoryNode{
			{
				ID:   "intro",
				Type: model.NodeTypeDecision,
				Options: []model.VotingOption{
					{ID: "A", NextNodeID: "nowhere"}, // dangling target
				},
			},
			{ID: "empty_decision", Type: model.NodeTypeDecision}, // no options
			{
				ID:   "weird_ending",
				Type: model.NodeTypeEnding,
				Options: []model.VotingOption{
					{ID: "B", NextNodeID: "intro"},
				},
			},
		},
	}

	story := loadStory(t, cfg)
	issues := story.ValidationIssues()
	require.Len(t, issues, 3)
	assert.Contains(t, issues[0], "non-existent node 'nowhere'")
	assert.Contains(t, issues, "decision node 'empty_decision' has no options")
	assert.Contains(t, issues, "ending node 'weird_ending' should not have options")
}

func TestStoryService_Queries(t *testing.T) {
	story := loadStory(t, twoBranchStory())

	assert.Equal(t, "intro", story.StartNodeID())

	node, ok := story.GetNode("intro")
	require.True(t, ok)
	assert.Equal(t, "The Crossroads", node.Title)

	_, ok = story.GetNode("ghost")
	assert.False(t, ok)

	opts := story.GetOptions("intro")
	require.Len(t, opts, 2)
	assert.Equal(t, "A", opts[0].ID)

	// Endings and absent nodes yield no options.
	assert.Empty(t, story.GetOptions("branch_a"))
	assert.Empty(t, story.GetOptions("ghost"))

	assert.True(t, story.IsEnding("branch_a"))
	assert.False(t, story.IsEnding("intro"))
	// Absence is not an ending.
	assert.False(t, story.IsEnding("ghost"))

	next, ok := story.ResolveNext("intro", "B")
	require.True(t, ok)
	assert.Equal(t, "branch_b", next)

	_, ok = story.ResolveNext("intro", "C")
	assert.False(t, ok)
	_, ok = story.ResolveNext("ghost", "A")
	assert.False(t, ok)

	url, ok := story.VideoURL("intro")
	require.True(t, ok)
	assert.Equal(t, "/videos/intro.mp4", url)
	_, ok = story.VideoURL("ghost")
	assert.False(t, ok)
}

func TestStoryService_StatsCountsOrphans(t *testing.T) {
	cfg := twoBranchStory()
	cfg.Nodes = append(cfg.Nodes,
		model.StoryNode{ID: "island", Type: model.NodeTypeEnding, VideoFile: "island.mp4"},
	)

	story := loadStory(t, cfg)
	stats := story.Stats()
	assert.Equal(t, 4, stats.TotalNodes)
	assert.Equal(t, 1, stats.DecisionNodes)
	assert.Equal(t, 3, stats.EndingNodes)
	assert.Equal(t, 1, stats.OrphanedNodes)
}
