package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/model"
	"video-voting-be/internal/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher collects published envelopes instead of fanning them out.
type capturePublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		var env events.Envelope
		if err := json.Unmarshal(m.Payload, &env); err != nil {
			return err
		}
		p.envelopes = append(p.envelopes, env)
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, env := range p.envelopes {
		if env.Event == event {
			n++
		}
	}
	return n
}

// lastPayload decodes the most recent envelope for the given event.
func (p *capturePublisher) lastPayload(t *testing.T, event string, v interface{}) bool {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.envelopes) - 1; i >= 0; i-- {
		if p.envelopes[i].Event == event {
			require.NoError(t, json.Unmarshal(p.envelopes[i].Payload, v))
			return true
		}
	}
	return false
}

type orchestratorFixture struct {
	orchestrator IOrchestratorService
	sessions     ISessionService
	publisher    *capturePublisher
}

func newOrchestratorFixture(t *testing.T, cfg model.StoryConfig) *orchestratorFixture {
	t.Helper()
	story := loadStory(t, cfg)
	sessions := NewSessionService(story, "http://localhost:5173", 2*time.Hour, 10*time.Minute, nopLogger{})
	voting := NewVotingService(sessions, rand.New(rand.NewSource(7)), nopLogger{})
	publisher := &capturePublisher{}

	orchestrator := NewOrchestratorService(
		context.Background(),
		sessions,
		voting,
		story,
		publisher,
		FixedDelayPolicy{}, // zero delays, rounds settle immediately
		nopLogger{},
	)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		sessions:     sessions,
		publisher:    publisher,
	}
}

func (f *orchestratorFixture) phase(t *testing.T, sessionID string) string {
	t.Helper()
	snap, ok := f.sessions.Get(sessionID)
	require.True(t, ok)
	return snap.CurrentPhase
}

func TestOrchestrator_FullRoundToEnding(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID

	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)
	_, err = f.orchestrator.JoinSession(id, "p2")
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.StartVoting("host"))
	assert.Equal(t, model.PhaseVoting, f.phase(t, id))

	var started dto.VotingStartedResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventVotingStarted, &started))
	require.Len(t, started.Options, 2)
	assert.Equal(t, "The Crossroads", started.NodeTitle)

	res, err := f.orchestrator.Vote(id, "p1", "A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
	assert.Equal(t, 2, res.TotalUsers)

	// Second ballot completes the round; resolution runs asynchronously.
	res, err = f.orchestrator.Vote(id, "p2", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, res.VoteCount)

	require.Eventually(t, func() bool {
		return f.phase(t, id) == model.PhaseComplete
	}, time.Second, 5*time.Millisecond)

	var results dto.VotingResultsResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventVotingResults, &results))
	assert.Equal(t, "A", results.WinningOption.ID)
	require.Len(t, results.VoteBreakdown, 2)
	assert.Equal(t, dto.OptionVotes{OptionID: "A", Votes: 2}, results.VoteBreakdown[0])
	assert.Equal(t, dto.OptionVotes{OptionID: "B", Votes: 0}, results.VoteBreakdown[1])

	var play dto.PlayVideoResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventPlayVideo, &play))
	assert.Equal(t, "branch_a", play.NodeID)
	assert.Equal(t, "/videos/a.mp4", play.VideoURL)

	var complete dto.StoryCompleteResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventStoryComplete, &complete))
	assert.Equal(t, "branch_a", complete.EndingNodeID)
	assert.Equal(t, []string{"intro", "branch_a"}, complete.StoryPath)
}

func TestOrchestrator_IntermediateNodeReturnsToWaiting(t *testing.T) {
	cfg := model.StoryConfig{
		StartNodeID: "intro",
		Nodes: []model.StoryNode{
			{
				ID: "intro", VideoFile: "intro.mp4", Type: model.NodeTypeDecision,
				Options: []model.VotingOption{
					{ID: "A", Text: "Onward", NextNodeID: "middle"},
					{ID: "B", Text: "Elsewhere", NextNodeID: "middle"},
				},
			},
			{
				ID: "middle", VideoFile: "middle.mp4", Type: model.NodeTypeDecision,
				Options: []model.VotingOption{
					{ID: "C", Text: "Finish", NextNodeID: "fin"},
				},
			},
			{ID: "fin", VideoFile: "fin.mp4", Type: model.NodeTypeEnding},
		},
	}
	f := newOrchestratorFixture(t, cfg)

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID
	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.StartVoting("host"))
	_, err = f.orchestrator.Vote(id, "p1", "A")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.phase(t, id) == model.PhaseWaiting
	}, time.Second, 5*time.Millisecond)

	snap, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, "middle", snap.CurrentVideoNode)
	assert.Equal(t, []string{"intro", "middle"}, snap.StoryPath)
	assert.Zero(t, f.publisher.count(dto.EventStoryComplete))

	// Second round runs off the fresh ballot box.
	require.NoError(t, f.orchestrator.StartVoting("host"))
	_, err = f.orchestrator.Vote(id, "p1", "C")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return f.phase(t, id) == model.PhaseComplete
	}, time.Second, 5*time.Millisecond)
}

func TestOrchestrator_StartVotingWithoutParticipants(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)

	err = f.orchestrator.StartVoting("host")
	assert.ErrorIs(t, err, ErrNoParticipants)
	assert.Equal(t, model.PhaseWaiting, f.phase(t, created.SessionID))
	assert.Zero(t, f.publisher.count(dto.EventVotingStarted))
}

func TestOrchestrator_StartVotingOnEndingShortCircuits(t *testing.T) {
	cfg := model.StoryConfig{
		StartNodeID: "the_end",
		Nodes: []model.StoryNode{
			{ID: "the_end", VideoFile: "end.mp4", Type: model.NodeTypeEnding},
		},
	}
	f := newOrchestratorFixture(t, cfg)

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	_, err = f.orchestrator.JoinSession(created.SessionID, "p1")
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.StartVoting("host"))
	assert.Equal(t, model.PhaseComplete, f.phase(t, created.SessionID))
	assert.Zero(t, f.publisher.count(dto.EventVotingStarted))

	var complete dto.StoryCompleteResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventStoryComplete, &complete))
	assert.Equal(t, "the_end", complete.EndingNodeID)
	assert.Equal(t, []string{"the_end"}, complete.StoryPath)
}

func TestOrchestrator_StartVotingGuards(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	assert.ErrorIs(t, f.orchestrator.StartVoting("stranger"), ErrNotInSession)

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID
	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.StartVoting("host"))
	// A second trigger while the round is open is refused.
	assert.ErrorIs(t, f.orchestrator.StartVoting("host"), ErrWrongPhase)
	assert.Equal(t, model.PhaseVoting, f.phase(t, id))
}

func TestOrchestrator_JoinUnknownSession(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())
	_, err := f.orchestrator.JoinSession("ghost", "p1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOrchestrator_VoteRejections(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	_, err := f.orchestrator.Vote("ghost", "p1", "A")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID
	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)

	// Voting has not been opened.
	_, err = f.orchestrator.Vote(id, "p1", "A")
	assert.ErrorIs(t, err, ErrVoteRejected)

	require.NoError(t, f.orchestrator.StartVoting("host"))

	// Unknown option ids never enter the ballot box.
	_, err = f.orchestrator.Vote(id, "p1", "Z")
	assert.ErrorIs(t, err, ErrVoteRejected)
	assert.Equal(t, model.PhaseVoting, f.phase(t, id))
}

func TestOrchestrator_DisconnectCompletesRound(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID
	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)
	_, err = f.orchestrator.JoinSession(id, "p2")
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.StartVoting("host"))
	_, err = f.orchestrator.Vote(id, "p1", "B")
	require.NoError(t, err)

	// The only outstanding voter leaves, so the round resolves with p1's ballot.
	f.orchestrator.Disconnect("p2")

	require.Eventually(t, func() bool {
		return f.phase(t, id) == model.PhaseComplete
	}, time.Second, 5*time.Millisecond)

	var results dto.VotingResultsResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventVotingResults, &results))
	assert.Equal(t, "B", results.WinningOption.ID)
}

func TestOrchestrator_DisconnectBroadcastsCount(t *testing.T) {
	f := newOrchestratorFixture(t, twoBranchStory())

	created, err := f.orchestrator.CreateSession("host")
	require.NoError(t, err)
	id := created.SessionID
	_, err = f.orchestrator.JoinSession(id, "p1")
	require.NoError(t, err)
	_, err = f.orchestrator.JoinSession(id, "p2")
	require.NoError(t, err)

	f.orchestrator.AnnounceUserCount(id)
	var count dto.UserCountUpdateResponse
	require.True(t, f.publisher.lastPayload(t, dto.EventUserCountUpdate, &count))
	assert.Equal(t, 2, count.Count)

	f.orchestrator.Disconnect("p1")
	require.True(t, f.publisher.lastPayload(t, dto.EventUserCountUpdate, &count))
	assert.Equal(t, 1, count.Count)

	_, ok := f.orchestrator.SessionForConn("p1")
	assert.False(t, ok)
}
