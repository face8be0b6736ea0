package service

import (
	"context"
	"time"
)

// WaitPolicy decides how long the orchestrator lingers between announcing
// results, playing a video, and inspecting the new node. It is a strategy so
// the fixed timers can later be swapped for a real end-of-playback signal from
// the playback client without touching the phase machine.
type WaitPolicy interface {
	ResultsPause(ctx context.Context)
	PlaybackWait(ctx context.Context, nodeID string)
}

// FixedDelayPolicy waits for configured durations. PlaybackWait ignores the
// node id; it is there for policies that look up real video durations.
type FixedDelayPolicy struct {
	ResultsDelay  time.Duration
	PlaybackDelay time.Duration
}

func (p FixedDelayPolicy) ResultsPause(ctx context.Context) {
	sleepCtx(ctx, p.ResultsDelay)
}

func (p FixedDelayPolicy) PlaybackWait(ctx context.Context, _ string) {
	sleepCtx(ctx, p.PlaybackDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
