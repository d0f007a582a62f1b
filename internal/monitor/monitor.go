// Package monitor pushes stream lifecycle and progress events to an
// external dashboard.
package monitor

import (
	"context"
	"time"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// Event names emitted by reporters.
const (
	EventStarted  = "stream_started"
	EventProgress = "stream_progress"
	EventFinished = "stream_finished"
)

// StartInfo describes a stream that is about to send.
type StartInfo struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Video     string `json:"video"`
	Audio     string `json:"audio,omitempty"`
	Target    string `json:"target"`
}

// FinishInfo describes how a stream ended.
type FinishInfo struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Stats     pipeline.Snapshot `json:"stats"`
}

// Reporter receives stream events. Implementations must not block the
// stream for long and must be safe for concurrent use.
type Reporter interface {
	Started(info StartInfo)
	Progress(sessionID string, snap pipeline.Snapshot)
	Finished(info FinishInfo)
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Started(StartInfo)                  {}
func (Noop) Progress(string, pipeline.Snapshot) {}
func (Noop) Finished(FinishInfo)                {}
func (Noop) Close() error                       { return nil }

// Watch calls r.Progress with a fresh snapshot every interval until ctx
// ends. A non-positive interval disables it.
func Watch(ctx context.Context, r Reporter, sessionID string, stats *pipeline.Stats, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := stats.Snapshot()
			logger.Debug("Stream progress.", "frames", snap.Frames, "video_bytes", snap.VideoBytes, "audio_bytes", snap.AudioBytes)
			r.Progress(sessionID, snap)
		}
	}
}
