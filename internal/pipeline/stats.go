package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats counts what has been handed to the encoder. All methods are safe
// for concurrent use.
type Stats struct {
	started     atomic.Int64 // unix nanos
	frames      atomic.Int64
	videoBytes  atomic.Int64
	videoChunks atomic.Int64
	audioBytes  atomic.Int64
	audioChunks atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Frames      int64         `json:"frames"`
	VideoBytes  int64         `json:"video_bytes"`
	VideoChunks int64         `json:"video_chunks"`
	AudioBytes  int64         `json:"audio_bytes"`
	AudioChunks int64         `json:"audio_chunks"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Start records the stream start time.
func (s *Stats) Start(now time.Time) { s.started.Store(now.UnixNano()) }

func (s *Stats) AddFrames(n int) { s.frames.Add(int64(n)) }

// AddVideo records one video chunk written to the encoder.
func (s *Stats) AddVideo(bytes int) {
	s.videoBytes.Add(int64(bytes))
	s.videoChunks.Add(1)
}

// AddAudio records one audio chunk written to the encoder.
func (s *Stats) AddAudio(bytes int) {
	s.audioBytes.Add(int64(bytes))
	s.audioChunks.Add(1)
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Frames:      s.frames.Load(),
		VideoBytes:  s.videoBytes.Load(),
		VideoChunks: s.videoChunks.Load(),
		AudioBytes:  s.audioBytes.Load(),
		AudioChunks: s.audioChunks.Load(),
	}
	if started := s.started.Load(); started != 0 {
		snap.Elapsed = time.Since(time.Unix(0, started))
	}
	return snap
}
