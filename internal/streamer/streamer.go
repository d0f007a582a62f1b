// Package streamer runs one stream: it opens the inputs, starts the encoder,
// wires the pipeline stages between them and reports what was sent.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/fsutil"
	"github.com/specialistvlad/burstcast/internal/media"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// ErrAudioNotFound is returned when the configured audio file is missing.
var ErrAudioNotFound = errors.New("audio file not found")

// encoderGrace bounds how long a finished pipeline waits for the encoder
// before killing it.
const encoderGrace = 10 * time.Second

// Result summarises a finished run.
type Result struct {
	SessionID  uuid.UUID
	Mode       encoder.Mode
	Width      int
	Height     int
	FPS        float64
	Frames     int64
	VideoBytes int64
	AudioBytes int64
	Elapsed    time.Duration
}

// MediaDuration is the playback length of the frames sent.
func (r Result) MediaDuration() time.Duration {
	if r.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(r.Frames) / r.FPS * float64(time.Second))
}

// Streamer runs a single stream. It is not reusable.
type Streamer struct {
	opts    Options
	backend Backend
	stats   *pipeline.Stats
	id      uuid.UUID
	grace   time.Duration
}

// New prepares a stream. A nil backend uses ffmpeg from opts.
func New(opts Options, backend Backend) (*Streamer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream options: %w", err)
	}
	if backend == nil {
		backend = FFmpeg{FFmpegPath: opts.FFmpegPath, FFprobePath: opts.FFprobePath}
	}
	if opts.Processor == nil {
		opts.Processor = pipeline.Identity
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("creating session id: %w", err)
	}
	return &Streamer{opts: opts, backend: backend, stats: &pipeline.Stats{}, id: id, grace: encoderGrace}, nil
}

// ID identifies this run.
func (s *Streamer) ID() uuid.UUID { return s.id }

// Options returns the effective options.
func (s *Streamer) Options() Options { return s.opts }

// Stats returns live counters for the run.
func (s *Streamer) Stats() *pipeline.Stats { return s.stats }

// Run streams until the inputs are exhausted, the encoder stops, or ctx
// ends. Cancellation stops the inputs, lets the encoder flush, and returns
// ctx's error along with the partial result.
func (s *Streamer) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "session", s.id.String(), "mode", string(s.opts.Mode))
	started := time.Now()
	s.stats.Start(started)

	result := Result{SessionID: s.id, Mode: s.opts.Mode}

	if err := s.checkInputs(ctx); err != nil {
		return result, err
	}

	info, err := s.backend.Probe(ctx, s.opts.VideoPath)
	if err != nil {
		return result, err
	}
	fps := media.ResolveFPS(s.opts.FPS, info.FPS)
	result.Width, result.Height, result.FPS = info.Width, info.Height, fps
	logger.Info("Video opened.", "path", s.opts.VideoPath, "width", info.Width, "height", info.Height, "fps", fps)

	switch s.opts.Mode {
	case encoder.Realtime:
		err = s.runRealtime(ctx, info, fps)
	default:
		err = s.runChunked(ctx, info, fps)
	}

	snap := s.stats.Snapshot()
	result.Frames = snap.Frames
	result.VideoBytes = snap.VideoBytes
	result.AudioBytes = snap.AudioBytes
	result.Elapsed = time.Since(started)

	if err != nil {
		logger.Debug("Stream ended with error.", "error", err, "frames", result.Frames)
		return result, err
	}
	logger.Info("Stream finished.", "frames", result.Frames, "media_duration", result.MediaDuration().String(), "elapsed", result.Elapsed.String())
	return result, nil
}

// checkInputs verifies the files exist and look like what they claim to be.
func (s *Streamer) checkInputs(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if mime, err := media.Sniff(s.opts.VideoPath); err != nil {
		return fmt.Errorf("%w %s: %v", media.ErrCannotOpenVideo, s.opts.VideoPath, err)
	} else if !media.IsVideo(mime) {
		logger.Warn("Video file does not look like a video container.", "path", s.opts.VideoPath, "mime", mime)
	}

	if s.opts.AudioPath == "" {
		return nil
	}
	if !fsutil.Exists(s.opts.AudioPath) {
		return fmt.Errorf("%w: %s", ErrAudioNotFound, s.opts.AudioPath)
	}
	mime, err := media.Sniff(s.opts.AudioPath)
	if err != nil {
		return err
	}
	if !media.IsWAV(mime) {
		logger.Warn("Audio file does not look like WAV.", "path", s.opts.AudioPath, "mime", mime)
	}
	return nil
}

// waitDelay sleeps for the start delay after telling the user where to
// point the receiver.
func (s *Streamer) waitDelay(ctx context.Context) error {
	delay := s.opts.EffectiveDelay()
	if delay <= 0 {
		return nil
	}
	fmt.Fprintf(s.opts.Out, "Open the network stream %s in VLC; sending starts in %s.\n", s.opts.Target().ReceiverURL(), delay)
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
