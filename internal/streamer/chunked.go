package streamer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/media"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// runChunked feeds the encoder through two named pipes. Each track has a
// producer goroutine filling a bounded queue and a writer goroutine
// draining it into the pipe.
func (s *Streamer) runChunked(ctx context.Context, info media.VideoInfo, fps float64) error {
	logger := ctxlog.FromContext(ctx)

	var wav *media.WAV
	if s.opts.AudioPath != "" {
		w, err := media.OpenWAV(s.opts.AudioPath)
		if err != nil {
			return fmt.Errorf("opening audio: %w", err)
		}
		defer w.Close()
		if err := w.RequirePCM16(); err != nil {
			return err
		}
		wav = w
		logger.Info("Audio opened.", "path", s.opts.AudioPath, "sample_rate", w.SampleRate(), "channels", w.Channels())
	}

	if err := s.waitDelay(ctx); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "burstcast-")
	if err != nil {
		return fmt.Errorf("creating pipe directory: %w", err)
	}
	defer os.RemoveAll(dir)

	videoFIFO := filepath.Join(dir, "video_fifo")
	audioFIFO := filepath.Join(dir, "audio_fifo")
	if err := pipeline.MakeFIFO(videoFIFO); err != nil {
		return err
	}
	encOpts := encoder.Options{
		Mode:        encoder.Chunked,
		VideoSource: videoFIFO,
		Width:       info.Width,
		Height:      info.Height,
		FPS:         fps,
		OutputURL:   s.opts.Target().StreamURL(),
	}
	if wav != nil {
		if err := pipeline.MakeFIFO(audioFIFO); err != nil {
			return err
		}
		encOpts.Audio = &encoder.AudioInput{Source: audioFIFO, SampleRate: wav.SampleRate(), Channels: wav.Channels()}
	}

	video, err := s.backend.OpenVideo(ctx, s.opts.VideoPath, info)
	if err != nil {
		return fmt.Errorf("%w %s: %v", media.ErrCannotOpenVideo, s.opts.VideoPath, err)
	}
	defer video.Close()

	enc, err := s.backend.StartEncoder(ctx, encOpts, false)
	if err != nil {
		return err
	}

	stageCtx, cancelStages := context.WithCancel(ctx)
	defer cancelStages()
	g, gctx := errgroup.WithContext(stageCtx)

	videoQ := pipeline.NewQueue(s.opts.VideoBufferChunks)
	g.Go(func() error {
		return pipeline.WriteFIFO(withStage(gctx, "video-writer"), videoFIFO, videoQ, s.stats.AddVideo)
	})
	g.Go(func() error {
		return pipeline.ProduceVideo(withStage(gctx, "video-reader"), video, videoQ, s.opts.VideoChunkFrames, s.opts.Processor, s.stats)
	})
	if wav != nil {
		audioQ := pipeline.NewQueue(s.opts.AudioBufferChunks)
		g.Go(func() error {
			return pipeline.WriteFIFO(withStage(gctx, "audio-writer"), audioFIFO, audioQ, s.stats.AddAudio)
		})
		g.Go(func() error {
			return pipeline.ProduceAudio(withStage(gctx, "audio-reader"), wav, audioQ, s.opts.AudioChunkFrames)
		})
	}

	stagesDone := make(chan error, 1)
	go func() { stagesDone <- g.Wait() }()

	select {
	case stageErr := <-stagesDone:
		encErr := s.waitEncoder(ctx, enc, stageErr != nil)
		return chunkedOutcome(ctx, stageErr, encErr)

	case <-ctx.Done():
		// Writers close their pipes on cancel so the encoder can flush. One
		// stuck on a full pipe is released by killing the encoder.
		logger.Info("Stopping stream.")
		t := time.NewTimer(s.grace)
		defer t.Stop()
		select {
		case <-stagesDone:
			_ = s.waitEncoder(ctx, enc, true)
		case <-t.C:
			logger.Warn("Pipeline did not stop in time, killing encoder.", "grace", s.grace.String())
			enc.Kill()
			<-stagesDone
			_ = enc.Wait()
		}
		return ctx.Err()

	case <-enc.Done():
		// The encoder stopped reading before the inputs ran out.
		cancelStages()
		stageErr := <-stagesDone
		if encErr := enc.Wait(); encErr != nil {
			return fmt.Errorf("encoder exited early: %w", encErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("Encoder finished before all input was sent.", "pending_error", stageErr)
		return nil
	}
}

// waitEncoder waits for the encoder after the pipes are closed. When the
// stages failed the encoder may be stuck opening a pipe nobody writes, so
// it gets a bounded grace period.
func (s *Streamer) waitEncoder(ctx context.Context, enc Encoder, stagesFailed bool) error {
	if !stagesFailed {
		return enc.Wait()
	}
	t := time.NewTimer(s.grace)
	defer t.Stop()
	select {
	case <-enc.Done():
	case <-t.C:
		ctxlog.FromContext(ctx).Warn("Encoder did not stop in time, killing it.", "grace", s.grace.String())
		enc.Kill()
	}
	return enc.Wait()
}

func chunkedOutcome(ctx context.Context, stageErr, encErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if stageErr != nil {
		// A clean encoder exit that closed our pipe is the -shortest case.
		if encErr == nil && errors.Is(stageErr, syscall.EPIPE) {
			return nil
		}
		return stageErr
	}
	if encErr != nil {
		return fmt.Errorf("encoder failed: %w", encErr)
	}
	return nil
}

func withStage(ctx context.Context, stage string) context.Context {
	ctx, _ = ctxlog.With(ctx, "stage", stage)
	return ctx
}
