package streamer

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/media"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// runRealtime writes processed frames to the encoder's stdin at the video's
// own frame rate. The encoder reads the audio file directly.
func (s *Streamer) runRealtime(ctx context.Context, info media.VideoInfo, fps float64) error {
	logger := ctxlog.FromContext(ctx)

	if err := s.waitDelay(ctx); err != nil {
		return err
	}

	video, err := s.backend.OpenVideo(ctx, s.opts.VideoPath, info)
	if err != nil {
		return fmt.Errorf("%w %s: %v", media.ErrCannotOpenVideo, s.opts.VideoPath, err)
	}
	defer video.Close()

	encOpts := encoder.Options{
		Mode:        encoder.Realtime,
		VideoSource: "pipe:0",
		Width:       info.Width,
		Height:      info.Height,
		FPS:         fps,
		OutputURL:   s.opts.Target().StreamURL(),
	}
	if s.opts.AudioPath != "" {
		encOpts.Audio = &encoder.AudioInput{Source: s.opts.AudioPath}
	}

	enc, err := s.backend.StartEncoder(ctx, encOpts, true)
	if err != nil {
		return err
	}

	// Closing stdin releases a write blocked on an encoder that stopped
	// reading, and tells a healthy one to flush.
	stopClose := context.AfterFunc(ctx, func() { _ = enc.Stdin().Close() })
	defer stopClose()

	pacer := pipeline.NewPacer(fps)
	sent, sendErr := pipeline.SendFrames(withStage(ctx, "sender"), video, enc.Stdin(), s.opts.Processor, pacer, s.stats)
	if errors.Is(sendErr, pipeline.ErrEncoderClosed) {
		logger.Warn("Encoder pipe closed.")
		sendErr = nil
	}

	_ = enc.Stdin().Close()
	encErr := s.waitEncoder(ctx, enc, sendErr != nil || ctx.Err() != nil)

	fmt.Fprintf(s.opts.Out, "Sent %d frames (%.1fs).\n", sent, float64(sent)/fps)

	if err := ctx.Err(); err != nil {
		return err
	}
	if sendErr != nil {
		return sendErr
	}
	if encErr != nil {
		return fmt.Errorf("encoder failed: %w", encErr)
	}
	return nil
}
