package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
)

// FrameSource yields fixed-size raw video frames.
type FrameSource interface {
	// ReadFrame fills buf with one frame or returns io.EOF.
	ReadFrame(buf []byte) error
	FrameSize() int
}

// AudioSource yields PCM sample frames.
type AudioSource interface {
	// ReadFrames returns up to n sample frames, or io.EOF when exhausted.
	ReadFrames(n int) ([]byte, error)
}

// ProduceVideo reads frames from src, runs each through proc, and puts
// chunks of chunkFrames frames on q. A trailing short chunk is flushed at
// end of input. q is closed on return whatever the outcome.
func ProduceVideo(ctx context.Context, src FrameSource, q *Queue, chunkFrames int, proc FrameProcessor, stats *Stats) error {
	defer q.Close()
	logger := ctxlog.FromContext(ctx)
	if chunkFrames < 1 {
		return fmt.Errorf("video chunk frames must be at least 1, got %d", chunkFrames)
	}
	if proc == nil {
		proc = Identity
	}
	if stats == nil {
		stats = &Stats{}
	}

	size := src.FrameSize()
	frame := make([]byte, size)
	chunk := make([]byte, 0, size*chunkFrames)
	inChunk := 0
	total := 0

	for {
		if err := src.ReadFrame(frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading frame %d: %w", total, err)
		}
		out, err := applyProcessor(proc, frame, total)
		if err != nil {
			return err
		}
		chunk = append(chunk, out...)
		inChunk++
		total++
		stats.AddFrames(1)

		if inChunk >= chunkFrames {
			if err := q.Put(ctx, chunk); err != nil {
				return err
			}
			chunk = make([]byte, 0, size*chunkFrames)
			inChunk = 0
		}
	}

	if inChunk > 0 {
		if err := q.Put(ctx, chunk); err != nil {
			return err
		}
	}
	logger.Debug("Video producer finished.", "frames", total)
	return nil
}

// ProduceAudio reads chunkFrames sample frames at a time from src and puts
// each read on q until the source is exhausted. q is closed on return.
func ProduceAudio(ctx context.Context, src AudioSource, q *Queue, chunkFrames int) error {
	defer q.Close()
	logger := ctxlog.FromContext(ctx)
	if chunkFrames < 1 {
		return fmt.Errorf("audio chunk frames must be at least 1, got %d", chunkFrames)
	}

	chunks := 0
	for {
		data, err := src.ReadFrames(chunkFrames)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading audio: %w", err)
		}
		if len(data) == 0 {
			break
		}
		if err := q.Put(ctx, data); err != nil {
			return err
		}
		chunks++
	}
	logger.Debug("Audio producer finished.", "chunks", chunks)
	return nil
}
