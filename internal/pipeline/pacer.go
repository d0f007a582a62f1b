package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"
)

// ErrEncoderClosed reports that the encoder stopped reading its input.
var ErrEncoderClosed = errors.New("encoder pipe closed")

// Pacer releases one frame per period on a fixed schedule. A late frame
// does not shift the schedule, so the stream catches up after a stall.
type Pacer struct {
	period time.Duration
	next   time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPacer paces at fps frames per second. A non-positive fps means 30.
func NewPacer(fps float64) *Pacer {
	if fps <= 0 {
		fps = 30
	}
	return &Pacer{
		period: time.Duration(float64(time.Second) / fps),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Period is the spacing between frames.
func (p *Pacer) Period() time.Duration { return p.period }

// Wait blocks until the next frame slot. The first call returns at once.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}
	if d := p.next.Sub(now); d > 0 {
		if err := p.sleep(ctx, d); err != nil {
			return err
		}
	}
	p.next = p.next.Add(p.period)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendFrames reads frames from src, runs them through proc, waits for the
// pacer and writes each frame to w. It returns the number of frames written.
// A broken pipe ends the loop with ErrEncoderClosed.
func SendFrames(ctx context.Context, src FrameSource, w io.Writer, proc FrameProcessor, pacer *Pacer, stats *Stats) (int, error) {
	if proc == nil {
		proc = Identity
	}
	if stats == nil {
		stats = &Stats{}
	}
	frame := make([]byte, src.FrameSize())
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := src.ReadFrame(frame); err != nil {
			if errors.Is(err, io.EOF) {
				return sent, nil
			}
			return sent, fmt.Errorf("reading frame %d: %w", sent, err)
		}
		out, err := applyProcessor(proc, frame, sent)
		if err != nil {
			return sent, err
		}
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				return sent, err
			}
		}
		if _, err := w.Write(out); err != nil {
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
				return sent, ErrEncoderClosed
			}
			return sent, fmt.Errorf("writing frame %d: %w", sent, err)
		}
		sent++
		stats.AddFrames(1)
		stats.AddVideo(len(out))
	}
}
