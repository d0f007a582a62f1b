package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
)

const unblockRetry = 20 * time.Millisecond

// Drain writes every chunk from q to w until q is closed. onWrite, when
// set, is told the size of each chunk after it is written.
func Drain(ctx context.Context, w io.Writer, q *Queue, onWrite func(n int)) error {
	for {
		chunk, ok, err := q.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("writing %d bytes: %w", len(chunk), err)
		}
		if onWrite != nil {
			onWrite(len(chunk))
		}
	}
}

// WriteFIFO opens the named pipe at path for writing, which blocks until the
// encoder opens the read side, then drains q into it. Closing the pipe on
// return signals end of stream to the encoder. If ctx ends while still
// waiting for the reader, the open is released with UnblockFIFO; if it ends
// mid-write, the pipe is closed under the writer.
func WriteFIFO(ctx context.Context, path string, q *Queue, onWrite func(n int)) error {
	logger := ctxlog.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	opened := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-opened:
			return
		}
		// The open may not have reached the kernel yet, so keep poking
		// until it returns.
		tick := time.NewTicker(unblockRetry)
		defer tick.Stop()
		for {
			UnblockFIFO(path)
			select {
			case <-opened:
				return
			case <-tick.C:
			}
		}
	}()

	logger.Debug("Waiting for encoder to open pipe.", "path", path)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	close(opened)
	if err != nil {
		return fmt.Errorf("opening pipe %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		f.Close()
		return err
	}
	logger.Debug("Pipe opened.", "path", path)

	stopClose := context.AfterFunc(ctx, func() { f.Close() })
	err = Drain(ctx, f, q, onWrite)
	if !stopClose() {
		return ctx.Err()
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("pipe %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing pipe %s: %w", path, err)
	}
	logger.Debug("Pipe writer finished.", "path", path)
	return nil
}
