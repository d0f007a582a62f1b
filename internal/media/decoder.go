package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
)

// FrameReader yields fixed-size raw frames.
type FrameReader interface {
	// ReadFrame fills buf with exactly one frame or returns io.EOF.
	ReadFrame(buf []byte) error
	FrameSize() int
}

// RawFrames reads bgr24 frames from any stream. A trailing partial frame is
// treated as end of stream.
type RawFrames struct {
	r    io.Reader
	size int
}

// NewRawFrames wraps r, reading frames of size bytes.
func NewRawFrames(r io.Reader, size int) *RawFrames {
	return &RawFrames{r: r, size: size}
}

func (f *RawFrames) FrameSize() int { return f.size }

func (f *RawFrames) ReadFrame(buf []byte) error {
	if len(buf) != f.size {
		return fmt.Errorf("frame buffer is %d bytes, want %d", len(buf), f.size)
	}
	_, err := io.ReadFull(f.r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// Decoder runs ffmpeg to turn a video file into raw bgr24 frames on its stdout.
type Decoder struct {
	*RawFrames
	cmd    *exec.Cmd
	logger *slog.Logger
	logs   sync.WaitGroup
	once   sync.Once
	err    error
}

// OpenDecoder starts the decoding process for path.
func OpenDecoder(ctx context.Context, ffmpegPath, path string, info VideoInfo) (*Decoder, error) {
	logger := ctxlog.FromContext(ctx).With("source", "decoder")
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-vf", fmt.Sprintf("scale=%d:%d", info.Width, info.Height),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("ffmpeg executable not found: %s", ffmpegPath)
		}
		return nil, fmt.Errorf("starting decoder: %w", err)
	}
	d := &Decoder{
		RawFrames: NewRawFrames(bufio.NewReaderSize(stdout, info.FrameSize()), info.FrameSize()),
		cmd:       cmd,
		logger:    logger,
	}
	d.logs.Add(1)
	go func() {
		defer d.logs.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				logger.Warn(line)
			}
		}
	}()
	logger.Debug("Decoder started.", "path", path, "pid", cmd.Process.Pid)
	return d, nil
}

// Close stops the decoder and reaps the process. It is safe to call more
// than once. An early stop by the caller is not reported as an error; a
// decoder that failed on its own is logged, since the frames before the
// failure were already sent.
func (d *Decoder) Close() error {
	d.once.Do(func() {
		if d.cmd.ProcessState == nil && d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		d.logs.Wait()
		err := d.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			// -1 means a signal, which is our own kill or ctx's.
			if code := exitErr.ExitCode(); code != -1 {
				d.logger.Warn("Decoder exited with error.", "exit_code", code)
			}
		default:
			d.err = err
		}
	})
	return d.err
}
