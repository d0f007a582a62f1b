package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
)

// ErrNotFound is returned when the ffmpeg binary cannot be executed.
var ErrNotFound = errors.New("ffmpeg executable not found")

// Process is a running encoder.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	logs  sync.WaitGroup
	done  chan struct{}
	err   error
}

// Start launches ffmpegPath with the arguments for opts. When withStdin is
// set the encoder's standard input is exposed through Stdin. Every stderr
// line is forwarded to the context logger.
func Start(ctx context.Context, ffmpegPath string, opts Options, withStdin bool) (*Process, error) {
	logger := ctxlog.FromContext(ctx).With("source", "ffmpeg")
	args := Args(opts)
	// Not bound to ctx: the encoder stops when its inputs reach EOF.
	cmd := exec.Command(ffmpegPath, args...)

	p := &Process{cmd: cmd, done: make(chan struct{})}
	if withStdin {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("encoder stdin: %w", err)
		}
		p.stdin = stdin
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stderr: %w", err)
	}

	logger.Debug("Starting encoder.", "cmd", ffmpegPath+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ffmpegPath)
		}
		return nil, fmt.Errorf("starting encoder: %w", err)
	}
	logger.Info("Encoder started.", "pid", cmd.Process.Pid, "output", opts.OutputURL)

	p.logs.Add(1)
	go func() {
		defer p.logs.Done()
		forward(stderr, func(line string) { logger.Info(line) })
	}()
	go func() {
		// stderr must be drained before Wait closes the pipe.
		p.logs.Wait()
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// forward emits each non-empty line read from r until EOF.
func forward(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r\n "); line != "" {
			emit(line)
		}
	}
}

// Stdin is the encoder's standard input, or nil when not requested.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the encoder exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Kill terminates the encoder without waiting for it.
func (p *Process) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
