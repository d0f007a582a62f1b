package streamer

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/media"
)

// memVideo serves a fixed list of frames.
type memVideo struct {
	frames [][]byte
	size   int
	pos    int
	closed bool
}

func (m *memVideo) FrameSize() int { return m.size }

func (m *memVideo) ReadFrame(buf []byte) error {
	if m.pos >= len(m.frames) {
		return io.EOF
	}
	copy(buf, m.frames[m.pos])
	m.pos++
	return nil
}

func (m *memVideo) Close() error {
	m.closed = true
	return nil
}

// fakeEncoder consumes its inputs the way ffmpeg would and records them.
type fakeEncoder struct {
	opts   encoder.Options
	stdin  io.WriteCloser
	done   chan struct{}
	err    error
	mu     sync.Mutex
	video  []byte
	audio  []byte
	killed bool
	// kill, when set, is closed by Kill to stop a stalled encoder.
	kill     chan struct{}
	killOnce sync.Once
}

func (e *fakeEncoder) Stdin() io.WriteCloser { return e.stdin }
func (e *fakeEncoder) Done() <-chan struct{} { return e.done }
func (e *fakeEncoder) Wait() error           { <-e.done; return e.err }
func (e *fakeEncoder) Kill() {
	e.mu.Lock()
	e.killed = true
	e.mu.Unlock()
	if e.kill != nil {
		e.killOnce.Do(func() { close(e.kill) })
	}
}

func (e *fakeEncoder) wasKilled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.killed
}

// fakeBackend wires memVideo and fakeEncoder together.
type fakeBackend struct {
	info     media.VideoInfo
	frames   []string
	probeErr error

	// encoderErr makes the encoder exit with this error right away.
	encoderErr error
	// readLimit makes a realtime encoder stop reading after this many bytes.
	readLimit int
	// stall makes the encoder open its video input and never read it. Only
	// Kill stops it.
	stall bool

	video *memVideo
	enc   *fakeEncoder
}

func (b *fakeBackend) Probe(ctx context.Context, path string) (media.VideoInfo, error) {
	return b.info, b.probeErr
}

func (b *fakeBackend) OpenVideo(ctx context.Context, path string, info media.VideoInfo) (VideoSource, error) {
	v := &memVideo{size: info.FrameSize()}
	for _, f := range b.frames {
		v.frames = append(v.frames, []byte(f))
	}
	b.video = v
	return v, nil
}

func (b *fakeBackend) StartEncoder(ctx context.Context, opts encoder.Options, withStdin bool) (Encoder, error) {
	e := &fakeEncoder{opts: opts, done: make(chan struct{})}
	b.enc = e

	if b.encoderErr != nil {
		e.err = b.encoderErr
		close(e.done)
		return e, nil
	}

	if b.stall {
		e.kill = make(chan struct{})
		if withStdin {
			pr, pw := io.Pipe()
			e.stdin = pw
			go func() {
				<-e.kill
				pr.CloseWithError(io.ErrClosedPipe)
				close(e.done)
			}()
			return e, nil
		}
		go func() {
			defer close(e.done)
			f, err := os.Open(opts.VideoSource)
			if err != nil {
				return
			}
			<-e.kill
			f.Close()
		}()
		return e, nil
	}

	if withStdin {
		pr, pw := io.Pipe()
		e.stdin = pw
		go func() {
			defer close(e.done)
			var r io.Reader = pr
			if b.readLimit > 0 {
				r = io.LimitReader(pr, int64(b.readLimit))
			}
			data, _ := io.ReadAll(r)
			pr.CloseWithError(io.ErrClosedPipe)
			e.mu.Lock()
			e.video = data
			e.mu.Unlock()
		}()
		return e, nil
	}

	var wg sync.WaitGroup
	read := func(path string, dst *[]byte) {
		defer wg.Done()
		f, err := os.Open(path)
		if err != nil {
			e.err = err
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		e.mu.Lock()
		*dst = data
		e.mu.Unlock()
	}
	wg.Add(1)
	go read(opts.VideoSource, &e.video)
	if opts.Audio != nil {
		wg.Add(1)
		go read(opts.Audio.Source, &e.audio)
	}
	go func() {
		wg.Wait()
		close(e.done)
	}()
	return e, nil
}

var errEncoderCrashed = errors.New("exit status 1")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// bigFrames returns n frames of size bytes each.
func bigFrames(n, size int) []string {
	frames := make([]string, n)
	for i := range frames {
		frames[i] = strings.Repeat("x", size)
	}
	return frames
}

// writeWAV writes a mono WAV file with the given sample width.
func writeWAV(t *testing.T, bits int, samples []byte) string {
	t.Helper()
	le := binary.LittleEndian
	var b []byte
	b = append(b, "RIFF"...)
	b = le.AppendUint32(b, uint32(36+len(samples)))
	b = append(b, "WAVEfmt "...)
	b = le.AppendUint32(b, 16)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint32(b, 8000)
	b = le.AppendUint32(b, uint32(8000*bits/8))
	b = le.AppendUint16(b, uint16(bits/8))
	b = le.AppendUint16(b, uint16(bits))
	b = append(b, "data"...)
	b = le.AppendUint32(b, uint32(len(samples)))
	b = append(b, samples...)
	return writeFile(t, "voice_sample.wav", b)
}
