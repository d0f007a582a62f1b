package app

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/media"
	"github.com/specialistvlad/burstcast/internal/streamer"
	"github.com/specialistvlad/burstcast/internal/testutil"
)

type memVideo struct {
	frames [][]byte
	size   int
}

func (m *memVideo) FrameSize() int { return m.size }

func (m *memVideo) ReadFrame(buf []byte) error {
	if len(m.frames) == 0 {
		return io.EOF
	}
	copy(buf, m.frames[0])
	m.frames = m.frames[1:]
	return nil
}

func (m *memVideo) Close() error { return nil }

// fakeEncoder drains whatever inputs it was given.
type fakeEncoder struct {
	stdin io.WriteCloser
	done  chan struct{}

	mu    sync.Mutex
	bytes int
	opts  encoder.Options
}

func (e *fakeEncoder) Stdin() io.WriteCloser { return e.stdin }
func (e *fakeEncoder) Done() <-chan struct{} { return e.done }
func (e *fakeEncoder) Wait() error           { <-e.done; return nil }
func (e *fakeEncoder) Kill()                 {}

func (e *fakeEncoder) add(n int) {
	e.mu.Lock()
	e.bytes += n
	e.mu.Unlock()
}

type fakeBackend struct {
	info     media.VideoInfo
	frames   int
	probeErr error

	mu  sync.Mutex
	enc *fakeEncoder
}

func newFakeBackend(frames int) *fakeBackend {
	return &fakeBackend{info: media.VideoInfo{Width: 2, Height: 1, FPS: 30}, frames: frames}
}

func (b *fakeBackend) Probe(context.Context, string) (media.VideoInfo, error) {
	return b.info, b.probeErr
}

func (b *fakeBackend) OpenVideo(_ context.Context, _ string, info media.VideoInfo) (streamer.VideoSource, error) {
	v := &memVideo{size: info.FrameSize()}
	for i := 0; i < b.frames; i++ {
		f := make([]byte, info.FrameSize())
		for j := range f {
			f[j] = byte(i)
		}
		v.frames = append(v.frames, f)
	}
	return v, nil
}

func (b *fakeBackend) StartEncoder(_ context.Context, opts encoder.Options, withStdin bool) (streamer.Encoder, error) {
	e := &fakeEncoder{done: make(chan struct{}), opts: opts}
	b.mu.Lock()
	b.enc = e
	b.mu.Unlock()

	var wg sync.WaitGroup
	drain := func(r io.Reader, closer io.Closer) {
		defer wg.Done()
		defer closer.Close()
		n, _ := io.Copy(io.Discard, r)
		e.add(int(n))
	}
	if withStdin {
		pr, pw := io.Pipe()
		e.stdin = pw
		wg.Add(1)
		go drain(pr, pr)
	} else {
		sources := []string{opts.VideoSource}
		if opts.Audio != nil {
			sources = append(sources, opts.Audio.Source)
		}
		for _, src := range sources {
			wg.Add(1)
			go func(path string) {
				// Opening a FIFO blocks until the writer arrives.
				f, err := os.Open(path)
				if err != nil {
					wg.Done()
					return
				}
				drain(f, f)
			}(src)
		}
	}
	go func() {
		wg.Wait()
		close(e.done)
	}()
	return e, nil
}

func (b *fakeBackend) lastEncoder() *fakeEncoder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enc
}

// writeWAV writes a 16-bit mono WAV with n zero samples.
func writeWAV(t *testing.T, path string, n int) {
	t.Helper()
	le := binary.LittleEndian
	samples := make([]byte, n*2)
	var b []byte
	b = append(b, "RIFF"...)
	b = le.AppendUint32(b, uint32(36+len(samples)))
	b = append(b, "WAVEfmt "...)
	b = le.AppendUint32(b, 16)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint32(b, 8000)
	b = le.AppendUint32(b, 16000)
	b = le.AppendUint16(b, 2)
	b = le.AppendUint16(b, 16)
	b = append(b, "data"...)
	b = le.AppendUint32(b, uint32(len(samples)))
	b = append(b, samples...)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

// setupAppTest builds an App writing into a buffer. The returned buffer
// holds both log lines and user messages.
func setupAppTest(t *testing.T, cfg Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	a := NewApp(out, &cfg, opts...)

	t.Cleanup(func() {
		if os.Getenv("BURSTCAST_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, out
}

func streamConfig(t *testing.T, dir string) Config {
	t.Helper()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("not really a video"), 0o644))

	opts := streamer.DefaultOptions()
	opts.VideoPath = video
	opts.Mode = encoder.Realtime
	opts.StartDelay = 0
	return Config{
		Command:   CommandStream,
		HistoryDB: filepath.Join(dir, "history.db"),
		Stream:    opts,
	}
}
