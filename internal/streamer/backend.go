package streamer

import (
	"context"
	"io"

	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/media"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// VideoSource is an open video yielding raw frames.
type VideoSource interface {
	pipeline.FrameSource
	io.Closer
}

// Encoder is a running encoder process.
type Encoder interface {
	Stdin() io.WriteCloser
	Done() <-chan struct{}
	Wait() error
	Kill()
}

// Backend opens inputs and starts encoders. FFmpeg is the production
// implementation; tests substitute in-memory ones.
type Backend interface {
	Probe(ctx context.Context, path string) (media.VideoInfo, error)
	OpenVideo(ctx context.Context, path string, info media.VideoInfo) (VideoSource, error)
	StartEncoder(ctx context.Context, opts encoder.Options, withStdin bool) (Encoder, error)
}

// FFmpeg decodes with ffmpeg/ffprobe and encodes with ffmpeg.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

func (f FFmpeg) Probe(ctx context.Context, path string) (media.VideoInfo, error) {
	return media.Probe(ctx, f.FFprobePath, path)
}

func (f FFmpeg) OpenVideo(ctx context.Context, path string, info media.VideoInfo) (VideoSource, error) {
	dec, err := media.OpenDecoder(ctx, f.FFmpegPath, path, info)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

func (f FFmpeg) StartEncoder(ctx context.Context, opts encoder.Options, withStdin bool) (Encoder, error) {
	proc, err := encoder.Start(ctx, f.FFmpegPath, opts, withStdin)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
