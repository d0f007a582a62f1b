package streamer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/envconfig"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// Default player settings.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 5000
	DefaultFFmpeg            = "ffmpeg"
	DefaultFFprobe           = "ffprobe"
	DefaultVideoChunkFrames  = 4
	DefaultAudioChunkFrames  = 1024
	DefaultVideoBufferChunks = 60
	DefaultAudioBufferChunks = 200
	DefaultRealtimeDelay     = 3 * time.Second
)

// Options configures one streaming run.
type Options struct {
	VideoPath string
	AudioPath string // optional

	Host string
	Port int

	// FPS overrides the container frame rate when > 0.
	FPS float64

	FFmpegPath  string
	FFprobePath string

	VideoChunkFrames  int
	AudioChunkFrames  int
	VideoBufferChunks int
	AudioBufferChunks int

	Mode encoder.Mode

	// StartDelay waits before sending so a receiver can be opened first.
	// A negative value selects the mode default.
	StartDelay time.Duration

	// Processor transforms each frame before it is encoded.
	Processor pipeline.FrameProcessor

	// Out receives the messages meant for the person running the stream.
	Out io.Writer
}

// DefaultOptions returns the player defaults.
func DefaultOptions() Options {
	return Options{
		Host:              DefaultHost,
		Port:              DefaultPort,
		FFmpegPath:        DefaultFFmpeg,
		FFprobePath:       DefaultFFprobe,
		VideoChunkFrames:  DefaultVideoChunkFrames,
		AudioChunkFrames:  DefaultAudioChunkFrames,
		VideoBufferChunks: DefaultVideoBufferChunks,
		AudioBufferChunks: DefaultAudioBufferChunks,
		Mode:              encoder.Chunked,
		StartDelay:        -1,
		Out:               io.Discard,
	}
}

// Validate checks the options that do not need the filesystem.
func (o Options) Validate() error {
	var errs []error
	if o.VideoPath == "" {
		errs = append(errs, errors.New("video path is required"))
	}
	if o.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if o.Port < 1 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", o.Port))
	}
	if o.FPS < 0 {
		errs = append(errs, fmt.Errorf("fps must not be negative, got %g", o.FPS))
	}
	for name, v := range map[string]int{
		"video chunk frames":  o.VideoChunkFrames,
		"audio chunk frames":  o.AudioChunkFrames,
		"video buffer chunks": o.VideoBufferChunks,
		"audio buffer chunks": o.AudioBufferChunks,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", name, v))
		}
	}
	if _, err := encoder.ParseMode(string(o.Mode)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Target is the UDP destination.
func (o Options) Target() envconfig.Target {
	return envconfig.Target{Host: o.Host, Port: o.Port}
}

// EffectiveDelay resolves a negative StartDelay to the mode default.
func (o Options) EffectiveDelay() time.Duration {
	if o.StartDelay >= 0 {
		return o.StartDelay
	}
	if o.Mode == encoder.Realtime {
		return DefaultRealtimeDelay
	}
	return 0
}
