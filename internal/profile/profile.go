package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/streamer"
)

// DefaultStream is the stream block used when no name is given and the
// profile defines more than one.
const DefaultStream = "default"

// ErrStreamNotFound is returned when a named stream block does not exist.
var ErrStreamNotFound = errors.New("stream profile not found")

// Stream is a `stream "NAME" {}` block. Nil fields were not set.
type Stream struct {
	Name              string   `hcl:"name,label"`
	Video             *string  `hcl:"video,optional"`
	Audio             *string  `hcl:"audio,optional"`
	Host              *string  `hcl:"host,optional"`
	Port              *int     `hcl:"port,optional"`
	Mode              *string  `hcl:"mode,optional"`
	FPS               *float64 `hcl:"fps,optional"`
	FFmpeg            *string  `hcl:"ffmpeg,optional"`
	FFprobe           *string  `hcl:"ffprobe,optional"`
	VideoChunkFrames  *int     `hcl:"video_chunk_frames,optional"`
	AudioChunkFrames  *int     `hcl:"audio_chunk_frames,optional"`
	VideoBufferChunks *int     `hcl:"video_buffer_chunks,optional"`
	AudioBufferChunks *int     `hcl:"audio_buffer_chunks,optional"`
	StartDelay        *string  `hcl:"start_delay,optional"`
}

// Bundle is the `bundle {}` block.
type Bundle struct {
	Packages     []string `hcl:"packages,optional"`
	Requirements *string  `hcl:"requirements,optional"`
	OutputDir    *string  `hcl:"output_dir,optional"`
	CacheDir     *string  `hcl:"cache_dir,optional"`
	UseSudo      *bool    `hcl:"use_sudo,optional"`
}

// Profile is everything decoded from a set of HCL files.
type Profile struct {
	Streams map[string]*Stream
	Bundle  *Bundle

	// Files lists the files the profile was read from, in load order.
	Files []string
}

// Stream picks a stream block. An empty name selects DefaultStream, or the
// only block when there is exactly one; nil means nothing to apply.
func (p *Profile) Stream(name string) (*Stream, error) {
	if p == nil {
		if name != "" {
			return nil, fmt.Errorf("%w: %q (no profile loaded)", ErrStreamNotFound, name)
		}
		return nil, nil
	}
	if name != "" {
		s, ok := p.Streams[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrStreamNotFound, name)
		}
		return s, nil
	}
	if s, ok := p.Streams[DefaultStream]; ok {
		return s, nil
	}
	if len(p.Streams) == 1 {
		for _, s := range p.Streams {
			return s, nil
		}
	}
	if len(p.Streams) > 1 {
		return nil, fmt.Errorf("profile defines %d streams and none is named %q; pick one by name", len(p.Streams), DefaultStream)
	}
	return nil, nil
}

// Apply copies every attribute set in the block onto opts.
func (s *Stream) Apply(opts *streamer.Options) error {
	if s == nil {
		return nil
	}
	setString(&opts.VideoPath, s.Video)
	setString(&opts.AudioPath, s.Audio)
	setString(&opts.Host, s.Host)
	setString(&opts.FFmpegPath, s.FFmpeg)
	setString(&opts.FFprobePath, s.FFprobe)
	setInt(&opts.Port, s.Port)
	setInt(&opts.VideoChunkFrames, s.VideoChunkFrames)
	setInt(&opts.AudioChunkFrames, s.AudioChunkFrames)
	setInt(&opts.VideoBufferChunks, s.VideoBufferChunks)
	setInt(&opts.AudioBufferChunks, s.AudioBufferChunks)
	if s.FPS != nil {
		opts.FPS = *s.FPS
	}
	if s.Mode != nil {
		mode, err := encoder.ParseMode(*s.Mode)
		if err != nil {
			return fmt.Errorf("stream %q: %w", s.Name, err)
		}
		opts.Mode = mode
	}
	if s.StartDelay != nil {
		d, err := time.ParseDuration(*s.StartDelay)
		if err != nil {
			return fmt.Errorf("stream %q: start_delay: %w", s.Name, err)
		}
		opts.StartDelay = d
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
