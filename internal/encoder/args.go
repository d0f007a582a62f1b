// Package encoder builds and supervises the ffmpeg process that turns raw
// frames and PCM samples into an MPEG-TS stream over UDP.
package encoder

import (
	"fmt"
	"strconv"

	"github.com/specialistvlad/burstcast/internal/media"
)

// Mode selects how media reaches the encoder.
type Mode string

const (
	// Chunked feeds video and audio through named pipes in buffered chunks.
	Chunked Mode = "chunked"
	// Realtime paces frames into stdin and lets ffmpeg read audio itself.
	Realtime Mode = "realtime"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Chunked, Realtime:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be %q or %q", s, Chunked, Realtime)
	}
}

// AudioInput describes the audio track. In chunked mode Source is a FIFO of
// raw s16le samples; in realtime mode it is the WAV file path.
type AudioInput struct {
	Source     string
	SampleRate int
	Channels   int
}

// Options holds everything needed to render the ffmpeg command line.
type Options struct {
	Mode        Mode
	VideoSource string // FIFO path or "pipe:0"
	Width       int
	Height      int
	FPS         float64
	Audio       *AudioInput
	OutputURL   string
}

// Args renders the ffmpeg arguments, excluding the executable.
func Args(o Options) []string {
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", o.Width, o.Height),
		"-framerate", formatFPS(o.FPS),
		"-i", o.VideoSource,
	}
	if o.Audio != nil {
		if o.Mode == Chunked {
			args = append(args,
				"-f", "s16le",
				"-ar", strconv.Itoa(o.Audio.SampleRate),
				"-ac", strconv.Itoa(o.Audio.Channels),
			)
		}
		args = append(args, "-i", o.Audio.Source)
	}

	args = append(args, "-map", "0:v:0")
	if o.Audio != nil {
		args = append(args, "-map", "1:a:0")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
	)
	if o.Mode == Realtime {
		k := strconv.Itoa(media.KeyframeInterval(o.FPS))
		args = append(args,
			"-g", k,
			"-keyint_min", k,
			"-force_key_frames", "expr:lt(n,3)",
			"-vsync", "cfr",
		)
	}
	args = append(args, "-pix_fmt", "yuv420p")

	if o.Audio != nil {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
		if o.Mode == Chunked {
			args = append(args, "-shortest")
		}
	}

	args = append(args, "-f", "mpegts")
	if o.Mode == Realtime {
		args = append(args, "-mpegts_flags", "resend_headers+initial_discontinuity")
	}
	return append(args, o.OutputURL)
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
