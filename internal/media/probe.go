package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCannotOpenVideo is returned when the video file cannot be probed.
var ErrCannotOpenVideo = errors.New("cannot open video file")

// DefaultFPS is used when neither the caller nor the container supplies a rate.
const DefaultFPS = 30.0

// VideoInfo describes the first video stream of a file.
type VideoInfo struct {
	Width  int
	Height int
	FPS    float64 // 0 when the container does not declare a rate
}

// FrameSize is the byte length of one bgr24 frame.
func (v VideoInfo) FrameSize() int {
	return v.Width * v.Height * 3
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe asks ffprobe for the dimensions and frame rate of the first video
// stream in path.
func Probe(ctx context.Context, ffprobePath, path string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return VideoInfo{}, fmt.Errorf("ffprobe executable not found: %s", ffprobePath)
		}
		return VideoInfo{}, fmt.Errorf("%w %s: %v: %s", ErrCannotOpenVideo, path, err, strings.TrimSpace(stderr.String()))
	}
	return ParseProbe(out, path)
}

// ParseProbe decodes ffprobe's JSON output.
func ParseProbe(data []byte, path string) (VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return VideoInfo{}, fmt.Errorf("%w %s: decoding probe output: %v", ErrCannotOpenVideo, path, err)
	}
	if len(out.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("%w %s: no video stream", ErrCannotOpenVideo, path)
	}
	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("%w %s: invalid dimensions %dx%d", ErrCannotOpenVideo, path, s.Width, s.Height)
	}
	fps := ParseRate(s.AvgFrameRate)
	if fps == 0 {
		fps = ParseRate(s.RFrameRate)
	}
	return VideoInfo{Width: s.Width, Height: s.Height, FPS: fps}, nil
}

// ParseRate parses an ffmpeg rational such as "30000/1001" or a plain
// number. Anything unusable yields 0.
func ParseRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return positive(n)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return positive(n / d)
}

func positive(f float64) float64 {
	if f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return 0
}

// ResolveFPS picks the user override, then the probed rate, then DefaultFPS.
func ResolveFPS(override, probed float64) float64 {
	if override > 0 {
		return override
	}
	if probed > 0 {
		return probed
	}
	return DefaultFPS
}

// KeyframeInterval is a GOP of two seconds, at least one frame.
func KeyframeInterval(fps float64) int {
	k := int(math.Round(fps * 2.0))
	if k < 1 {
		return 1
	}
	return k
}
