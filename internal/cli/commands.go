package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/burstcast/internal/app"
	"github.com/specialistvlad/burstcast/internal/bundle"
	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/profile"
	"github.com/specialistvlad/burstcast/internal/streamer"
)

// commandFunc parses the arguments after the command name into cfg.
type commandFunc func(cfg *app.Config, prof *profile.Profile, args []string, output io.Writer) (bool, error)

var commands = map[string]commandFunc{
	app.CommandStream:  parseStream,
	app.CommandLaunch:  parseLaunch,
	app.CommandBundle:  parseBundle,
	app.CommandHistory: parseHistory,
}

func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return nil, nil
	}
	ctx := ctxlog.WithLogger(context.Background(), slog.Default())
	prof, err := profile.NewLoader().Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return prof, nil
}

func newCommandFlagSet(name, usage string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags turns -h into a clean exit and anything else into an ExitError.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return true, nil
		}
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	return false, nil
}

// ffmpegFlags are shared by stream and launch.
type ffmpegFlags struct {
	ffmpeg  string
	ffprobe string
}

func (f *ffmpegFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.ffmpeg, "ffmpeg-path", streamer.DefaultFFmpeg, "Path to the ffmpeg executable.")
	fs.StringVar(&f.ffprobe, "ffprobe-path", streamer.DefaultFFprobe, "Path to the ffprobe executable.")
}

func (f *ffmpegFlags) apply(name string, opts *streamer.Options) {
	switch name {
	case "ffmpeg-path":
		opts.FFmpegPath = f.ffmpeg
	case "ffprobe-path":
		opts.FFprobePath = f.ffprobe
	}
}

func registerMonitorFlags(fs *flag.FlagSet, m *app.MonitorConfig) {
	fs.StringVar(&m.URL, "monitor-url", "", "socket.io dashboard URL for live progress. Empty disables it.")
	fs.StringVar(&m.Namespace, "monitor-namespace", "/", "socket.io namespace on the dashboard.")
	fs.DurationVar(&m.Interval, "monitor-interval", 2*time.Second, "How often progress is reported. 0 disables progress events.")
}

func parseStream(cfg *app.Config, prof *profile.Profile, args []string, output io.Writer) (bool, error) {
	fs := newCommandFlagSet("stream", `
Usage:
  burstcast stream [options] [VIDEO_PATH]

Arguments:
  VIDEO_PATH
    Video file to stream. May come from the profile instead.

Options:
`, output)

	defaults := streamer.DefaultOptions()
	var (
		ff          ffmpegFlags
		use         = fs.String("use", "", "Name of the profile stream block to apply.")
		audio       = fs.String("audio-path", "", "16-bit PCM WAV file to send with the video.")
		host        = fs.String("host", defaults.Host, "Receiver host.")
		port        = fs.Int("port", defaults.Port, "Receiver UDP port.")
		fps         = fs.Float64("fps", 0, "Frame rate override. 0 uses the video's own rate.")
		mode        = fs.String("mode", string(defaults.Mode), "Streaming mode: 'chunked' or 'realtime'.")
		startDelay  = fs.Duration("start-delay", 0, "Wait before sending so a receiver can be opened (default 3s in realtime mode, 0 in chunked).")
		videoChunk  = fs.Int("video-chunk-frames", defaults.VideoChunkFrames, "Frames per video chunk.")
		audioChunk  = fs.Int("audio-chunk-frames", defaults.AudioChunkFrames, "Sample frames per audio chunk.")
		videoBuffer = fs.Int("video-buffer-chunks", defaults.VideoBufferChunks, "Video chunks buffered ahead of the encoder.")
		audioBuffer = fs.Int("audio-buffer-chunks", defaults.AudioBufferChunks, "Audio chunks buffered ahead of the encoder.")
	)
	ff.register(fs)
	registerMonitorFlags(fs, &cfg.Monitor)

	if exit, err := parseFlags(fs, args); err != nil || exit {
		return exit, err
	}
	if fs.NArg() > 1 {
		return false, usageError("stream takes one video path, got %d arguments", fs.NArg())
	}

	opts := defaults
	selected, err := prof.Stream(*use)
	if err != nil {
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err := selected.Apply(&opts); err != nil {
		return false, err
	}
	if selected != nil {
		slog.Debug("Applied profile stream.", "name", selected.Name)
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "audio-path":
			opts.AudioPath = *audio
		case "host":
			opts.Host = *host
		case "port":
			opts.Port = *port
		case "fps":
			opts.FPS = *fps
		case "mode":
			m, err := encoder.ParseMode(*mode)
			if err != nil {
				flagErr = err
				return
			}
			opts.Mode = m
		case "start-delay":
			opts.StartDelay = *startDelay
		case "video-chunk-frames":
			opts.VideoChunkFrames = *videoChunk
		case "audio-chunk-frames":
			opts.AudioChunkFrames = *audioChunk
		case "video-buffer-chunks":
			opts.VideoBufferChunks = *videoBuffer
		case "audio-buffer-chunks":
			opts.AudioBufferChunks = *audioBuffer
		default:
			ff.apply(f.Name, &opts)
		}
	})
	if flagErr != nil {
		return false, &ExitError{Code: 2, Message: flagErr.Error()}
	}
	if fs.NArg() == 1 {
		opts.VideoPath = fs.Arg(0)
	}
	if opts.VideoPath == "" {
		fs.Usage()
		return false, usageError("a video path is required")
	}

	cfg.Stream = opts
	return false, nil
}

func parseLaunch(cfg *app.Config, _ *profile.Profile, args []string, output io.Writer) (bool, error) {
	fs := newCommandFlagSet("launch", `
Usage:
  burstcast launch [options]

Streams ROOT/sample.mp4 with ROOT/voice_sample.wav in chunked mode to
STREAM_HOST (default 127.0.0.1) on STREAM_PORT (default 5004).

Options:
`, output)

	var ff ffmpegFlags
	root := fs.String("root", ".", "Directory holding sample.mp4 and voice_sample.wav.")
	ff.register(fs)
	registerMonitorFlags(fs, &cfg.Monitor)

	if exit, err := parseFlags(fs, args); err != nil || exit {
		return exit, err
	}
	if fs.NArg() > 0 {
		return false, usageError("launch takes no arguments")
	}

	opts := streamer.DefaultOptions()
	fs.Visit(func(f *flag.Flag) { ff.apply(f.Name, &opts) })
	cfg.Stream = opts
	cfg.LaunchRoot = *root
	return false, nil
}

func parseBundle(cfg *app.Config, prof *profile.Profile, args []string, output io.Writer) (bool, error) {
	fs := newCommandFlagSet("bundle", `
Usage:
  burstcast bundle [options]

Downloads system packages (without installing them) into OUTPUT_DIR/debs and
Python wheels for the requirements file into OUTPUT_DIR/wheels.

Options:
`, output)

	defaults := bundle.DefaultOptions()
	var (
		root         = fs.String("root", defaults.Root, "Repository root relative paths are resolved against.")
		packages     = fs.String("packages", strings.Join(defaults.Packages, ","), "Comma separated system packages.")
		requirements = fs.String("requirements", defaults.Requirements, "Python requirements file.")
		outputDir    = fs.String("output-dir", defaults.OutputDir, "Bundle output directory.")
		cacheDir     = fs.String("cache-dir", defaults.CacheDir, "apt archive cache directory.")
		useSudo      = fs.Bool("sudo", false, "Run the apt download through sudo.")
		python       = fs.String("python", defaults.Python, "Python interpreter used for pip.")
	)
	if exit, err := parseFlags(fs, args); err != nil || exit {
		return exit, err
	}
	if fs.NArg() > 0 {
		return false, usageError("bundle takes no arguments")
	}

	opts := defaults
	if prof != nil && prof.Bundle != nil {
		b := prof.Bundle
		if len(b.Packages) > 0 {
			opts.Packages = b.Packages
		}
		if b.Requirements != nil {
			opts.Requirements = *b.Requirements
		}
		if b.OutputDir != nil {
			opts.OutputDir = *b.OutputDir
		}
		if b.CacheDir != nil {
			opts.CacheDir = *b.CacheDir
		}
		if b.UseSudo != nil {
			opts.UseSudo = *b.UseSudo
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			opts.Root = *root
		case "packages":
			opts.Packages = splitList(*packages)
		case "requirements":
			opts.Requirements = *requirements
		case "output-dir":
			opts.OutputDir = *outputDir
		case "cache-dir":
			opts.CacheDir = *cacheDir
		case "sudo":
			opts.UseSudo = *useSudo
		case "python":
			opts.Python = *python
		}
	})

	cfg.Bundle = opts
	return false, nil
}

func parseHistory(cfg *app.Config, _ *profile.Profile, args []string, output io.Writer) (bool, error) {
	fs := newCommandFlagSet("history", `
Usage:
  burstcast history [options]

Options:
`, output)
	limit := fs.Int("limit", 20, "Number of runs to show.")
	if exit, err := parseFlags(fs, args); err != nil || exit {
		return exit, err
	}
	if *limit < 1 {
		return false, usageError("invalid limit: %d", *limit)
	}
	cfg.HistoryLimit = *limit
	return false, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
