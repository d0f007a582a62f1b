package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/burstcast/internal/bundle"
	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/encoder"
	"github.com/specialistvlad/burstcast/internal/envconfig"
	"github.com/specialistvlad/burstcast/internal/fsutil"
	"github.com/specialistvlad/burstcast/internal/history"
	"github.com/specialistvlad/burstcast/internal/monitor"
	"github.com/specialistvlad/burstcast/internal/streamer"
)

// ErrMissingAsset is returned by launch when a sample file is absent.
var ErrMissingAsset = errors.New("sample asset not found")

const monitorConnectTimeout = 5 * time.Second

// Run executes the configured command. A stream interrupted through ctx is
// recorded and reported, then Run returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	var err error
	switch a.config.Command {
	case CommandStream:
		err = a.runStream(ctx, CommandStream, a.config.Stream)
	case CommandLaunch:
		err = a.runLaunch(ctx)
	case CommandBundle:
		err = a.runBundle(ctx)
	case CommandHistory:
		err = a.runHistory()
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

// runLaunch streams the fixed sample assets to the target named by the
// environment.
func (a *App) runLaunch(ctx context.Context) error {
	root := a.config.LaunchRoot
	video := filepath.Join(root, SampleVideo)
	audio := filepath.Join(root, SampleAudio)
	for _, p := range []string{video, audio} {
		if !fsutil.Exists(p) {
			return fmt.Errorf("%w: %s", ErrMissingAsset, p)
		}
	}

	target := envconfig.ResolveTarget(a.logger)
	fmt.Fprintf(a.outW, "Open network stream in VLC: %s\n", target.ReceiverURL())

	opts := a.config.Stream
	opts.VideoPath = video
	opts.AudioPath = audio
	opts.Host = target.Host
	opts.Port = target.Port
	opts.Mode = encoder.Chunked
	return a.runStream(ctx, CommandLaunch, opts)
}

// runStream runs one stream, recording it in history and reporting it to
// the monitor.
func (a *App) runStream(ctx context.Context, command string, opts streamer.Options) error {
	opts.Out = a.outW
	s, err := streamer.New(opts, a.backend)
	if err != nil {
		return err
	}
	id := s.ID()
	target := opts.Target().StreamURL()
	ctx, logger := ctxlog.With(ctx, "session", id.String())

	rec := a.openRecorder(ctx)
	defer rec.close()
	rec.begin(&history.Run{
		ID:        id,
		Command:   command,
		Mode:      string(opts.Mode),
		VideoPath: opts.VideoPath,
		AudioPath: opts.AudioPath,
		Target:    target,
	})

	reporter := monitor.Connect(ctx, monitor.SocketIOConfig{
		URL:            a.config.Monitor.URL,
		Namespace:      a.config.Monitor.Namespace,
		ConnectTimeout: monitorConnectTimeout,
	})
	defer reporter.Close()
	reporter.Started(monitor.StartInfo{
		SessionID: id.String(),
		Mode:      string(opts.Mode),
		Video:     opts.VideoPath,
		Audio:     opts.AudioPath,
		Target:    target,
	})

	a.active.Store(&activeStream{id: id, target: target, stats: s.Stats()})
	defer a.active.Store(nil)

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		monitor.Watch(watchCtx, reporter, id.String(), s.Stats(), a.config.Monitor.Interval)
	}()

	logger.Info("Starting stream.", "video", opts.VideoPath, "audio", opts.AudioPath, "target", target)
	result, runErr := s.Run(ctx)
	stopWatch()
	<-watchDone

	status := history.StatusCompleted
	switch {
	case runErr == nil:
	case ctx.Err() != nil && errors.Is(runErr, ctx.Err()):
		status = history.StatusInterrupted
	default:
		status = history.StatusFailed
	}

	errText := ""
	if runErr != nil && status == history.StatusFailed {
		errText = runErr.Error()
	}
	rec.finish(id, history.Outcome{
		Status:     status,
		Error:      errText,
		Frames:     result.Frames,
		VideoBytes: result.VideoBytes,
		AudioBytes: result.AudioBytes,
		FPS:        result.FPS,
	})
	reporter.Finished(monitor.FinishInfo{
		SessionID: id.String(),
		Status:    status,
		Error:     errText,
		Stats:     s.Stats().Snapshot(),
	})

	logger.Info("Stream summary.",
		"status", status,
		"frames", result.Frames,
		"sent", humanize.Bytes(uint64(result.VideoBytes+result.AudioBytes)),
		"elapsed", result.Elapsed.Round(time.Millisecond).String(),
	)

	if status == history.StatusInterrupted {
		fmt.Fprintln(a.outW, "Stream interrupted.")
		return nil
	}
	return runErr
}

// runBundle prepares the offline bundle.
func (a *App) runBundle(ctx context.Context) error {
	m, err := bundle.Prepare(ctx, a.config.Bundle, a.runner)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Bundle written to %s: %d debs, %d wheels, %s.\n",
		a.config.Bundle.ManifestPath(), len(m.Debs), len(m.Wheels), humanize.Bytes(uint64(m.TotalSize())))
	return nil
}

// runHistory prints the most recent runs.
func (a *App) runHistory() error {
	repo, err := history.Open(a.config.HistoryDB)
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.Recent(a.config.HistoryLimit)
	if err != nil {
		return err
	}
	return history.WriteTable(a.outW, runs)
}
