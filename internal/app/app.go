package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/burstcast/internal/bundle"
	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/streamer"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	httpServer *http.Server

	backend streamer.Backend
	runner  bundle.Runner

	// active is the stream currently running, read by /stats.
	active atomic.Pointer[activeStream]
}

// Option customises an App.
type Option func(*App)

// WithBackend replaces the ffmpeg stream backend.
func WithBackend(b streamer.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithRunner replaces the command runner used by the bundle command.
func WithRunner(r bundle.Runner) Option {
	return func(a *App) { a.runner = r }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		outW:   outW,
		logger: logger,
		config: cfg,
		runner: bundle.ExecRunner{},
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.", "command", cfg.Command)
	return a
}
