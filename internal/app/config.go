package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/burstcast/internal/bundle"
	"github.com/specialistvlad/burstcast/internal/streamer"
)

// Commands understood by App.Run.
const (
	CommandStream  = "stream"
	CommandLaunch  = "launch"
	CommandBundle  = "bundle"
	CommandHistory = "history"
)

// Fixed sample assets the launch command streams from its root.
const (
	SampleVideo = "sample.mp4"
	SampleAudio = "voice_sample.wav"
)

// MonitorConfig points at an optional socket.io dashboard.
type MonitorConfig struct {
	URL       string
	Namespace string
	Interval  time.Duration
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// HistoryDB is the SQLite file runs are recorded in. Empty disables it.
	HistoryDB    string
	HistoryLimit int

	// Stream is used by the stream command and as the base for launch.
	Stream  streamer.Options
	Monitor MonitorConfig

	// LaunchRoot is the directory holding the sample assets.
	LaunchRoot string

	Bundle bundle.Options
}

// NewConfig validates cfg for its command.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandStream:
		if err := cfg.Stream.Validate(); err != nil {
			return nil, err
		}
	case CommandLaunch:
		if cfg.LaunchRoot == "" {
			return nil, errors.New("launch root is required")
		}
	case CommandBundle:
		if err := cfg.Bundle.Validate(); err != nil {
			return nil, err
		}
	case CommandHistory:
		if cfg.HistoryDB == "" {
			return nil, errors.New("history is disabled: --history-db is empty")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.Monitor.Interval < 0 {
		return nil, fmt.Errorf("monitor interval must not be negative, got %s", cfg.Monitor.Interval)
	}
	return &cfg, nil
}
