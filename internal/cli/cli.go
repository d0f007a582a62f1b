package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/burstcast/internal/app"
	"github.com/specialistvlad/burstcast/internal/envconfig"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// globals are the flags accepted before the command name.
type globals struct {
	logFormat       string
	logLevel        string
	healthcheckPort int
	historyDB       string
	envFile         string
	profilePath     string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("burstcast", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
burstcast - Stream a video file with its WAV soundtrack as MPEG-TS over UDP.

Usage:
  burstcast [options] COMMAND [command options] [ARGS]

Commands:
  stream   Stream a video file (optionally with a 16-bit PCM WAV track).
  launch   Stream sample.mp4 and voice_sample.wav to STREAM_HOST:STREAM_PORT.
  bundle   Download system packages and Python wheels for offline install.
  history  List recent streaming runs.

Run 'burstcast COMMAND -h' for command options.

Options:
`)
		flagSet.PrintDefaults()
	}

	var g globals
	flagSet.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.IntVar(&g.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	flagSet.StringVar(&g.historyDB, "history-db", ".burstcast/history.db", "SQLite file runs are recorded in. Empty disables history.")
	flagSet.StringVar(&g.envFile, "env-file", ".env", "Env file loaded before anything else. A missing file is ignored.")
	flagSet.StringVar(&g.profilePath, "profile", "", "Profile .hcl file or directory with stream and bundle settings.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	g.logFormat = strings.ToLower(g.logFormat)
	if g.logFormat != "text" && g.logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	if _, ok := app.ParseLevel(g.logLevel); !ok {
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if g.healthcheckPort < 0 || g.healthcheckPort > 65535 {
		return nil, false, usageError("invalid healthcheck-port: %d", g.healthcheckPort)
	}

	command, rest := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := commands[command]
	if !ok {
		flagSet.Usage()
		return nil, false, usageError("unknown command %q", command)
	}

	if err := envconfig.Load(slog.Default(), g.envFile); err != nil {
		return nil, false, err
	}
	prof, err := loadProfile(g.profilePath)
	if err != nil {
		return nil, false, err
	}

	cfg := app.Config{
		Command:         command,
		LogFormat:       g.logFormat,
		LogLevel:        strings.ToLower(g.logLevel),
		HealthcheckPort: g.healthcheckPort,
		HistoryDB:       g.historyDB,
	}
	exit, err := cmd(&cfg, prof, rest, output)
	if err != nil || exit {
		return nil, exit, err
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
