// Package envconfig resolves the streaming target from the process
// environment, optionally seeded from .env files.
package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// HostVar names the receiver host variable.
	HostVar = "STREAM_HOST"
	// PortVar names the receiver UDP port variable.
	PortVar = "STREAM_PORT"

	DefaultHost = "127.0.0.1"
	DefaultPort = 5004
)

// Target is the UDP endpoint the encoder sends MPEG-TS packets to.
type Target struct {
	Host string
	Port int
}

// StreamURL is the ffmpeg output URL. 1316 bytes is seven 188-byte TS packets.
func (t Target) StreamURL() string {
	return fmt.Sprintf("udp://%s:%d?pkt_size=1316", t.Host, t.Port)
}

// ReceiverURL is what a VLC user opens to listen on the port.
func (t Target) ReceiverURL() string {
	return fmt.Sprintf("udp://@:%d", t.Port)
}

// Load reads the given .env files into the process environment. Variables
// already set are left alone. Missing files are skipped.
func Load(logger *slog.Logger, paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("No env file found, using system environment.", "path", p)
				continue
			}
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
		logger.Debug("Env file loaded.", "path", p)
	}
	return nil
}

// ResolveTarget reads STREAM_HOST and STREAM_PORT. Blank values use the
// defaults; an unparsable or out-of-range port is reported and replaced by
// DefaultPort.
func ResolveTarget(logger *slog.Logger) Target {
	return resolve(logger, os.Getenv)
}

func resolve(logger *slog.Logger, getenv func(string) string) Target {
	host := strings.TrimSpace(getenv(HostVar))
	if host == "" {
		host = DefaultHost
	}

	portRaw := strings.TrimSpace(getenv(PortVar))
	if portRaw == "" {
		return Target{Host: host, Port: DefaultPort}
	}
	port, err := ParsePort(portRaw)
	if err != nil {
		logger.Warn("Invalid STREAM_PORT, using default.", "value", portRaw, "default", DefaultPort, "error", err)
		port = DefaultPort
	}
	return Target{Host: host, Port: port}
}

// ParsePort parses a decimal UDP port in 1..65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
