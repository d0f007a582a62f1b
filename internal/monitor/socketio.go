package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/pipeline"
)

// SocketIOConfig locates the dashboard.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// SocketIO emits events on a socket.io connection.
type SocketIO struct {
	io     *socket.Socket
	logger *slog.Logger
}

// DialSocketIO connects to the dashboard and waits for the handshake.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("component", "monitor", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse monitor URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("monitor URL %q needs a scheme and host", cfg.URL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Monitor connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger.Debug("Connecting to monitor...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{io: io, logger: logger}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func (s *SocketIO) Started(info StartInfo) {
	s.emit(EventStarted, info)
}

func (s *SocketIO) Progress(sessionID string, snap pipeline.Snapshot) {
	s.emit(EventProgress, map[string]any{
		"session_id": sessionID,
		"stats":      snap,
	})
}

func (s *SocketIO) Finished(info FinishInfo) {
	s.emit(EventFinished, info)
}

func (s *SocketIO) emit(event string, payload any) {
	s.logger.Debug("Emitting event", "event", event)
	s.io.Emit(event, payload)
}

// Close disconnects from the dashboard.
func (s *SocketIO) Close() error {
	s.logger.Debug("Disconnecting monitor")
	s.io.Disconnect()
	return nil
}

// Connect dials the dashboard when cfg.URL is set. Any failure is logged
// and a Noop reporter is returned so the stream goes on without it.
func Connect(ctx context.Context, cfg SocketIOConfig) Reporter {
	if cfg.URL == "" {
		return Noop{}
	}
	r, err := DialSocketIO(ctx, cfg)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Monitor unavailable, continuing without it.", "url", cfg.URL, "error", err)
		return Noop{}
	}
	return r
}
