package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/burstcast/internal/bundle"
	"github.com/specialistvlad/burstcast/internal/history"
	"github.com/specialistvlad/burstcast/internal/pipeline"
	"github.com/specialistvlad/burstcast/internal/testutil"
)

func recentRuns(t *testing.T, path string) []*history.Run {
	t.Helper()
	repo, err := history.Open(path)
	require.NoError(t, err)
	defer repo.Close()
	runs, err := repo.Recent(10)
	require.NoError(t, err)
	return runs
}

func TestRun_StreamRecordsHistory(t *testing.T) {
	cfg := streamConfig(t, t.TempDir())
	backend := newFakeBackend(3)
	a, out := setupAppTest(t, cfg, WithBackend(backend))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Sent 3 frames")
	assert.Contains(t, out.String(), "Stream summary.")
	assert.Equal(t, 3*6, backend.lastEncoder().bytes)
	assert.Nil(t, a.active.Load(), "active stream must be cleared")

	runs := recentRuns(t, cfg.HistoryDB)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusCompleted, runs[0].Status)
	assert.Equal(t, CommandStream, runs[0].Command)
	assert.Equal(t, "realtime", runs[0].Mode)
	assert.Equal(t, int64(3), runs[0].Frames)
	assert.Equal(t, "udp://127.0.0.1:5000?pkt_size=1316", runs[0].Target)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRun_StreamFailureRecorded(t *testing.T) {
	cfg := streamConfig(t, t.TempDir())
	backend := newFakeBackend(1)
	backend.probeErr = errors.New("cannot open video")
	a, _ := setupAppTest(t, cfg, WithBackend(backend))

	err := a.Run(context.Background())
	require.Error(t, err)

	runs := recentRuns(t, cfg.HistoryDB)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "cannot open video")
}

func TestRun_StreamInterrupted(t *testing.T) {
	cfg := streamConfig(t, t.TempDir())
	cfg.Stream.StartDelay = -1 // realtime default delay
	a, out := setupAppTest(t, cfg, WithBackend(newFakeBackend(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx), "an interrupted stream is not a failure")
	assert.Contains(t, out.String(), "Stream interrupted.")

	runs := recentRuns(t, cfg.HistoryDB)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusInterrupted, runs[0].Status)
	assert.Empty(t, runs[0].Error)
}

func TestRun_StreamWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := streamConfig(t, dir)
	cfg.HistoryDB = ""
	a, out := setupAppTest(t, cfg, WithBackend(newFakeBackend(2)))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "History disabled.")
	_, err := os.Stat(filepath.Join(dir, "history.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_History(t *testing.T) {
	dir := t.TempDir()
	cfg := streamConfig(t, dir)
	a, _ := setupAppTest(t, cfg, WithBackend(newFakeBackend(2)))
	require.NoError(t, a.Run(context.Background()))

	h, out := setupAppTest(t, Config{Command: CommandHistory, HistoryDB: cfg.HistoryDB, HistoryLimit: 5})
	require.NoError(t, h.Run(context.Background()))
	assert.Contains(t, out.String(), "STATUS")
	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, out.String(), "realtime")
}

func TestRun_Bundle(t *testing.T) {
	root := t.TempDir()
	cache := t.TempDir()
	opts := bundle.DefaultOptions()
	opts.Root = root
	opts.CacheDir = cache

	runner := &testutil.RecordingRunner{OnRun: func(name string, args []string) error {
		switch name {
		case "apt-get":
			return os.WriteFile(filepath.Join(cache, "ffmpeg.deb"), []byte("deb"), 0o644)
		case "python3":
			return os.WriteFile(filepath.Join(opts.WheelsDir(), "numpy.whl"), []byte("wheel"), 0o644)
		}
		return nil
	}}

	a, out := setupAppTest(t, Config{Command: CommandBundle, Bundle: opts}, WithRunner(runner))
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Bundle written to "+opts.ManifestPath()+": 1 debs, 1 wheels")
	assert.Len(t, runner.Calls(), 2)
}

func TestRun_BundleFailure(t *testing.T) {
	opts := bundle.DefaultOptions()
	opts.Root = t.TempDir()
	runner := &testutil.RecordingRunner{OnRun: func(string, []string) error { return errors.New("exit status 100") }}

	a, _ := setupAppTest(t, Config{Command: CommandBundle, Bundle: opts}, WithRunner(runner))
	err := a.Run(context.Background())
	var stepErr *bundle.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, bundle.StepDownloadDebs, stepErr.Step)
}

func TestRun_LaunchMissingAudio(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, SampleVideo), []byte("v"), 0o644))

	a, out := setupAppTest(t, Config{Command: CommandLaunch, LaunchRoot: root})
	err := a.Run(context.Background())
	require.ErrorIs(t, err, ErrMissingAsset)
	assert.Contains(t, err.Error(), SampleAudio)
	assert.NotContains(t, out.String(), "Open network stream")
}

func TestHealthRoutes(t *testing.T) {
	a, _ := setupAppTest(t, Config{Command: CommandHistory})
	mux := a.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":false}`, rec.Body.String())

	stats := &pipeline.Stats{}
	stats.AddFrames(4)
	stats.AddVideo(24)
	id := uuid.New()
	a.active.Store(&activeStream{id: id, target: "udp://h:1?pkt_size=1316", stats: stats})

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var body statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Active)
	assert.Equal(t, id.String(), body.SessionID)
	require.NotNil(t, body.Stats)
	assert.Equal(t, int64(4), body.Stats.Frames)
	assert.Equal(t, int64(24), body.Stats.VideoBytes)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"unknown command", Config{Command: "play"}, `unknown command "play"`},
		{"stream without video", Config{Command: CommandStream}, "video path is required"},
		{"launch without root", Config{Command: CommandLaunch}, "launch root is required"},
		{"history disabled", Config{Command: CommandHistory}, "history is disabled"},
		{"bundle without packages", Config{Command: CommandBundle}, "at least one package"},
		{"negative interval", Config{Command: CommandHistory, HistoryDB: "h.db", Monitor: MonitorConfig{Interval: -1}}, "monitor interval"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.wantErr), "got %q", err.Error())
		})
	}

	cfg, err := NewConfig(Config{Command: CommandHistory, HistoryDB: "h.db"})
	require.NoError(t, err)
	assert.Equal(t, CommandHistory, cfg.Command)
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, ok := ParseLevel(name)
		assert.True(t, ok, name)
	}
	_, ok := ParseLevel("loud")
	assert.False(t, ok)
}
