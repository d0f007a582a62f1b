//go:build unix

package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/testutil"
)

// fakeFFmpeg writes an executable script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestDecoder_FailureMidFileIsLogged(t *testing.T) {
	bin := fakeFFmpeg(t, "printf aaabbb\necho 'corrupt packet at 00:01' >&2\nexit 1\n")
	logger, logs := testutil.NewLogger()
	ctx := ctxlog.WithLogger(context.Background(), logger)

	d, err := OpenDecoder(ctx, bin, "sample.mp4", VideoInfo{Width: 1, Height: 1})
	require.NoError(t, err)

	buf := make([]byte, d.FrameSize())
	require.NoError(t, d.ReadFrame(buf))
	assert.Equal(t, "aaa", string(buf))
	require.NoError(t, d.ReadFrame(buf))
	assert.Equal(t, "bbb", string(buf))
	assert.ErrorIs(t, d.ReadFrame(buf), io.EOF)

	require.NoError(t, d.Close())
	out := logs.String()
	assert.Contains(t, out, "corrupt packet at 00:01")
	assert.Contains(t, out, "Decoder exited with error.")
	assert.Contains(t, out, "exit_code=1")
}

func TestDecoder_EarlyCloseIsQuiet(t *testing.T) {
	bin := fakeFFmpeg(t, "while :; do printf aaa; done\n")
	logger, logs := testutil.NewLogger()
	ctx := ctxlog.WithLogger(context.Background(), logger)

	d, err := OpenDecoder(ctx, bin, "sample.mp4", VideoInfo{Width: 1, Height: 1})
	require.NoError(t, err)

	buf := make([]byte, d.FrameSize())
	require.NoError(t, d.ReadFrame(buf))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.NotContains(t, logs.String(), "Decoder exited with error.")
}
