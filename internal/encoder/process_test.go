package encoder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start(context.Background(), "/nonexistent/ffmpeg-for-tests", Options{Mode: Chunked, OutputURL: "udp://h:1"}, true)
	require.Error(t, err)
}

func TestStart_MissingBinaryOnPath(t *testing.T) {
	_, err := Start(context.Background(), "burstcast-no-such-ffmpeg", Options{Mode: Chunked, OutputURL: "udp://h:1"}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForward_SkipsBlankLines(t *testing.T) {
	var lines []string
	forward(strings.NewReader("frame=1\r\n\n  \nframe=2\n"), func(s string) { lines = append(lines, s) })
	assert.Equal(t, []string{"frame=1", "frame=2"}, lines)
}
