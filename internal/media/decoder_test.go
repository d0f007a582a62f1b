package media

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawFrames_DropsTrailingPartialFrame(t *testing.T) {
	src := bytes.NewReader([]byte("aaaabbbbcc"))
	frames := NewRawFrames(src, 4)
	buf := make([]byte, 4)

	require.NoError(t, frames.ReadFrame(buf))
	assert.Equal(t, "aaaa", string(buf))
	require.NoError(t, frames.ReadFrame(buf))
	assert.Equal(t, "bbbb", string(buf))
	assert.ErrorIs(t, frames.ReadFrame(buf), io.EOF)
	assert.ErrorIs(t, frames.ReadFrame(buf), io.EOF)
}

func TestRawFrames_RejectsWrongBuffer(t *testing.T) {
	frames := NewRawFrames(bytes.NewReader(nil), 4)
	assert.Error(t, frames.ReadFrame(make([]byte, 3)))
	assert.Equal(t, 4, frames.FrameSize())
}
