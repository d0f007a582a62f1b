package streamer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/specialistvlad/burstcast/internal/encoder"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, "127.0.0.1", o.Host)
	assert.Equal(t, 5000, o.Port)
	assert.Equal(t, 4, o.VideoChunkFrames)
	assert.Equal(t, 1024, o.AudioChunkFrames)
	assert.Equal(t, 60, o.VideoBufferChunks)
	assert.Equal(t, 200, o.AudioBufferChunks)
	assert.Equal(t, encoder.Chunked, o.Mode)
}

func TestOptionsValidate(t *testing.T) {
	o := DefaultOptions()
	err := o.Validate()
	assert.ErrorContains(t, err, "video path is required")

	o.VideoPath = "sample.mp4"
	assert.NoError(t, o.Validate())

	bad := o
	bad.Port = 0
	bad.VideoChunkFrames = 0
	bad.Mode = "fast"
	bad.FPS = -1
	err = bad.Validate()
	assert.ErrorContains(t, err, "port 0 out of range")
	assert.ErrorContains(t, err, "video chunk frames must be at least 1")
	assert.ErrorContains(t, err, "invalid mode")
	assert.ErrorContains(t, err, "fps must not be negative")
}

func TestEffectiveDelay(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, time.Duration(0), o.EffectiveDelay())

	o.Mode = encoder.Realtime
	assert.Equal(t, 3*time.Second, o.EffectiveDelay())

	o.StartDelay = 500 * time.Millisecond
	assert.Equal(t, 500*time.Millisecond, o.EffectiveDelay())

	o.StartDelay = 0
	assert.Equal(t, time.Duration(0), o.EffectiveDelay())
}

func TestResultMediaDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, Result{Frames: 50, FPS: 25}.MediaDuration())
	assert.Zero(t, Result{Frames: 50}.MediaDuration())
}
