package pipeline

import (
	"bytes"
	"errors"
	"io"
)

// memFrames serves frames from a fixed list.
type memFrames struct {
	frames [][]byte
	size   int
	pos    int
	err    error // returned after the frames run out instead of io.EOF
}

func newMemFrames(size int, frames ...string) *memFrames {
	m := &memFrames{size: size}
	for _, f := range frames {
		m.frames = append(m.frames, []byte(f))
	}
	return m
}

func (m *memFrames) FrameSize() int { return m.size }

func (m *memFrames) ReadFrame(buf []byte) error {
	if m.pos >= len(m.frames) {
		if m.err != nil {
			return m.err
		}
		return io.EOF
	}
	copy(buf, m.frames[m.pos])
	m.pos++
	return nil
}

// memAudio serves sample bytes in frames of frameBytes.
type memAudio struct {
	r          *bytes.Reader
	frameBytes int
}

func (m *memAudio) ReadFrames(n int) ([]byte, error) {
	buf := make([]byte, n*m.frameBytes)
	read, err := io.ReadFull(m.r, buf)
	if read > 0 {
		return buf[:read], nil
	}
	if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return nil, err
}

func drainAll(q *Queue) []string {
	var out []string
	for chunk := range q.ch {
		out = append(out, string(chunk))
	}
	return out
}
