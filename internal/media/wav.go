package media

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotPCM16 rejects WAV files whose samples are not 16-bit.
	ErrNotPCM16 = errors.New("only 16-bit PCM WAV is supported")
	// ErrNotWAV rejects files without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// WAV reads PCM sample frames from a RIFF/WAVE file.
type WAV struct {
	f          *os.File
	data       *io.SectionReader
	channels   int
	sampleRate int
	bits       int
}

// OpenWAV parses the header of path and positions the reader at the first
// sample frame.
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	w, err := parseWAV(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w.f = f
	return w, nil
}

func parseWAV(f *os.File) (*WAV, error) {
	br := bufio.NewReader(f)
	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return nil, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	w := &WAV{}
	var haveFmt bool
	offset := int64(12)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return nil, errors.New("missing data chunk")
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != formatPCM && format != formatExtensible {
				return nil, fmt.Errorf("unsupported WAV format tag %#x", format)
			}
			w.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			w.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			w.bits = int(binary.LittleEndian.Uint16(body[14:16]))
			if w.channels < 1 {
				return nil, errors.New("WAV declares no channels")
			}
			if w.bits < 8 || w.bits%8 != 0 {
				return nil, fmt.Errorf("unsupported bits per sample: %d", w.bits)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			w.data = io.NewSectionReader(f, offset, size)
			return w, nil
		default:
			if _, err := br.Discard(int(size)); err != nil {
				return nil, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
		}
		offset += size
		if size%2 == 1 {
			// chunks are word aligned
			if _, err := br.Discard(1); err != nil {
				return nil, errors.New("missing data chunk")
			}
			offset++
		}
	}
}

func (w *WAV) Channels() int   { return w.channels }
func (w *WAV) SampleRate() int { return w.sampleRate }

// SampleWidth is the size of one sample in bytes.
func (w *WAV) SampleWidth() int { return w.bits / 8 }

// FrameBytes is the size of one sample frame across all channels.
func (w *WAV) FrameBytes() int { return w.SampleWidth() * w.channels }

// RequirePCM16 returns ErrNotPCM16 unless samples are two bytes wide.
func (w *WAV) RequirePCM16() error {
	if w.SampleWidth() != 2 {
		return fmt.Errorf("%w (sample width %d bytes)", ErrNotPCM16, w.SampleWidth())
	}
	return nil
}

// ReadFrames returns up to n sample frames. An empty slice with a nil error
// never happens: the end of the data chunk is signalled with io.EOF.
func (w *WAV) ReadFrames(n int) ([]byte, error) {
	buf := make([]byte, n*w.FrameBytes())
	read, err := io.ReadFull(w.data, buf)
	read -= read % w.FrameBytes()
	if read > 0 {
		return buf[:read], nil
	}
	if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return nil, err
}

func (w *WAV) Close() error {
	return w.f.Close()
}
