package pipeline

import "fmt"

// FrameProcessor transforms one bgr24 frame. The result must have the same
// length as the input; it may alias the input buffer, which is reused for
// the next frame once the result has been copied out.
type FrameProcessor interface {
	Process(frame []byte) ([]byte, error)
}

// FrameFunc adapts a function to FrameProcessor.
type FrameFunc func(frame []byte) ([]byte, error)

func (f FrameFunc) Process(frame []byte) ([]byte, error) { return f(frame) }

// Identity passes frames through untouched.
var Identity FrameProcessor = FrameFunc(func(frame []byte) ([]byte, error) { return frame, nil })

// Chain runs processors in order.
func Chain(procs ...FrameProcessor) FrameProcessor {
	return FrameFunc(func(frame []byte) ([]byte, error) {
		var err error
		for _, p := range procs {
			if frame, err = p.Process(frame); err != nil {
				return nil, err
			}
		}
		return frame, nil
	})
}

func applyProcessor(proc FrameProcessor, frame []byte, index int) ([]byte, error) {
	out, err := proc.Process(frame)
	if err != nil {
		return nil, fmt.Errorf("processing frame %d: %w", index, err)
	}
	if len(out) != len(frame) {
		return nil, fmt.Errorf("processing frame %d: processor returned %d bytes, want %d", index, len(out), len(frame))
	}
	return out, nil
}
