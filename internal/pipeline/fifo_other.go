//go:build !unix

package pipeline

import "errors"

// MakeFIFO is unavailable without named pipes.
func MakeFIFO(path string) error {
	return errors.New("chunked mode needs named pipes, which this platform lacks; use realtime mode")
}

func UnblockFIFO(path string) {}
