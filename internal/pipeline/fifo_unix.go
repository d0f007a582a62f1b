//go:build unix

package pipeline

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MakeFIFO creates a named pipe at path.
func MakeFIFO(path string) error {
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// UnblockFIFO briefly opens the read side of path so that a writer stuck
// in open(2) returns. Its subsequent writes fail with EPIPE.
func UnblockFIFO(path string) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return
	}
	_ = unix.Close(fd)
}
