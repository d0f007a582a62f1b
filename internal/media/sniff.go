package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Sniff returns the MIME type detected from the file's leading bytes.
func Sniff(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	return mt.String(), nil
}

// IsVideo reports whether a MIME type is a video container.
func IsVideo(mime string) bool {
	return strings.HasPrefix(mime, "video/")
}

// IsWAV reports whether a MIME type is one of the WAV spellings.
func IsWAV(mime string) bool {
	mt := mimetype.Lookup(mime)
	if mt == nil {
		return false
	}
	return mt.Is("audio/wav")
}
