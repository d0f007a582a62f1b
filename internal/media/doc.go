// Package media reads the inputs of a stream: video metadata through
// ffprobe, raw bgr24 frames through an ffmpeg decoding process, and 16-bit
// PCM samples straight out of a WAV file.
package media
