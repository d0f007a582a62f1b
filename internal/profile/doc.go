// Package profile loads named stream presets and bundle settings from HCL
// files.
//
// A profile file looks like:
//
//	stream "lobby" {
//	  video = "sample.mp4"
//	  audio = "voice_sample.wav"
//	  host  = env("STREAM_HOST", "127.0.0.1")
//	  port  = env("STREAM_PORT", "5004")
//	  mode  = "realtime"
//	}
//
//	bundle {
//	  packages = ["ffmpeg", "libgl1", "libglib2.0-0"]
//	  use_sudo = false
//	}
//
// Every attribute is optional. Attributes left out keep the value the
// command line or the defaults give them.
package profile
