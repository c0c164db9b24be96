package audio

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Format names an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
)

// MIME returns the media type browsers expect for playback.
func (f Format) MIME() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	}
	return "application/octet-stream"
}

// ParseFormat maps a file extension (with or without the dot) to a Format.
func ParseFormat(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav", "wave":
		return FormatWAV
	case "mp3":
		return FormatMP3
	case "flac":
		return FormatFLAC
	}
	return FormatUnknown
}

var (
	// ErrDecode is wrapped by every error caused by undecodable input.
	ErrDecode = errors.New("audio: decode failed")

	// ErrEmpty is returned for streams that decode to zero samples.
	ErrEmpty = errors.New("audio: no samples")
)

// Waveform is a decoded mono signal.
type Waveform struct {
	Samples    []float64
	SampleRate int
	// Channels is the channel count of the source before downmixing.
	Channels int
}

// Duration returns the length of the signal.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Time returns the time in seconds of sample i.
func (w *Waveform) Time(i int) float64 {
	return float64(i) / float64(w.SampleRate)
}

// Peak returns the largest absolute amplitude.
func (w *Waveform) Peak() float64 {
	var peak float64
	for _, s := range w.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Sniff detects the container of data from its magic bytes, falling back to
// the extension of name.
func Sniff(data []byte, name string) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return FormatFLAC
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return ParseFormat(filepath.Ext(name))
}
