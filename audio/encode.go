package audio

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// EncodeWAV writes wf as a mono PCM WAV stream with the given bit depth
// (16, 24 or 32).
func EncodeWAV(w io.WriteSeeker, wf *Waveform, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("audio: unsupported bit depth %d", bitDepth)
	}

	maxInt := float64(int64(1)<<(bitDepth-1) - 1)
	data := make([]int, len(wf.Samples))
	for i, s := range wf.Samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * maxInt))
	}

	enc := wav.NewEncoder(w, wf.SampleRate, bitDepth, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: wf.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return nil
}

// WAV returns wf encoded as an in-memory WAV file.
func WAV(wf *Waveform, bitDepth int) ([]byte, error) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("clip.wav")
	if err != nil {
		return nil, err
	}
	if err := EncodeWAV(f, wf, bitDepth); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return afero.ReadFile(fs, "clip.wav")
}
