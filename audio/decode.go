package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

const streamChunk = 4096

// Decode reads a whole clip of format f from r.
func Decode(r io.Reader, f Format) (*Waveform, error) {
	var (
		wf  *Waveform
		err error
	)
	switch f {
	case FormatWAV:
		wf, err = loadwav(r)
	case FormatMP3:
		wf, err = loadmp3(r)
	case FormatFLAC:
		wf, err = loadflac(r)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrDecode, f)
	}
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, f, err)
	}
	if len(wf.Samples) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrEmpty)
	}
	if wf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrDecode, wf.SampleRate)
	}
	return wf, nil
}

// DecodeBytes sniffs and decodes an in-memory clip.
func DecodeBytes(data []byte, name string) (*Waveform, Format, error) {
	f := Sniff(data, name)
	wf, err := Decode(bytes.NewReader(data), f)
	return wf, f, err
}

// loadwav decodes integer PCM, scaling by 2^(bits-1) so full scale maps
// to [-1, 1).
func loadwav(r io.Reader) (*Waveform, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: wav: not a valid RIFF/WAVE stream", ErrDecode)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: wav: unsupported encoding %d, want PCM", ErrDecode, dec.WavAudioFormat)
	}
	channels := int(dec.NumChans)
	if channels == 0 {
		return nil, fmt.Errorf("%w: wav: no channels", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, fmt.Errorf("%w: wav: no PCM data", ErrDecode)
	}

	var offset, scale float64
	switch dec.BitDepth {
	case 8:
		offset, scale = 128, 128
	case 16, 24, 32:
		scale = float64(int64(1) << (dec.BitDepth - 1))
	default:
		return nil, fmt.Errorf("%w: wav: unsupported bit depth %d", ErrDecode, dec.BitDepth)
	}

	wf := &Waveform{
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		Samples:    make([]float64, len(buf.Data)/channels),
	}
	for i := range wf.Samples {
		var sum float64
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			sum += float64(v) - offset
		}
		wf.Samples[i] = sum / float64(channels) / scale
	}
	return wf, nil
}

// loadmp3 decodes through beep. go-mp3 always emits two channels, so the
// channel count is taken from the first frame header instead.
func loadmp3(r io.Reader) (*Waveform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	stream, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, err
	}
	wf, err := drain(stream, format)
	if err != nil {
		return nil, err
	}
	if n := mpegChannels(data); n > 0 {
		wf.Channels = n
	}
	return wf, nil
}

// mpegChannels reads the channel mode of the first MPEG audio frame after
// an optional ID3v2 tag. It returns 0 when no frame header is found.
func mpegChannels(data []byte) int {
	i := 0
	if len(data) >= 10 && bytes.Equal(data[:3], []byte("ID3")) {
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		i = 10 + size
		if data[5]&0x10 != 0 {
			i += 10
		}
	}
	for ; i+4 <= len(data); i++ {
		h := data[i : i+4]
		if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
			continue
		}
		version, layer := (h[1]>>3)&3, (h[1]>>1)&3
		bitrate, rate := h[2]>>4, (h[2]>>2)&3
		if version == 1 || layer == 0 || bitrate == 15 || rate == 3 {
			continue
		}
		if h[3]>>6 == 3 {
			return 1
		}
		return 2
	}
	return 0
}

// drain pulls every frame out of a beep stream, averaging the stereo pair
// when the source has two channels.
func drain(stream beep.StreamSeekCloser, format beep.Format) (*Waveform, error) {
	defer stream.Close()

	wf := &Waveform{
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}
	if n := stream.Len(); n > 0 {
		wf.Samples = make([]float64, 0, n)
	}

	buf := make([][2]float64, streamChunk)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			if format.NumChannels >= 2 {
				wf.Samples = append(wf.Samples, (buf[i][0]+buf[i][1])/2)
			} else {
				wf.Samples = append(wf.Samples, buf[i][0])
			}
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return wf, nil
}

func loadflac(r io.Reader) (*Waveform, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, fmt.Errorf("%w: flac stream without channels", ErrDecode)
	}
	scale, err := flacScale(stream.Info.BitsPerSample)
	if err != nil {
		return nil, err
	}

	wf := &Waveform{
		SampleRate: int(stream.Info.SampleRate),
		Channels:   channels,
	}
	if stream.Info.NSamples > 0 {
		wf.Samples = make([]float64, 0, stream.Info.NSamples)
	}
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		for i := range frame.Subframes[0].Samples {
			var sum float64
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			wf.Samples = append(wf.Samples, sum/float64(len(frame.Subframes))/scale)
		}
	}
	return wf, nil
}

// flacScale returns the full-scale divisor for a FLAC sample size.
func flacScale(bits uint8) (float64, error) {
	if bits == 0 || bits > 32 {
		return 0, fmt.Errorf("%w: flac: invalid bits per sample %d", ErrDecode, bits)
	}
	return float64(int64(1) << (bits - 1)), nil
}
