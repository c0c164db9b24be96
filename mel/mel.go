package mel

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
	"github.com/r9y9/gossp/stft"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats"
)

// Mel represents the configuration for generating mel spectrograms.
type Mel struct {
	NumMels int
	MelFmin float64
	// MelFmax of 0 means half the sample rate.
	MelFmax float64
	// Window is the hop between successive frames, in samples.
	Window int
	// Resolut is the FFT size, which is also the frame length.
	Resolut int
	Power   float64
	Center  bool

	// TopDB clips decibel values below peak-TopDB. Zero disables clipping.
	TopDB float64
	Amin  float64
}

// NewMel creates a new Mel instance with default values.
func NewMel() *Mel {
	return &Mel{
		NumMels: 128,
		MelFmin: 0,
		MelFmax: 0,
		Window:  512,
		Resolut: 2048,
		Power:   2,
		Center:  true,
		TopDB:   80,
		Amin:    1e-10,
	}
}

var (
	ErrNoSamples     = errors.New("mel: no samples")
	ErrBadSampleRate = errors.New("mel: sample rate must be positive")
)

// framesPerChunk bounds the complex spectrum held in memory at once.
const framesPerChunk = 256

// Validate checks the configuration against a sample rate.
func (m *Mel) Validate(sampleRate int) error {
	if sampleRate <= 0 {
		return ErrBadSampleRate
	}
	if m.NumMels <= 0 {
		return fmt.Errorf("mel: NumMels must be positive, got %d", m.NumMels)
	}
	if m.Window <= 0 || m.Resolut <= 0 {
		return fmt.Errorf("mel: hop %d and fft size %d must be positive", m.Window, m.Resolut)
	}
	if m.Resolut&(m.Resolut-1) != 0 {
		return fmt.Errorf("mel: fft size %d is not a power of two", m.Resolut)
	}
	if fmax := m.fmax(sampleRate); m.MelFmin < 0 || m.MelFmin >= fmax {
		return fmt.Errorf("mel: invalid band %v..%v Hz", m.MelFmin, fmax)
	}
	return nil
}

func (m *Mel) fmax(sampleRate int) float64 {
	if m.MelFmax > 0 {
		return m.MelFmax
	}
	return float64(sampleRate) / 2
}

// ToMel generates a mel power spectrogram from a wave buffer.
func (m *Mel) ToMel(buf []float64, sampleRate int) (*Spectrogram, error) {
	if len(buf) == 0 {
		return nil, ErrNoSamples
	}
	if err := m.Validate(sampleRate); err != nil {
		return nil, err
	}

	buf = pad(buf, m.Resolut, m.Center)
	bank := melFilters(sampleRate, m.Resolut, m.NumMels, m.MelFmin, m.fmax(sampleRate))

	s := stft.New(m.Window, m.Resolut)
	s.Window = window.Hann(m.Resolut + 1)[:m.Resolut]

	frames := (len(buf)-m.Resolut)/m.Window + 1
	spec := &Spectrogram{
		NumMels:    m.NumMels,
		NumFrames:  frames,
		Data:       make([]float64, m.NumMels*frames),
		SampleRate: sampleRate,
		HopLength:  m.Window,
		Fmin:       m.MelFmin,
		Fmax:       m.fmax(sampleRate),
		centers:    bandCenters(m.NumMels, m.MelFmin, m.fmax(sampleRate)),
	}

	power := make([]float64, m.Resolut/2+1)
	for first := 0; first < frames; first += framesPerChunk {
		n := framesPerChunk
		if first+n > frames {
			n = frames - first
		}
		lo := first * m.Window
		hi := lo + (n-1)*m.Window + m.Resolut
		spectrum := s.STFT(buf[lo:hi])

		for i := range spectrum {
			for k := range power {
				re, im := real(spectrum[i][k]), imag(spectrum[i][k])
				power[k] = re*re + im*im
				if m.Power != 2 {
					power[k] = math.Pow(power[k], m.Power/2)
				}
			}
			t := first + i
			for b, f := range bank {
				spec.Data[b*frames+t] = floats.Dot(f.weights, power[f.start:f.start+len(f.weights)])
			}
		}
	}

	return spec, nil
}

// Spectrogram is a mel-by-frame matrix stored row major.
type Spectrogram struct {
	NumMels    int
	NumFrames  int
	Data       []float64
	SampleRate int
	HopLength  int
	Fmin       float64
	Fmax       float64
	// DB reports whether Data holds decibels rather than power.
	DB bool

	centers []float64
}

// At returns the value of band m at frame t.
func (s *Spectrogram) At(m, t int) float64 {
	return s.Data[m*s.NumFrames+t]
}

// Min returns the smallest value.
func (s *Spectrogram) Min() float64 {
	return floats.Min(s.Data)
}

// Max returns the largest value.
func (s *Spectrogram) Max() float64 {
	return floats.Max(s.Data)
}

// FrameTime returns the start time of frame t in seconds.
func (s *Spectrogram) FrameTime(t int) float64 {
	return float64(t*s.HopLength) / float64(s.SampleRate)
}

// Duration returns the time spanned by all frames in seconds.
func (s *Spectrogram) Duration() float64 {
	return s.FrameTime(s.NumFrames)
}

// BandFrequency returns the center frequency of band m in Hz.
func (s *Spectrogram) BandFrequency(m int) float64 {
	if s.centers == nil {
		s.centers = bandCenters(s.NumMels, s.Fmin, s.Fmax)
	}
	return s.centers[m]
}

// PowerToDB returns a copy converted to decibels relative to the peak
// power. Values below amin are clamped before the logarithm and, when topDB
// is positive, the result is clipped at peak-topDB. A spectrogram without
// energy above amin maps uniformly to the floor value -topDB.
func (s *Spectrogram) PowerToDB(amin, topDB float64) *Spectrogram {
	out := *s
	out.Data = make([]float64, len(s.Data))
	out.DB = true

	if amin <= 0 {
		amin = 1e-10
	}
	ref := s.Max()
	if !(ref > amin) {
		floor := 0.0
		if topDB > 0 {
			floor = -topDB
		}
		for i := range out.Data {
			out.Data[i] = floor
		}
		return &out
	}

	refDB := 10 * math.Log10(ref)
	for i, v := range s.Data {
		out.Data[i] = 10*math.Log10(math.Max(amin, v)) - refDB
	}
	if topDB > 0 {
		floor := floats.Max(out.Data) - topDB
		for i, v := range out.Data {
			if v < floor {
				out.Data[i] = floor
			}
		}
	}
	return &out
}

// Float16 returns the matrix as IEEE 754 half-precision bit patterns, row
// major, for compact export.
func (s *Spectrogram) Float16() []uint16 {
	out := make([]uint16, len(s.Data))
	for i, v := range s.Data {
		out[i] = float16.Fromfloat32(float32(v)).Bits()
	}
	return out
}

// BandIndex returns the fractional band position of frequency hz, such that
// BandIndex(BandFrequency(m)) == m.
func (s *Spectrogram) BandIndex(hz float64) float64 {
	lo, hi := hz_to_mel(s.Fmin), hz_to_mel(s.Fmax)
	step := (hi - lo) / float64(s.NumMels+1)
	return (hz_to_mel(hz)-lo)/step - 1
}
