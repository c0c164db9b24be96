package mel

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	fSp       = 200.0 / 3
	minLogHz  = 1000.0
	minLogMel = minLogHz / fSp
)

var logStep = math.Log(6.4) / 27

func hz_to_mel(hz float64) float64 {
	if hz >= minLogHz {
		return minLogMel + math.Log(hz/minLogHz)/logStep
	}
	return hz / fSp
}

func mel_to_hz(mel float64) float64 {
	if mel >= minLogMel {
		return minLogHz * math.Exp(logStep*(mel-minLogMel))
	}
	return fSp * mel
}

// melPoints returns n+2 frequencies equally spaced on the mel scale.
func melPoints(n int, fmin, fmax float64) []float64 {
	lo, hi := hz_to_mel(fmin), hz_to_mel(fmax)
	pts := make([]float64, n+2)
	for i := range pts {
		pts[i] = mel_to_hz(lo + (hi-lo)*float64(i)/float64(n+1))
	}
	return pts
}

func bandCenters(n int, fmin, fmax float64) []float64 {
	return melPoints(n, fmin, fmax)[1 : n+1]
}

// filter holds the non-zero span of one triangular mel filter.
type filter struct {
	start   int
	weights []float64
}

// melFilters builds area normalized triangular filters over the
// nfft/2+1 FFT bins.
func melFilters(sampleRate, nfft, mels int, fmin, fmax float64) []filter {
	bins := nfft/2 + 1
	pts := melPoints(mels, fmin, fmax)

	bank := make([]filter, mels)
	for i := 0; i < mels; i++ {
		lower, center, upper := pts[i], pts[i+1], pts[i+2]
		enorm := 2 / (upper - lower)

		var f filter
		for k := 0; k < bins; k++ {
			hz := float64(k) * float64(sampleRate) / float64(nfft)
			w := math.Max(0, math.Min((hz-lower)/(center-lower), (upper-hz)/(upper-center)))
			if w <= 0 {
				if f.weights != nil {
					break
				}
				continue
			}
			if f.weights == nil {
				f.start = k
			}
			f.weights = append(f.weights, w*enorm)
		}
		if f.weights == nil {
			f.weights = []float64{}
		}
		bank[i] = f
	}
	return bank
}

// pad surrounds buf with half a frame of zeros on each side when centering,
// and otherwise extends buffers shorter than one frame.
func pad(buf []float64, frame int, center bool) []float64 {
	if center {
		out := make([]float64, len(buf)+frame)
		copy(out[frame/2:], buf)
		return out
	}
	if len(buf) < frame {
		out := make([]float64, frame)
		copy(out, buf)
		return out
	}
	return buf
}
