package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/neurlang/melvoice/mel"
)

// colorBarWidth is the share of the figure width given to the color bar.
const colorBarWidth = 0.2

// hzTicks are the candidate frequency labels of the mel axis.
var hzTicks = []float64{0, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768}

// MelSpectrogram plots a decibel spectrogram as a time-by-mel heatmap with a
// vertical color bar.
func MelSpectrogram(spec *mel.Spectrogram, opts Options) (*Figure, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if spec.NumMels == 0 || spec.NumFrames == 0 {
		return nil, fmt.Errorf("plot: empty spectrogram")
	}

	lo, hi := spec.Min(), spec.Max()
	if !(hi > lo) {
		lo = hi - 1
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMin(lo)
	cm.SetMax(hi)

	heat := plotter.NewHeatMap(grid{spec}, cm.Palette(255))
	heat.Min, heat.Max = lo, hi
	heat.Rasterized = true

	p := plot.New()
	p.Title.Text = "Mel Spectrogram"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Hz"
	p.Y.Tick.Marker = melTicks{spec}
	p.Add(heat)

	unit := ""
	if spec.DB {
		unit = " dB"
	}
	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Tick.Marker = barTicks{unit: unit}
	bar.Title.Text = " "

	return &Figure{opts: opts, draw: func(dc draw.Canvas) {
		width := dc.Rectangle.Size().X
		split := vg.Length(1-colorBarWidth) * width
		p.Draw(draw.Crop(dc, 0, split-width, 0, 0))
		bar.Draw(draw.Crop(dc, split, 0, 0, 0))
	}}, nil
}

// grid adapts a spectrogram to plotter.GridXYZ. Single-frame or single-band
// spectrograms are widened to two cells so the heatmap has a cell size.
type grid struct {
	s *mel.Spectrogram
}

func (g grid) Dims() (c, r int) {
	return max(g.s.NumFrames, 2), max(g.s.NumMels, 2)
}

func (g grid) Z(c, r int) float64 {
	return g.s.At(min(r, g.s.NumMels-1), min(c, g.s.NumFrames-1))
}

func (g grid) X(c int) float64 {
	return g.s.FrameTime(c)
}

func (g grid) Y(r int) float64 {
	return float64(r)
}

// melTicks labels band indices with the frequency they sit at.
type melTicks struct {
	s *mel.Spectrogram
}

func (t melTicks) Ticks(lo, hi float64) []plot.Tick {
	var ticks []plot.Tick
	for _, hz := range hzTicks {
		if hz < t.s.Fmin || hz > t.s.Fmax {
			continue
		}
		v := t.s.BandIndex(hz)
		if v < lo || v > hi {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%.0f", hz)})
	}
	return ticks
}

// barTicks formats color bar labels as signed integers with a unit.
type barTicks struct {
	unit string
}

func (t barTicks) Ticks(lo, hi float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(lo, hi)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		v := ticks[i].Value
		if math.Abs(v) < 0.5 {
			v = 0
		}
		ticks[i].Label = fmt.Sprintf("%+2.0f%s", v, t.unit)
	}
	return ticks
}
