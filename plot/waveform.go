package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"

	"github.com/neurlang/melvoice/audio"
)

// Waveform plots amplitude against time in seconds as a single line.
func Waveform(wf *audio.Waveform, opts Options) (*Figure, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(wf.Samples) == 0 || wf.SampleRate <= 0 {
		return nil, fmt.Errorf("plot: empty waveform")
	}

	p := plot.New()
	p.Title.Text = "Waveform Visualization"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Amplitude"

	w, _ := opts.Pixels()
	line, err := plotter.NewLine(envelope(wf, w))
	if err != nil {
		return nil, fmt.Errorf("plot: waveform line: %w", err)
	}
	p.Add(line)
	if wf.Peak() == 0 {
		p.Y.Min, p.Y.Max = -1, 1
	}

	return &Figure{opts: opts, draw: func(dc draw.Canvas) { p.Draw(dc) }}, nil
}

// envelope returns the samples as points, decimated to a min/max pair per
// output column once there are more samples than the figure can show.
func envelope(wf *audio.Waveform, columns int) plotter.XYs {
	n := len(wf.Samples)
	if columns < 1 {
		columns = 1
	}
	if n <= 2*columns {
		pts := make(plotter.XYs, n)
		for i, s := range wf.Samples {
			pts[i].X = wf.Time(i)
			pts[i].Y = s
		}
		return pts
	}

	pts := make(plotter.XYs, 0, 2*columns)
	for c := 0; c < columns; c++ {
		lo, hi := c*n/columns, (c+1)*n/columns
		if lo == hi {
			continue
		}
		minI, maxI := lo, lo
		for i := lo; i < hi; i++ {
			if wf.Samples[i] < wf.Samples[minI] {
				minI = i
			}
			if wf.Samples[i] > wf.Samples[maxI] {
				maxI = i
			}
		}
		first, second := minI, maxI
		if maxI < minI {
			first, second = maxI, minI
		}
		pts = append(pts,
			plotter.XY{X: wf.Time(first), Y: wf.Samples[first]},
			plotter.XY{X: wf.Time(second), Y: wf.Samples[second]},
		)
	}
	return pts
}
