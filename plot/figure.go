package plot

import (
	"bytes"
	"fmt"
	"image"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Options sets the physical size of a figure.
type Options struct {
	// Width and Height are in inches.
	Width  float64
	Height float64
	DPI    int
}

// DefaultOptions returns a 4in square figure at 100 dpi (400x400 pixels).
func DefaultOptions() Options {
	return Options{Width: 4, Height: 4, DPI: 100}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 || o.DPI <= 0 {
		return fmt.Errorf("plot: invalid figure size %vx%v in at %d dpi", o.Width, o.Height, o.DPI)
	}
	return nil
}

// Pixels returns the raster size of the figure.
func (o Options) Pixels() (w, h int) {
	return int(o.Width * float64(o.DPI)), int(o.Height * float64(o.DPI))
}

// Figure is a drawable plot with a fixed size.
type Figure struct {
	opts Options
	draw func(dc draw.Canvas)
}

func (f *Figure) canvas() *vgimg.Canvas {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(f.opts.Width)*vg.Inch, vg.Length(f.opts.Height)*vg.Inch),
		vgimg.UseDPI(f.opts.DPI),
	)
	f.draw(draw.New(c))
	return c
}

// Image renders the figure to an RGBA raster.
func (f *Figure) Image() image.Image {
	return f.canvas().Image()
}

// PNG renders the figure and encodes it as PNG.
func (f *Figure) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: f.canvas()}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("plot: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
