package classifier

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Layout is the memory order of an image batch.
type Layout string

const (
	// LayoutAuto defers to the model's declared input shape.
	LayoutAuto Layout = ""
	// LayoutNHWC is batch, height, width, channel (Keras default).
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is batch, channel, height, width.
	LayoutNCHW Layout = "nchw"
)

// ParseLayout parses a layout name; the empty string and "auto" mean
// LayoutAuto.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutNHWC, LayoutNCHW, LayoutAuto:
		return l, nil
	case "auto":
		return LayoutAuto, nil
	}
	return "", fmt.Errorf("classifier: unknown layout %q", s)
}

// Tensor is a dense float32 batch.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Preprocess turns img into a [1, size, size, 3] (or [1, 3, size, size])
// tensor with values in [0, 1].
func Preprocess(img image.Image, size int, layout Layout) *Tensor {
	rgb := toRGB(img)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), rgb, rgb.Bounds(), xdraw.Src, nil)

	plane := size * size
	t := &Tensor{Data: make([]float32, plane*3)}
	if layout == LayoutNCHW {
		t.Shape = []int64{1, 3, int64(size), int64(size)}
	} else {
		t.Shape = []int64{1, int64(size), int64(size), 3}
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := dst.Pix[y*dst.Stride+x*4:]
			i := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255
				if layout == LayoutNCHW {
					t.Data[c*plane+i] = v
				} else {
					t.Data[i*3+c] = v
				}
			}
		}
	}
	return t
}

// toRGB drops the alpha channel, keeping straight (non premultiplied) color.
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
