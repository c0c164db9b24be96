package classifier

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

type fakeModel struct {
	scores   []float32
	err      error
	classes  int
	declared Labels
	layout   Layout
	got      *Tensor
}

func (f *fakeModel) Predict(_ context.Context, in *Tensor) ([]float32, error) {
	f.got = in
	return f.scores, f.err
}

func (f *fakeModel) Classes() int           { return f.classes }
func (f *fakeModel) DeclaredLabels() Labels { return f.declared }
func (f *fakeModel) Close() error           { return nil }
func (f *fakeModel) Layout() Layout         { return f.layout }

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 0xff})
		}
	}
	return img
}

func TestPreprocess_Shape(t *testing.T) {
	sizes := []image.Rectangle{
		image.Rect(0, 0, 400, 400),
		image.Rect(0, 0, 37, 1000),
		image.Rect(0, 0, 1, 1),
		image.Rect(0, 0, 256, 256),
	}
	for _, r := range sizes {
		tensor := Preprocess(gradient(r.Dx(), r.Dy()), 256, LayoutNHWC)
		want := []int64{1, 256, 256, 3}
		for i := range want {
			if tensor.Shape[i] != want[i] {
				t.Fatalf("%v: shape = %v, want %v", r, tensor.Shape, want)
			}
		}
		if len(tensor.Data) != 256*256*3 {
			t.Fatalf("%v: len = %d, want %d", r, len(tensor.Data), 256*256*3)
		}
		for i, v := range tensor.Data {
			if v < 0 || v > 1 {
				t.Fatalf("%v: value %d = %v outside [0, 1]", r, i, v)
			}
		}
	}
}

func TestPreprocess_Layouts(t *testing.T) {
	img := solid(10, 20, color.NRGBA{R: 255, G: 0, B: 51, A: 128})

	nhwc := Preprocess(img, 4, LayoutNHWC)
	for i := 0; i < 16; i++ {
		r, g, b := nhwc.Data[i*3], nhwc.Data[i*3+1], nhwc.Data[i*3+2]
		if r != 1 || g != 0 || b != 0.2 {
			t.Fatalf("nhwc pixel %d = (%v, %v, %v), want (1, 0, 0.2)", i, r, g, b)
		}
	}

	nchw := Preprocess(img, 4, LayoutNCHW)
	if nchw.Shape[1] != 3 {
		t.Fatalf("nchw shape = %v", nchw.Shape)
	}
	for i := 0; i < 16; i++ {
		if nchw.Data[i] != 1 || nchw.Data[16+i] != 0 || nchw.Data[32+i] != 0.2 {
			t.Fatalf("nchw pixel %d = (%v, %v, %v)", i, nchw.Data[i], nchw.Data[16+i], nchw.Data[32+i])
		}
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		scores []float32
		want   int
	}{
		{[]float32{0.9, 0.1}, 0},
		{[]float32{0.1, 0.9}, 1},
		{[]float32{0.5, 0.5}, 0},
		{[]float32{-3, -1, -1}, 1},
		{[]float32{0}, 0},
	}
	for _, tt := range tests {
		got, err := Argmax(tt.scores)
		if err != nil {
			t.Fatalf("Argmax(%v): %v", tt.scores, err)
		}
		if got != tt.want {
			t.Errorf("Argmax(%v) = %d, want %d", tt.scores, got, tt.want)
		}
	}

	nan := float32(0)
	nan = nan / nan
	for _, bad := range [][]float32{nil, {nan, 1}, {1, nan}} {
		if _, err := Argmax(bad); !errors.Is(err, ErrInference) {
			t.Errorf("Argmax(%v) err = %v, want ErrInference", bad, err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		scores []float32
		want   string
	}{
		{[]float32{0.8, 0.2}, "AI-Generated Voice"},
		{[]float32{0.2, 0.8}, "Real Voice"},
		{[]float32{0.5, 0.5}, "AI-Generated Voice"},
	}
	for _, tt := range tests {
		m := &fakeModel{scores: tt.scores, classes: 2}
		c, err := New(m, Config{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := c.Classify(context.Background(), gradient(400, 400))
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Label != tt.want {
			t.Errorf("label = %q, want %q", res.Label, tt.want)
		}
		if m.got == nil || len(m.got.Data) != 256*256*3 {
			t.Errorf("model did not receive a 256x256x3 tensor")
		}
	}
}

func TestClassify_LayoutFromModel(t *testing.T) {
	m := &fakeModel{scores: []float32{1, 0}, classes: 2, layout: LayoutNCHW}
	c, err := New(m, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Classify(context.Background(), gradient(8, 8)); err != nil {
		t.Fatal(err)
	}
	if m.got.Shape[1] != 3 {
		t.Errorf("shape = %v, want NCHW", m.got.Shape)
	}
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		img   image.Image
		want  error
	}{
		{"model failure", &fakeModel{err: errors.New("boom"), classes: 2}, gradient(4, 4), ErrInference},
		{"wrong width", &fakeModel{scores: []float32{1, 2, 3}}, gradient(4, 4), ErrInference},
		{"empty image", &fakeModel{scores: []float32{1, 0}}, image.NewRGBA(image.Rectangle{}), ErrInference},
		{"unavailable", Unavailable(errors.New("no such file")), gradient(4, 4), ErrModelLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.model, Config{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = c.Classify(context.Background(), tt.img)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassify_Canceled(t *testing.T) {
	c, err := New(&fakeModel{scores: []float32{1, 0}}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Classify(ctx, gradient(4, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew_LabelValidation(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		cfg   Config
		ok    bool
	}{
		{"default", &fakeModel{classes: 2}, Config{}, true},
		{"unknown width", &fakeModel{}, Config{}, true},
		{"width mismatch", &fakeModel{classes: 3}, Config{}, false},
		{"declared order", &fakeModel{classes: 2, declared: Labels{"ai-generated voice", "Real Voice"}}, Config{}, true},
		{"inverted order", &fakeModel{classes: 2, declared: Labels{"Real Voice", "AI-Generated Voice"}}, Config{}, false},
		{"custom table", &fakeModel{classes: 3}, Config{Labels: Labels{"a", "b", "c"}}, true},
		{"duplicate", &fakeModel{classes: 2}, Config{Labels: Labels{"a", "a"}}, false},
		{"single", &fakeModel{}, Config{Labels: Labels{"a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.model, tt.cfg)
			if tt.ok && err != nil {
				t.Fatalf("New: %v", err)
			}
			if !tt.ok {
				if !errors.Is(err, ErrModelLoad) || !errors.Is(err, ErrLabelMismatch) {
					t.Fatalf("err = %v, want ErrModelLoad and ErrLabelMismatch", err)
				}
			}
		})
	}
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		in   string
		want Labels
	}{
		{`["AI-Generated Voice", "Real Voice"]`, Labels{"AI-Generated Voice", "Real Voice"}},
		{"fake, real", Labels{"fake", "real"}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := ParseLabels(tt.in)
		if err != nil {
			t.Fatalf("ParseLabels(%q): %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("ParseLabels(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseLabels(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
	if _, err := ParseLabels("[broken"); err == nil {
		t.Error("broken JSON accepted")
	}
}

func TestParseLayout(t *testing.T) {
	for in, want := range map[string]Layout{"": LayoutAuto, "auto": LayoutAuto, "NHWC": LayoutNHWC, "nchw": LayoutNCHW} {
		got, err := ParseLayout(in)
		if err != nil || got != want {
			t.Errorf("ParseLayout(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseLayout("hwc"); err == nil {
		t.Error("hwc accepted")
	}
}

func TestLoadONNX_Missing(t *testing.T) {
	_, err := LoadONNX(ONNXConfig{Path: filepath.Join(t.TempDir(), "model_vgg16.onnx")})
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("err = %v, want ErrModelLoad", err)
	}
}
