package analysis

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/neurlang/melvoice/audio"
	"github.com/neurlang/melvoice/classifier"
)

type stubModel struct {
	scores []float32
	err    error
	calls  int
}

func (m *stubModel) Predict(_ context.Context, in *classifier.Tensor) ([]float32, error) {
	m.calls++
	for _, v := range in.Data {
		if v < 0 || v > 1 {
			return nil, errors.New("pixel outside [0, 1]")
		}
	}
	return m.scores, m.err
}

func (m *stubModel) Classes() int                      { return 2 }
func (m *stubModel) DeclaredLabels() classifier.Labels { return nil }
func (m *stubModel) Close() error                      { return nil }

func newAnalyzer(t *testing.T, m classifier.Model, cfg Config) *Analyzer {
	t.Helper()
	clf, err := classifier.New(m, classifier.Config{})
	if err != nil {
		t.Fatalf("classifier.New: %v", err)
	}
	a, err := New(clf, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func wavClip(t *testing.T, samples []float64, sr int) []byte {
	t.Helper()
	data, err := audio.WAV(&audio.Waveform{Samples: samples, SampleRate: sr}, 16)
	if err != nil {
		t.Fatalf("audio.WAV: %v", err)
	}
	return data
}

func voiceLike(sr int, seconds float64) []float64 {
	out := make([]float64, int(float64(sr)*seconds))
	for i := range out {
		tm := float64(i) / float64(sr)
		out[i] = 0.3*math.Sin(2*math.Pi*220*tm) + 0.1*math.Sin(2*math.Pi*1760*tm)
	}
	return out
}

func pngSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestAnalyze_SilentClip(t *testing.T) {
	m := &stubModel{scores: []float32{0.3, 0.7}}
	a := newAnalyzer(t, m, Config{})

	r, err := a.Analyze(context.Background(), Upload{
		Filename: "silence.wav",
		Data:     wavClip(t, make([]float64, 32000), 16000),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.RequestID == "" {
		t.Error("request id not assigned")
	}
	if r.Samples != 32000 || r.SampleRate != 16000 {
		t.Errorf("samples/rate = %d/%d, want 32000/16000", r.Samples, r.SampleRate)
	}
	if r.Format != audio.FormatWAV {
		t.Errorf("format = %q", r.Format)
	}
	if r.Result == nil || r.Result.Label != "Real Voice" {
		t.Fatalf("result = %+v, want Real Voice", r.Result)
	}
	if w, h := pngSize(t, r.WaveformPNG); w != 400 || h != 400 {
		t.Errorf("waveform png = %dx%d", w, h)
	}
	if w, h := pngSize(t, r.SpectrogramPNG); w != 400 || h != 400 {
		t.Errorf("spectrogram png = %dx%d", w, h)
	}

	var stages []string
	for _, tm := range r.Timings {
		stages = append(stages, tm.Stage)
	}
	want := []string{StageDecode, StageWaveform, StageMel, StageRender, StageClassify}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name      string
		model     classifier.Model
		upload    Upload
		kind      Kind
		plots     bool
		msgPrefix string
	}{
		{
			name:      "empty upload",
			model:     &stubModel{scores: []float32{1, 0}},
			upload:    Upload{Filename: "empty.wav"},
			kind:      KindUpload,
			msgPrefix: "Upload rejected",
		},
		{
			name:      "corrupt file",
			model:     &stubModel{scores: []float32{1, 0}},
			upload:    Upload{Filename: "voice.wav", Data: []byte("definitely not audio data at all")},
			kind:      KindDecode,
			msgPrefix: "Could not decode",
		},
		{
			name:      "model missing",
			model:     classifier.Unavailable(os.ErrNotExist),
			upload:    Upload{Filename: "voice.wav"},
			kind:      KindModelLoad,
			plots:     true,
			msgPrefix: "The voice classification model",
		},
		{
			name:      "inference failure",
			model:     &stubModel{err: errors.New("tensor shape mismatch")},
			upload:    Upload{Filename: "voice.wav"},
			kind:      KindInference,
			plots:     true,
			msgPrefix: "Error processing image: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.plots {
				tt.upload.Data = wavClip(t, voiceLike(8000, 0.5), 8000)
			}
			a := newAnalyzer(t, tt.model, Config{})
			r, err := a.Analyze(context.Background(), tt.upload)
			if err == nil {
				t.Fatal("expected error")
			}
			if r == nil || r.Err != err {
				t.Fatalf("report error not recorded")
			}
			if got := KindOf(err); got != tt.kind {
				t.Errorf("kind = %v, want %v", got, tt.kind)
			}
			if msg := Message(err); !strings.HasPrefix(msg, tt.msgPrefix) {
				t.Errorf("message = %q, want prefix %q", msg, tt.msgPrefix)
			}
			if got := len(r.WaveformPNG) > 0 && len(r.SpectrogramPNG) > 0; got != tt.plots {
				t.Errorf("plots present = %v, want %v", got, tt.plots)
			}
		})
	}
}

func TestAnalyze_Canceled(t *testing.T) {
	a := newAnalyzer(t, &stubModel{scores: []float32{1, 0}}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, Upload{Filename: "a.wav", Data: wavClip(t, voiceLike(8000, 0.1), 8000)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if KindOf(err) != KindUnknown {
		t.Errorf("kind = %v, want unknown", KindOf(err))
	}
}

func TestAnalyze_Scratch(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/scratch", 0o755); err != nil {
		t.Fatal(err)
	}
	m := &stubModel{scores: []float32{0.9, 0.1}}
	a := newAnalyzer(t, m, Config{Scratch: NewScratch(fs, "/scratch")})

	for i := 0; i < 3; i++ {
		r, err := a.Analyze(context.Background(), Upload{
			Filename: "voice.wav",
			Data:     wavClip(t, voiceLike(16000, 0.25), 16000),
		})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if r.Result.Label != "AI-Generated Voice" {
			t.Errorf("label = %q", r.Result.Label)
		}
	}
	if m.calls != 3 {
		t.Errorf("model calls = %d, want 3", m.calls)
	}
	entries, err := afero.ReadDir(fs, "/scratch")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir holds %d files after analysis", len(entries))
	}
}

func TestScratch_RoundTripRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewScratch(fs, "/tmp")
	if _, err := s.RoundTrip([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
	entries, _ := afero.ReadDir(fs, "/tmp")
	if len(entries) != 0 {
		t.Errorf("scratch file left behind after failure")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Uploadf("extension %q not allowed", ".ogg"), `Upload rejected: extension ".ogg" not allowed`},
		{audio.ErrDecode, "Could not decode the audio file. Please upload a valid WAV or MP3 file."},
		{classifier.ErrModelLoad, "The voice classification model is not available. Please try again later."},
		{context.DeadlineExceeded, "Processing took too long and was stopped."},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
