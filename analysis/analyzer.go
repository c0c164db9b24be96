package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/neurlang/melvoice/audio"
	"github.com/neurlang/melvoice/classifier"
	"github.com/neurlang/melvoice/mel"
	"github.com/neurlang/melvoice/plot"
)

// Pipeline stages, in execution order.
const (
	StageDecode   = "decode"
	StageWaveform = "waveform"
	StageMel      = "melspectrogram"
	StageRender   = "render"
	StageClassify = "classify"
)

// Config controls the pipeline.
type Config struct {
	Mel  *mel.Mel
	Plot plot.Options
	// Scratch, when set, routes the spectrogram image through a temporary
	// file before classification instead of handing it over in memory.
	Scratch *Scratch
	Logger  *slog.Logger
}

// Upload is one submitted clip.
type Upload struct {
	RequestID string
	Filename  string
	Data      []byte
}

// Timing is the wall time of one stage.
type Timing struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// Report collects everything produced for one upload.
type Report struct {
	RequestID  string
	Filename   string
	Format     audio.Format
	Audio      []byte
	SampleRate int
	Samples    int
	Channels   int
	Duration   time.Duration

	WaveformPNG    []byte
	SpectrogramPNG []byte

	Result  *classifier.Result
	Err     error
	Timings []Timing
}

// Analyzer runs uploads through the pipeline with a shared Classifier.
type Analyzer struct {
	clf     *classifier.Classifier
	mel     *mel.Mel
	plot    plot.Options
	scratch *Scratch
	log     *slog.Logger
}

// New creates an Analyzer.
func New(clf *classifier.Classifier, cfg Config) (*Analyzer, error) {
	if clf == nil {
		return nil, errors.New("analysis: classifier is nil")
	}
	if cfg.Mel == nil {
		cfg.Mel = mel.NewMel()
	}
	if cfg.Plot == (plot.Options{}) {
		cfg.Plot = plot.DefaultOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Analyzer{
		clf:     clf,
		mel:     cfg.Mel,
		plot:    cfg.Plot,
		scratch: cfg.Scratch,
		log:     cfg.Logger,
	}, nil
}

// Analyze processes up. The returned Report is never nil; when err is not
// nil it is also stored in Report.Err and carries a Kind.
func (a *Analyzer) Analyze(ctx context.Context, up Upload) (*Report, error) {
	if up.RequestID == "" {
		up.RequestID = uuid.NewString()
	}
	r := &Report{
		RequestID: up.RequestID,
		Filename:  up.Filename,
		Audio:     up.Data,
	}
	log := a.log.With("request_id", up.RequestID, "filename", up.Filename)

	err := a.run(ctx, up, r, log)
	if err != nil {
		err = classify(err)
		r.Err = err
		log.Warn("analysis failed", "kind", KindOf(err).String(), "error", err)
		return r, err
	}
	log.Info("analysis done",
		"label", r.Result.Label,
		"sample_rate", r.SampleRate,
		"duration", r.Duration,
	)
	return r, nil
}

func (a *Analyzer) run(ctx context.Context, up Upload, r *Report, log *slog.Logger) error {
	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := fn()
		d := time.Since(start)
		r.Timings = append(r.Timings, Timing{Stage: name, Duration: d})
		log.Debug("stage", "stage", name, "took", d, "error", err)
		return err
	}

	if len(up.Data) == 0 {
		return Uploadf("file %q is empty", up.Filename)
	}

	var wf *audio.Waveform
	err := stage(StageDecode, func() (err error) {
		wf, r.Format, err = audio.DecodeBytes(up.Data, up.Filename)
		if err != nil {
			return NewError(KindDecode, err)
		}
		r.SampleRate = wf.SampleRate
		r.Samples = len(wf.Samples)
		r.Channels = wf.Channels
		r.Duration = wf.Duration()
		return nil
	})
	if err != nil {
		return err
	}

	err = stage(StageWaveform, func() error {
		fig, err := plot.Waveform(wf, a.plot)
		if err != nil {
			return err
		}
		r.WaveformPNG, err = fig.PNG()
		return err
	})
	if err != nil {
		return err
	}

	var spec *mel.Spectrogram
	err = stage(StageMel, func() error {
		power, err := a.mel.ToMel(wf.Samples, wf.SampleRate)
		if err != nil {
			return err
		}
		spec = power.PowerToDB(a.mel.Amin, a.mel.TopDB)
		return nil
	})
	if err != nil {
		return err
	}

	var img image.Image
	err = stage(StageRender, func() error {
		fig, err := plot.MelSpectrogram(spec, a.plot)
		if err != nil {
			return err
		}
		img = fig.Image()
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode spectrogram: %w", err)
		}
		r.SpectrogramPNG = buf.Bytes()
		if a.scratch != nil {
			img, err = a.scratch.RoundTrip(r.SpectrogramPNG)
		}
		return err
	})
	if err != nil {
		return err
	}

	return stage(StageClassify, func() (err error) {
		r.Result, err = a.clf.Classify(ctx, img)
		return err
	})
}
