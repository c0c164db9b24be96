package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/neurlang/melvoice/analysis"
	"github.com/neurlang/melvoice/classifier"
	"github.com/neurlang/melvoice/config"
)

// pipeline is the analyzer plus the model state it was built with.
type pipeline struct {
	analyzer *analysis.Analyzer
	clf      *classifier.Classifier
	// modelErr is the model load failure when the analyzer runs on the
	// unavailable stand-in.
	modelErr error
}

func (p *pipeline) Close() error {
	return p.clf.Close()
}

// newPipeline loads the model once and builds the analyzer. With strict
// set, a model that cannot be loaded is an error; otherwise the analyzer
// falls back to classifier.Unavailable and reports the failure per request.
func newPipeline(cfg *config.Config, log *slog.Logger, strict bool) (*pipeline, error) {
	layout, err := classifier.ParseLayout(cfg.Model.Layout)
	if err != nil {
		return nil, err
	}
	ccfg := classifier.Config{
		Labels:    classifier.Labels(cfg.Model.Labels),
		InputSize: cfg.Model.InputSize,
		Layout:    layout,
	}

	p := &pipeline{}
	var m classifier.Model
	m, p.modelErr = classifier.LoadONNX(classifier.ONNXConfig{
		Path:        cfg.Model.Path,
		LibraryPath: cfg.Model.RuntimeLib,
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
		LabelsKey:   cfg.Model.LabelsKey,
		Classes:     len(cfg.Model.Labels),
		Threads:     cfg.Model.Threads,
	})
	if p.modelErr == nil {
		p.clf, p.modelErr = classifier.New(m, ccfg)
		if p.modelErr != nil {
			m.Close()
		}
	}
	if p.modelErr != nil {
		if strict {
			return nil, p.modelErr
		}
		log.Error("model unavailable, requests will fail until restart",
			"path", cfg.Model.Path, "error", p.modelErr)
		p.clf, err = classifier.New(classifier.Unavailable(p.modelErr), ccfg)
		if err != nil {
			return nil, errors.Join(p.modelErr, err)
		}
	} else {
		log.Info("model loaded", "path", cfg.Model.Path, "labels", cfg.Model.Labels)
	}

	var scratch *analysis.Scratch
	if cfg.Debug.ScratchSpectrogram {
		scratch = analysis.NewScratch(afero.NewOsFs(), cfg.Debug.ScratchDir)
	}
	p.analyzer, err = analysis.New(p.clf, analysis.Config{
		Mel:     cfg.Mel.MelSettings(),
		Plot:    cfg.Plot.Options(),
		Scratch: scratch,
		Logger:  log,
	})
	if err != nil {
		p.clf.Close()
		return nil, err
	}
	return p, nil
}
