package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrModelLoad is wrapped by errors caused by a missing, corrupt or
	// mismatched model.
	ErrModelLoad = errors.New("classifier: model unavailable")

	// ErrInference is wrapped by errors raised while preprocessing an
	// image or running the model.
	ErrInference = errors.New("classifier: inference failed")
)

// DefaultInputSize is the side of the square raster fed to the model.
const DefaultInputSize = 256

// Model runs a forward pass over a preprocessed batch of one image.
// Implementations must be safe for concurrent Predict calls.
type Model interface {
	// Predict returns one score per class.
	Predict(ctx context.Context, in *Tensor) ([]float32, error)

	// Classes returns the width of the score vector, or 0 when the model
	// does not declare it.
	Classes() int

	// DeclaredLabels returns the class names stored in the model artifact,
	// or nil.
	DeclaredLabels() Labels

	Close() error
}

// Config controls preprocessing and label mapping.
type Config struct {
	Labels    Labels
	InputSize int
	Layout    Layout
}

// Result is the outcome of one classification.
type Result struct {
	Label  string    `json:"label"`
	Index  int       `json:"class_index"`
	Scores []float32 `json:"scores"`
}

// Classifier maps images to labels with a shared Model.
type Classifier struct {
	model  Model
	labels Labels
	size   int
	layout Layout
}

// New checks cfg against m and returns a Classifier. Label mismatches are
// reported as ErrModelLoad.
func New(m Model, cfg Config) (*Classifier, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model is nil", ErrModelLoad)
	}
	if cfg.Labels == nil {
		cfg.Labels = DefaultLabels()
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	if cfg.Layout == LayoutAuto {
		cfg.Layout = LayoutNHWC
		if h, ok := m.(interface{ Layout() Layout }); ok && h.Layout() != LayoutAuto {
			cfg.Layout = h.Layout()
		}
	}
	if err := cfg.Labels.Validate(m.Classes(), m.DeclaredLabels()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	return &Classifier{
		model:  m,
		labels: cfg.Labels,
		size:   cfg.InputSize,
		layout: cfg.Layout,
	}, nil
}

// Labels returns the label table in class order.
func (c *Classifier) Labels() Labels {
	return c.labels
}

// Classify preprocesses img and runs the model over it.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInference)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, err := c.model.Predict(ctx, Preprocess(img, c.size, c.layout))
	if err != nil {
		if errors.Is(err, ErrModelLoad) || errors.Is(err, ErrInference) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(scores) != len(c.labels) {
		return nil, fmt.Errorf("%w: model returned %d scores for %d labels", ErrInference, len(scores), len(c.labels))
	}

	i, err := Argmax(scores)
	if err != nil {
		return nil, err
	}
	name, _ := c.labels.Name(i)
	return &Result{Label: name, Index: i, Scores: scores}, nil
}

// Close releases the model.
func (c *Classifier) Close() error {
	return c.model.Close()
}

// Argmax returns the index of the largest score; ties go to the lowest
// index. Empty or non-finite vectors are an inference error.
func Argmax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("%w: empty score vector", ErrInference)
	}
	best := 0
	for i, s := range scores {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return 0, fmt.Errorf("%w: score %d is %v", ErrInference, i, s)
		}
		if s > scores[best] {
			best = i
		}
	}
	return best, nil
}

// Unavailable returns a Model that fails every prediction with ErrModelLoad.
// It stands in for a model that could not be loaded at startup so requests
// report the problem instead of crashing the process.
func Unavailable(cause error) Model {
	return unavailable{cause: cause}
}

type unavailable struct {
	cause error
}

func (u unavailable) Predict(context.Context, *Tensor) ([]float32, error) {
	if errors.Is(u.cause, ErrModelLoad) {
		return nil, u.cause
	}
	return nil, fmt.Errorf("%w: %v", ErrModelLoad, u.cause)
}

func (unavailable) Classes() int           { return 0 }
func (unavailable) DeclaredLabels() Labels { return nil }
func (unavailable) Close() error           { return nil }
