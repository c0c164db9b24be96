// Package config loads the melvoice configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/neurlang/melvoice/audio"
	"github.com/neurlang/melvoice/classifier"
	"github.com/neurlang/melvoice/mel"
	"github.com/neurlang/melvoice/plot"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Mel    MelConfig    `yaml:"mel"`
	Plot   PlotConfig   `yaml:"plot"`
	Debug  DebugConfig  `yaml:"debug"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type ModelConfig struct {
	Path       string   `yaml:"path"`
	RuntimeLib string   `yaml:"runtime_library"`
	InputName  string   `yaml:"input_name"`
	OutputName string   `yaml:"output_name"`
	InputSize  int      `yaml:"input_size"`
	Layout     string   `yaml:"layout"`
	Labels     []string `yaml:"labels"`
	LabelsKey  string   `yaml:"labels_metadata_key"`
	Threads    int      `yaml:"threads"`
}

type MelConfig struct {
	NFFT      int     `yaml:"n_fft"`
	HopLength int     `yaml:"hop_length"`
	NumMels   int     `yaml:"n_mels"`
	Fmin      float64 `yaml:"fmin"`
	Fmax      float64 `yaml:"fmax"`
	TopDB     float64 `yaml:"top_db"`
}

type PlotConfig struct {
	Width  float64 `yaml:"width_inches"`
	Height float64 `yaml:"height_inches"`
	DPI    int     `yaml:"dpi"`
}

type DebugConfig struct {
	// ScratchSpectrogram routes the spectrogram through a temporary PNG
	// file, deleted after classification.
	ScratchSpectrogram bool   `yaml:"scratch_spectrogram"`
	ScratchDir         string `yaml:"scratch_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	m := mel.NewMel()
	p := plot.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:              ":8501",
			MaxUploadBytes:    50 << 20,
			AllowedExtensions: []string{"wav", "mp3"},
			MaxConcurrent:     1,
			RequestTimeout:    2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
		},
		Model: ModelConfig{
			Path:      "model_vgg16.onnx",
			InputSize: classifier.DefaultInputSize,
			Layout:    "auto",
			Labels:    classifier.DefaultLabels(),
			LabelsKey: "labels",
		},
		Mel: MelConfig{
			NFFT:      m.Resolut,
			HopLength: m.Window,
			NumMels:   m.NumMels,
			Fmin:      m.MelFmin,
			Fmax:      m.MelFmax,
			TopDB:     m.TopDB,
		},
		Plot: PlotConfig{Width: p.Width, Height: p.Height, DPI: p.DPI},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("MELVOICE_ADDR", c.Server.Addr)
	c.Model.Path = getEnv("MELVOICE_MODEL_PATH", c.Model.Path)
	c.Model.RuntimeLib = getEnv("MELVOICE_ONNXRUNTIME_LIB", c.Model.RuntimeLib)
	c.Log.Level = getEnv("MELVOICE_LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if len(c.Server.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("server.allowed_extensions is empty"))
	}
	for _, ext := range c.Server.AllowedExtensions {
		if audio.ParseFormat(ext) == audio.FormatUnknown {
			errs = append(errs, fmt.Errorf("server.allowed_extensions: unsupported %q", ext))
		}
	}
	if c.Server.MaxConcurrent < 0 {
		errs = append(errs, errors.New("server.max_concurrent must not be negative"))
	}
	if c.Model.InputSize <= 0 {
		errs = append(errs, errors.New("model.input_size must be positive"))
	}
	if _, err := classifier.ParseLayout(c.Model.Layout); err != nil {
		errs = append(errs, fmt.Errorf("model.layout: %w", err))
	}
	if len(c.Model.Labels) < 2 {
		errs = append(errs, errors.New("model.labels needs at least two entries"))
	}
	if c.Mel.NFFT <= 0 || c.Mel.NFFT&(c.Mel.NFFT-1) != 0 {
		errs = append(errs, fmt.Errorf("mel.n_fft %d is not a positive power of two", c.Mel.NFFT))
	}
	if c.Mel.HopLength <= 0 {
		errs = append(errs, errors.New("mel.hop_length must be positive"))
	}
	if c.Mel.NumMels <= 0 {
		errs = append(errs, errors.New("mel.n_mels must be positive"))
	}
	if c.Mel.Fmax != 0 && c.Mel.Fmax <= c.Mel.Fmin {
		errs = append(errs, errors.New("mel.fmax must exceed mel.fmin"))
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 || c.Plot.DPI <= 0 {
		errs = append(errs, errors.New("plot size must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// AllowedFormats returns the upload allow-list as formats.
func (s ServerConfig) AllowedFormats() map[audio.Format]bool {
	out := make(map[audio.Format]bool, len(s.AllowedExtensions))
	for _, ext := range s.AllowedExtensions {
		if f := audio.ParseFormat(ext); f != audio.FormatUnknown {
			out[f] = true
		}
	}
	return out
}

// MelSettings converts the section to a mel.Mel.
func (m MelConfig) MelSettings() *mel.Mel {
	out := mel.NewMel()
	out.Resolut = m.NFFT
	out.Window = m.HopLength
	out.NumMels = m.NumMels
	out.MelFmin = m.Fmin
	out.MelFmax = m.Fmax
	out.TopDB = m.TopDB
	return out
}

// Options converts the section to plot options.
func (p PlotConfig) Options() plot.Options {
	return plot.Options{Width: p.Width, Height: p.Height, DPI: p.DPI}
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger.
func (l LogConfig) NewLogger() *slog.Logger {
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
