package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neurlang/melvoice/audio"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "melvoice.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.MaxUploadBytes != 50<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	allowed := cfg.Server.AllowedFormats()
	if !allowed[audio.FormatWAV] || !allowed[audio.FormatMP3] || allowed[audio.FormatFLAC] {
		t.Errorf("allowed formats = %v, want wav and mp3", allowed)
	}
	if got := cfg.Model.Labels; len(got) != 2 || got[0] != "AI-Generated Voice" || got[1] != "Real Voice" {
		t.Errorf("labels = %v", got)
	}
	m := cfg.Mel.MelSettings()
	if m.Resolut != 2048 || m.Window != 512 || m.NumMels != 128 || m.TopDB != 80 {
		t.Errorf("mel settings = %+v", m)
	}
	if w, h := cfg.Plot.Options().Pixels(); w != 400 || h != 400 {
		t.Errorf("plot pixels = %dx%d", w, h)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  addr: "127.0.0.1:9000"
  max_upload_bytes: 1048576
  allowed_extensions: [wav, mp3, flac]
  request_timeout: 30s
model:
  path: /models/voice.onnx
  layout: nchw
  labels: ["Real Voice", "AI-Generated Voice"]
mel:
  n_mels: 64
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if !cfg.Server.AllowedFormats()[audio.FormatFLAC] {
		t.Error("flac not allowed")
	}
	if cfg.Model.Labels[0] != "Real Voice" {
		t.Errorf("labels = %v", cfg.Model.Labels)
	}
	if cfg.Mel.NumMels != 64 || cfg.Mel.NFFT != 2048 {
		t.Errorf("mel = %+v, want n_mels overridden and n_fft kept", cfg.Mel)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout default lost: %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MELVOICE_ADDR", ":7000")
	t.Setenv("MELVOICE_MODEL_PATH", "/srv/model.onnx")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Model.Path != "/srv/model.onnx" {
		t.Errorf("env overrides not applied: %q %q", cfg.Server.Addr, cfg.Model.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"extension", "server:\n  allowed_extensions: [ogg]\n", "unsupported"},
		{"fft", "mel:\n  n_fft: 1000\n", "power of two"},
		{"layout", "model:\n  layout: hwc\n", "model.layout"},
		{"labels", "model:\n  labels: [only]\n", "model.labels"},
		{"log format", "log:\n  format: xml\n", "log.format"},
		{"log level", "log:\n  level: loud\n", "log.level"},
		{"syntax", "server: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
