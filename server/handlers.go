package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurlang/melvoice/analysis"
)

type classifyResponse struct {
	RequestID       string            `json:"request_id"`
	Filename        string            `json:"filename"`
	Format          string            `json:"format"`
	SampleRate      int               `json:"sample_rate"`
	DurationSeconds float64           `json:"duration_seconds"`
	Samples         int               `json:"samples"`
	Label           string            `json:"label"`
	ClassIndex      int               `json:"class_index"`
	Scores          []float32         `json:"scores"`
	WaveformPNG     []byte            `json:"waveform_png"`
	SpectrogramPNG  []byte            `json:"spectrogram_png"`
	Timings         []analysis.Timing `json:"timings"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Kind      string `json:"kind"`
}

type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) index(c *gin.Context) {
	s.render(c, &page{})
}

func (s *Server) process(c *gin.Context) {
	r, err := s.run(c)
	s.render(c, newPage(r, err))
}

func (s *Server) classify(c *gin.Context) {
	r, err := s.run(c)
	if err != nil {
		c.JSON(status(err), errorResponse{
			RequestID: r.RequestID,
			Error:     analysis.Message(err),
			Kind:      analysis.KindOf(err).String(),
		})
		return
	}
	c.JSON(http.StatusOK, classifyResponse{
		RequestID:       r.RequestID,
		Filename:        r.Filename,
		Format:          string(r.Format),
		SampleRate:      r.SampleRate,
		DurationSeconds: r.Duration.Seconds(),
		Samples:         r.Samples,
		Label:           r.Result.Label,
		ClassIndex:      r.Result.Index,
		Scores:          r.Result.Scores,
		WaveformPNG:     r.WaveformPNG,
		SpectrogramPNG:  r.SpectrogramPNG,
		Timings:         r.Timings,
	})
}

func (s *Server) healthz(c *gin.Context) {
	if s.cfg.ModelErr != nil {
		c.JSON(http.StatusOK, healthResponse{
			Status: "degraded",
			Model:  "unavailable",
			Error:  s.cfg.ModelErr.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Model: "ready"})
}
