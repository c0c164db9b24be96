package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurlang/melvoice/analysis"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const pageTitle = "A Deep Learning Approach to Analyzing Real vs. AI-Generated Voices Using Mel Spectrogram Analysis"

type page struct {
	Title          string
	RequestID      string
	Filename       string
	AudioURI       template.URL
	WaveformURI    template.URL
	SpectrogramURI template.URL
	Prediction     string
	Error          string
}

// newPage fills the result section of the page from an analysis.
func newPage(r *analysis.Report, err error) *page {
	p := &page{}
	if r != nil {
		p.RequestID = r.RequestID
		p.Filename = r.Filename
		if len(r.Audio) > 0 {
			mime := "audio/wav"
			if r.Format != "" {
				mime = r.Format.MIME()
			}
			p.AudioURI = dataURI(mime, r.Audio)
		}
		p.WaveformURI = dataURI("image/png", r.WaveformPNG)
		p.SpectrogramURI = dataURI("image/png", r.SpectrogramPNG)
		if r.Result != nil {
			p.Prediction = r.Result.Label
		}
	}
	if err != nil {
		p.Error = analysis.Message(err)
	}
	return p
}

func dataURI(mime string, data []byte) template.URL {
	if len(data) == 0 {
		return ""
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func (s *Server) render(c *gin.Context, p *page) {
	p.Title = pageTitle
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, p); err != nil {
		s.log.Error("render page", "request_id", c.GetString("request_id"), "error", err)
		c.String(http.StatusInternalServerError, "Unexpected error: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
