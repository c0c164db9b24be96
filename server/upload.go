package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurlang/melvoice/analysis"
	"github.com/neurlang/melvoice/audio"
)

const formField = "file"

var errTooLarge = errors.New("file too large")

// multipartSlack covers the multipart framing around the file part.
const multipartSlack = 64 << 10

// readUpload pulls the file part out of the request and checks it against
// the allow-list and size cap. Returned errors are KindUpload.
func (s *Server) readUpload(c *gin.Context) (analysis.Upload, audio.Format, error) {
	limit := s.cfg.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

	fh, err := c.FormFile(formField)
	if err != nil {
		if isTooLarge(err) {
			return analysis.Upload{}, "", s.tooLarge()
		}
		return analysis.Upload{}, "", analysis.Uploadf("no audio file provided")
	}
	up := analysis.Upload{Filename: filepath.Base(fh.Filename)}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	format := audio.ParseFormat(ext)
	if !s.cfg.Allowed[format] {
		return up, "", analysis.Uploadf("file type %q is not allowed", ext)
	}
	if fh.Size > limit {
		return up, format, s.tooLarge()
	}
	if fh.Size == 0 {
		return up, format, analysis.Uploadf("file is empty")
	}

	f, err := fh.Open()
	if err != nil {
		return up, format, analysis.Uploadf("open upload: %w", err)
	}
	defer f.Close()
	up.Data, err = io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return up, format, analysis.Uploadf("read upload: %w", err)
	}
	if int64(len(up.Data)) > limit {
		return up, format, s.tooLarge()
	}
	// The decoder follows the content, not the name.
	if sniffed := audio.Sniff(up.Data, up.Filename); sniffed != format && !s.cfg.Allowed[sniffed] {
		return up, format, analysis.Uploadf("%s content in a %s file is not allowed", sniffed, ext)
	}
	return up, format, nil
}

func (s *Server) tooLarge() error {
	return analysis.NewError(analysis.KindUpload,
		fmt.Errorf("%w, the limit is %d bytes", errTooLarge, s.cfg.MaxUploadBytes))
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
