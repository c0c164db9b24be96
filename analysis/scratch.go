package analysis

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/spf13/afero"
)

// Scratch passes an encoded image through a temporary file. Each call uses
// its own uniquely named file, which is removed before the call returns.
type Scratch struct {
	fs  afero.Fs
	dir string
}

// NewScratch creates a Scratch writing under dir on fs. An empty dir uses
// the system temporary directory.
func NewScratch(fs afero.Fs, dir string) *Scratch {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Scratch{fs: fs, dir: dir}
}

// RoundTrip writes data, closes the file, reads it back and decodes it.
func (s *Scratch) RoundTrip(data []byte) (img image.Image, err error) {
	f, err := afero.TempFile(s.fs, s.dir, "spectrogram-*.png")
	if err != nil {
		return nil, fmt.Errorf("scratch: create: %w", err)
	}
	name := f.Name()
	defer func() {
		if rerr := s.fs.Remove(name); rerr != nil && err == nil {
			err = fmt.Errorf("scratch: remove: %w", rerr)
		}
	}()

	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, fmt.Errorf("scratch: write: %w", werr)
	}

	raw, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, fmt.Errorf("scratch: read: %w", err)
	}
	img, err = png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("scratch: decode: %w", err)
	}
	return img, nil
}
