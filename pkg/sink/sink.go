// Package sink stores cut images on disk.
package sink

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrBadID = errors.New("invalid id")

// Dir writes every image to <dir>/<id>.<ext>.
type Dir struct {
	dir     string
	format  imaging.Format
	ext     string
	quality int
}

// NewDir creates the directory if needed. Format is "jpg" (the default) or "png",
// quality applies to jpeg only.
func NewDir(dir, format string, quality int) (*Dir, error) {
	if format == "" {
		format = "jpg"
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, err
	}

	if f != imaging.JPEG && f != imaging.PNG {
		return nil, fmt.Errorf("unsupported output format %s", format)
	}

	if quality <= 0 || quality > 100 {
		quality = 80
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Dir{
		dir:     dir,
		format:  f,
		ext:     strings.ToLower(strings.TrimPrefix(format, ".")),
		quality: quality,
	}, nil
}

// Path returns the file name of the image with the given id.
func (d *Dir) Path(id string) string {
	return filepath.Join(d.dir, id+"."+d.ext)
}

// Put encodes img to a temp file and renames it, a crash never leaves a truncated image.
func (d *Dir) Put(id string, img image.Image) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrBadID, id)
	}

	fl, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}

	defer os.Remove(fl.Name())

	if err := imaging.Encode(fl, img, d.format, imaging.JPEGQuality(d.quality)); err != nil {
		fl.Close()
		return err
	}

	if err := fl.Close(); err != nil {
		return err
	}

	return os.Rename(fl.Name(), d.Path(id))
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}

	return !strings.ContainsAny(id, `/\`+"\x00")
}
