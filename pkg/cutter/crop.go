package cutter

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kdudkov/tilecutter/pkg/mapper"
)

var ErrCropOutOfBounds = errors.New("crop window out of mosaic bounds")

// CropWindow returns the size x size window centered on the mosaic and moved against the shift,
// so the point lands in the middle of the window.
func CropWindow(bounds image.Rectangle, shift mapper.PixelOffset, size int) image.Rectangle {
	left := bounds.Min.X + (bounds.Dx()-size)/2 - shift.DX
	top := bounds.Min.Y + (bounds.Dy()-size)/2 - shift.DY

	return image.Rect(left, top, left+size, top+size)
}

// Crop cuts the window for shift out of the mosaic.
func Crop(m *Mosaic, shift mapper.PixelOffset, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}

	w := CropWindow(m.Bounds(), shift, size)

	if !w.In(m.Bounds()) {
		return nil, fmt.Errorf("%w: window %v, mosaic %v", ErrCropOutOfBounds, w, m.Bounds())
	}

	return imaging.Crop(m.Image, w), nil
}
