// Package cutter builds tile mosaics around geographic points and cuts
// fixed size images centered on them.
package cutter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
)

var ErrIncomplete = errors.New("mosaic is incomplete")

type Options struct {
	Zoom int
	Size int
	// Blank is the color of missing tiles, black if nil.
	Blank color.Color
	// TileConcurrency is the number of tiles of one mosaic fetched in parallel.
	TileConcurrency int
	// Strict fails the point when any of its tiles is unavailable.
	Strict bool
}

func (o Options) Validate() error {
	if _, err := mapper.MetersPerPixel(o.Zoom); err != nil {
		return err
	}

	if o.Size <= 0 {
		return fmt.Errorf("invalid size %d", o.Size)
	}

	return nil
}

// Result is the image cut for one point.
type Result struct {
	ID       string
	Point    model.LatLon
	Tile     model.Tile
	Shift    mapper.PixelOffset
	Image    *image.NRGBA
	Warnings []error
}

type Cutter struct {
	src    TileSource
	opts   Options
	logger *slog.Logger
}

func New(src TileSource, opts Options, logger *slog.Logger) (*Cutter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Cutter{src: src, opts: opts, logger: logger}, nil
}

func (c *Cutter) Options() Options {
	return c.opts
}

// Cut returns the image for point p. Unavailable tiles are returned as warnings
// unless the cutter is strict.
func (c *Cutter) Cut(ctx context.Context, id string, p model.LatLon) (*Result, error) {
	shift, err := mapper.ComputeShift(p, c.opts.Zoom)
	if err != nil {
		return nil, err
	}

	m, err := BuildMosaic(ctx, c.src, p, c.opts.Zoom, c.opts.Size, MosaicOptions{
		Blank:       c.opts.Blank,
		Concurrency: c.opts.TileConcurrency,
	})
	if err != nil {
		return nil, err
	}

	logger := c.logger.With("id", id, "tile", m.Center.String())

	for _, w := range m.Warnings {
		logger.Warn("tile is blank", "error", w)
	}

	if c.opts.Strict && len(m.Warnings) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, errors.Join(m.Warnings...))
	}

	img, err := Crop(m, shift, c.opts.Size)
	if err != nil {
		return nil, err
	}

	logger.Debug("cut", "shift", shift.String(), "tiles", m.N*m.N)

	return &Result{
		ID:       id,
		Point:    p,
		Tile:     m.Center,
		Shift:    shift,
		Image:    img,
		Warnings: m.Warnings,
	}, nil
}
