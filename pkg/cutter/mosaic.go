package cutter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
)

// TileSource returns raw encoded tile images, nil data means no tile.
type TileSource interface {
	GetTile(ctx context.Context, z, x, y int) ([]byte, error)
}

// Mosaic is an n x n grid of tiles around the tile containing the target point.
type Mosaic struct {
	Image  *image.NRGBA
	Center model.Tile
	N      int
	// Warnings has one *model.TileError for every tile left blank.
	Warnings []error
}

func (m *Mosaic) Bounds() image.Rectangle {
	return m.Image.Bounds()
}

// TilesNeeded returns the odd number of tiles per side a mosaic needs to cover a
// size x size crop shifted by up to half a tile in any direction.
func TilesNeeded(size int) int {
	const maxCropSize = mapper.TileSize * 2

	if size < maxCropSize {
		return 3
	}

	return 3 + 2*(size/maxCropSize)
}

type MosaicOptions struct {
	// Blank fills the area of missing tiles, black if nil.
	Blank color.Color
	// Concurrency is the number of tiles fetched at once, 1 if not set.
	Concurrency int
}

// BuildMosaic fetches the tiles around the point p and pastes them into one canvas.
// Missing tiles never fail the mosaic, they are left blank and reported in Mosaic.Warnings.
func BuildMosaic(ctx context.Context, src TileSource, p model.LatLon, zoom, size int, opts MosaicOptions) (*Mosaic, error) {
	if err := mapper.Validate(p, zoom); err != nil {
		return nil, err
	}

	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}

	blank := opts.Blank
	if blank == nil {
		blank = color.Black
	}

	center := mapper.PointToTile(p, zoom)
	n := TilesNeeded(size)
	half := (n - 1) / 2

	m := &Mosaic{
		Image:  imaging.New(mapper.TileSize*n, mapper.TileSize*n, blank),
		Center: center,
		N:      n,
	}

	var mx sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Concurrency))

	for x := center.X - half; x <= center.X+half; x++ {
		for y := center.Y - half; y <= center.Y+half; y++ {
			t := model.Tile{X: x, Y: y, Z: zoom}
			at := image.Pt((x-center.X+half)*mapper.TileSize, (y-center.Y+half)*mapper.TileSize)

			g.Go(func() error {
				img, err := loadTile(gctx, src, t)

				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}

					mx.Lock()
					m.Warnings = append(m.Warnings, err)
					mx.Unlock()

					return nil
				}

				// tiles do not overlap, pasting needs no lock; Over keeps the canvas opaque
				draw.Copy(m.Image, at, img, img.Bounds(), draw.Over, nil)

				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m, nil
}

// loadTile fetches and decodes one tile, every failure is returned as *model.TileError.
func loadTile(ctx context.Context, src TileSource, t model.Tile) (image.Image, error) {
	if t.Y < 0 || t.Y >= model.NumTiles(t.Z) {
		return nil, model.Unavailable(t, errors.New("outside of the map"))
	}

	w := t.Wrap()

	data, err := src.GetTile(ctx, w.Z, w.X, w.Y)

	if err != nil {
		return nil, model.Unavailable(t, err)
	}

	if len(data) == 0 {
		return nil, model.Unavailable(t, errors.New("no data"))
	}

	img, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		return nil, model.Unavailable(t, fmt.Errorf("decode: %w", err))
	}

	if b := img.Bounds(); b.Dx() != mapper.TileSize || b.Dy() != mapper.TileSize {
		img = imaging.Resize(img, mapper.TileSize, mapper.TileSize, imaging.Lanczos)
	}

	return img, nil
}
