package cutter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
)

// fakeSource serves uniform png tiles colored by their index.
type fakeSource struct {
	mx    sync.Mutex
	calls map[model.Tile]int
	fail  map[model.Tile]bool
	empty map[model.Tile]bool
	size  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[model.Tile]int),
		fail:  make(map[model.Tile]bool),
		empty: make(map[model.Tile]bool),
		size:  mapper.TileSize,
	}
}

func tileColor(x, y int) color.NRGBA {
	return color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255}
}

func (s *fakeSource) GetTile(_ context.Context, z, x, y int) ([]byte, error) {
	t := model.Tile{X: x, Y: y, Z: z}

	s.mx.Lock()
	s.calls[t]++
	fail, empty := s.fail[t], s.empty[t]
	s.mx.Unlock()

	if fail {
		return nil, errors.New("connection refused")
	}

	if empty {
		return nil, nil
	}

	img := imaging.New(s.size, s.size, tileColor(x, y))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *fakeSource) totalCalls() int {
	s.mx.Lock()
	defer s.mx.Unlock()

	n := 0
	for _, c := range s.calls {
		n += c
	}

	return n
}

func assertColor(t *testing.T, img image.Image, x, y int, c color.Color) {
	t.Helper()

	r1, g1, b1, a1 := img.At(x, y).RGBA()
	r2, g2, b2, a2 := c.RGBA()
	assert.Equal(t, [4]uint32{r2, g2, b2, a2}, [4]uint32{r1, g1, b1, a1}, "pixel %d,%d", x, y)
}

var prague = model.LatLon{Lat: 50.08, Lon: 14.42}

func TestTilesNeeded(t *testing.T) {
	tests := []struct {
		size, n int
	}{
		{1, 3},
		{256, 3},
		{511, 3},
		{512, 5},
		{1023, 5},
		{1024, 7},
		{1535, 7},
		{1536, 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.n, TilesNeeded(tt.size), "size %d", tt.size)
	}

	for size := 1; size < 5000; size += 7 {
		n := TilesNeeded(size)
		assert.GreaterOrEqual(t, n, 3)
		assert.Equal(t, 1, n%2)
		// the crop shifted by half a tile still fits
		assert.GreaterOrEqual(t, n*mapper.TileSize, size+mapper.TileSize)
	}
}

func TestBuildMosaicSize(t *testing.T) {
	for _, size := range []int{100, 511, 512, 1024} {
		src := newFakeSource()
		m, err := BuildMosaic(context.Background(), src, prague, 15, size, MosaicOptions{})
		require.NoError(t, err)

		n := TilesNeeded(size)
		assert.Equal(t, n, m.N)
		assert.Equal(t, image.Rect(0, 0, n*256, n*256), m.Bounds())
		assert.Equal(t, n*n, src.totalCalls())
		assert.Empty(t, m.Warnings)
	}
}

func TestBuildMosaicLayout(t *testing.T) {
	src := newFakeSource()
	m, err := BuildMosaic(context.Background(), src, prague, 15, 512, MosaicOptions{Concurrency: 4})
	require.NoError(t, err)

	center := mapper.PointToTile(prague, 15)
	assert.Equal(t, center, m.Center)

	half := (m.N - 1) / 2
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			x, y := center.X-half+i, center.Y-half+j
			assertColor(t, m.Image, i*256+10, j*256+10, tileColor(x, y))
			assertColor(t, m.Image, i*256+255, j*256+255, tileColor(x, y))
		}
	}
}

func TestBuildMosaicBlankTile(t *testing.T) {
	src := newFakeSource()
	center := mapper.PointToTile(prague, 15)
	failed := model.Tile{X: center.X + 1, Y: center.Y - 1, Z: 15}
	src.fail[failed] = true
	src.empty[model.Tile{X: center.X - 1, Y: center.Y, Z: 15}] = true

	m, err := BuildMosaic(context.Background(), src, prague, 15, 300, MosaicOptions{})
	require.NoError(t, err)

	require.Len(t, m.Warnings, 2)
	for _, w := range m.Warnings {
		assert.ErrorIs(t, w, model.ErrTileUnavailable)
	}

	var te *model.TileError
	require.True(t, errors.As(m.Warnings[0], &te))

	// failed tile is the top right one, empty one the middle left
	assertColor(t, m.Image, 2*256+100, 100, color.Black)
	assertColor(t, m.Image, 100, 256+100, color.Black)
	assertColor(t, m.Image, 256+100, 256+100, tileColor(center.X, center.Y))
	assertColor(t, m.Image, 100, 100, tileColor(center.X-1, center.Y-1))

	img, err := Crop(m, shiftAt(t, prague), 300)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())
}

func TestBuildMosaicBlankColor(t *testing.T) {
	src := newFakeSource()
	center := mapper.PointToTile(prague, 15)
	src.fail[center] = true

	blank := color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	m, err := BuildMosaic(context.Background(), src, prague, 15, 100, MosaicOptions{Blank: blank})
	require.NoError(t, err)

	assertColor(t, m.Image, 256+128, 256+128, blank)
}

func TestBuildMosaicEdgesOfMap(t *testing.T) {
	src := newFakeSource()

	// zoom 0 has a single tile, neighbours above and below do not exist,
	// left and right wrap around to the same tile
	m, err := BuildMosaic(context.Background(), src, model.LatLon{Lat: 10, Lon: 10}, 0, 200, MosaicOptions{})
	require.NoError(t, err)

	assert.Len(t, m.Warnings, 6)
	assert.Equal(t, 3, src.calls[model.Tile{X: 0, Y: 0, Z: 0}])
	assertColor(t, m.Image, 10, 256+10, tileColor(0, 0))
	assertColor(t, m.Image, 10, 10, color.Black)
}

func TestBuildMosaicResamplesLargeTiles(t *testing.T) {
	src := newFakeSource()
	src.size = 512

	m, err := BuildMosaic(context.Background(), src, prague, 15, 100, MosaicOptions{})
	require.NoError(t, err)
	assert.Empty(t, m.Warnings)
	assert.Equal(t, 768, m.Bounds().Dx())
}

func TestBuildMosaicInvalid(t *testing.T) {
	_, err := BuildMosaic(context.Background(), newFakeSource(), model.LatLon{Lat: 89, Lon: 0}, 15, 512, MosaicOptions{})
	assert.ErrorIs(t, err, mapper.ErrInvalidCoordinate)

	_, err = BuildMosaic(context.Background(), newFakeSource(), prague, 15, 0, MosaicOptions{})
	assert.Error(t, err)
}

func TestBuildMosaicCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &ctxSource{}
	_, err := BuildMosaic(ctx, src, prague, 15, 512, MosaicOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

type ctxSource struct{}

func (ctxSource) GetTile(ctx context.Context, _, _, _ int) ([]byte, error) {
	return nil, ctx.Err()
}

// shiftAt computes the shift of p at zoom 15 or fails the test.
func shiftAt(t *testing.T, p model.LatLon) mapper.PixelOffset {
	t.Helper()

	shift, err := mapper.ComputeShift(p, 15)
	require.NoError(t, err)

	return shift
}
