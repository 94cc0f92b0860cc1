package mapper

import (
	"fmt"

	"github.com/kdudkov/tilecutter/pkg/model"
)

// PixelOffset is a signed displacement in image pixels, x grows to the east, y to the south.
type PixelOffset struct {
	DX int
	DY int
}

func (o PixelOffset) String() string {
	return fmt.Sprintf("(%d,%d)", o.DX, o.DY)
}

// ComputeShift returns the offset from p to the center of its tile: the tile center
// position minus the point position, in pixels. A point west of the center gives DX > 0,
// a point south of it DY < 0.
//
// Each axis is measured along a path changing only that coordinate. The pixel scale
// comes from the real height of the tile.
func ComputeShift(p model.LatLon, zoom int) (PixelOffset, error) {
	if err := Validate(p, zoom); err != nil {
		return PixelOffset{}, err
	}

	p = normalize(p)
	mpp, _ := MetersPerPixel(zoom)

	span, err := CornerToPixelSpan(p, zoom)
	if err != nil {
		return PixelOffset{}, err
	}

	if span <= 0 {
		return PixelOffset{}, fmt.Errorf("%w: degenerate tile at %s zoom %d", ErrInvalidCoordinate, p, zoom)
	}

	mp := float64(TileSize) / float64(span)
	c := TileCenter(p, zoom)

	toPx := func(a, b model.LatLon) int {
		return int(Distance(a, b) / mpp * mp)
	}

	var res PixelOffset

	dx := toPx(model.LatLon{Lat: c.Lat, Lon: p.Lon}, c)
	if c.Lon > p.Lon {
		res.DX = dx
	} else {
		res.DX = -dx
	}

	dy := toPx(c, model.LatLon{Lat: p.Lat, Lon: c.Lon})
	if c.Lat > p.Lat {
		res.DY = -dy
	} else {
		res.DY = dy
	}

	res.DX = clamp(res.DX, TileSize/2)
	res.DY = clamp(res.DY, TileSize/2)

	return res, nil
}

func clamp(v, limit int) int {
	return max(-limit, min(limit, v))
}
