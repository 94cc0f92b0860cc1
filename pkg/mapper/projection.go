// Package mapper converts geographic coordinates to slippy map tiles and pixels
// of the web mercator tile grid.
package mapper

import (
	"errors"
	"fmt"
	"math"

	"github.com/kdudkov/tilecutter/pkg/model"
)

const TileSize = 256

// MaxLatitude is the northern edge of the tile grid, the southern edge is -MaxLatitude.
const MaxLatitude = 85.0511287798066

var ErrInvalidCoordinate = errors.New("invalid coordinate")

func radians(a float64) float64 {
	return a / 180 * math.Pi
}

func deg(a float64) float64 {
	return a / math.Pi * 180
}

// Validate checks that the point can be projected on zoom level zoom.
func Validate(p model.LatLon, zoom int) error {
	if zoom < 0 || zoom > MaxZoom {
		return fmt.Errorf("%w: zoom %d out of range 0-%d", ErrInvalidCoordinate, zoom, MaxZoom)
	}

	if math.IsNaN(p.Lat) || p.Lat < -MaxLatitude || p.Lat > MaxLatitude {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, p.Lat)
	}

	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, p.Lon)
	}

	return nil
}

// PointToTile returns the tile containing p. Points on the edges of the grid
// belong to the border tiles, longitude 180 to the tiles of -180.
func PointToTile(p model.LatLon, zoom int) model.Tile {
	x, y := tileXY(p, zoom)

	t := model.Tile{X: int(math.Floor(x)), Y: int(math.Floor(y)), Z: zoom}.Wrap()
	t.Y = max(0, min(model.NumTiles(zoom)-1, t.Y))

	return t
}

// normalize maps longitude 180 to -180, the same meridian.
func normalize(p model.LatLon) model.LatLon {
	if p.Lon == 180 {
		p.Lon = -180
	}

	return p
}

// tileXY returns fractional tile coordinates of p.
func tileXY(p model.LatLon, zoom int) (float64, float64) {
	p = normalize(p)
	n := math.Exp2(float64(zoom))
	lat := radians(p.Lat)

	x := (p.Lon + 180) / 360 * n
	y := (1 - math.Log(math.Tan(lat)+(1/math.Cos(lat)))/math.Pi) / 2 * n

	return x, y
}

// TileToPoint converts (fractional) tile coordinates to a geographic point.
// The top left corner of tile (x, y) is TileToPoint(x, y), its center TileToPoint(x+0.5, y+0.5).
func TileToPoint(x, y float64, zoom int) model.LatLon {
	n := math.Exp2(float64(zoom))

	return model.LatLon{
		Lat: deg(math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))),
		Lon: x/n*360.0 - 180.0,
	}
}

// TileBoundingBox returns the corners of t in order NW, SW, SE, NE.
func TileBoundingBox(t model.Tile) [4]model.LatLon {
	x, y := float64(t.X), float64(t.Y)

	return [4]model.LatLon{
		TileToPoint(x, y, t.Z),
		TileToPoint(x, y+1, t.Z),
		TileToPoint(x+1, y+1, t.Z),
		TileToPoint(x+1, y, t.Z),
	}
}

// TileCenter returns the center of the tile containing p.
func TileCenter(p model.LatLon, zoom int) model.LatLon {
	t := PointToTile(p, zoom)

	return TileToPoint(float64(t.X)+0.5, float64(t.Y)+0.5, zoom)
}

// PixelXY returns the global pixel coordinates of p.
func PixelXY(p model.LatLon, zoom int) (float64, float64) {
	x, y := tileXY(p, zoom)

	return x * TileSize, y * TileSize
}
