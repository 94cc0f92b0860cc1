package cutter

import (
	"github.com/paulmach/orb/maptile"

	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
	"github.com/kdudkov/tilecutter/pkg/points"
)

// MosaicTiles lists the existing tiles the mosaic of point p requests, x wrapped around the antimeridian.
func MosaicTiles(p model.LatLon, zoom, size int) []model.Tile {
	center := mapper.PointToTile(p, zoom)
	half := (TilesNeeded(size) - 1) / 2

	var res []model.Tile

	for x := center.X - half; x <= center.X+half; x++ {
		for y := center.Y - half; y <= center.Y+half; y++ {
			t := model.Tile{X: x, Y: y, Z: zoom}.Wrap()
			if t.Valid() {
				res = append(res, t)
			}
		}
	}

	return res
}

// TileSet collects the tiles needed by all valid records. Invalid points are skipped.
func TileSet(records []points.Record, zoom, size int) maptile.Set {
	set := make(maptile.Set)

	for _, r := range records {
		if mapper.Validate(r.Point, zoom) != nil {
			continue
		}

		for _, t := range MosaicTiles(r.Point, zoom, size) {
			set[t.Maptile()] = true
		}
	}

	return set
}
