package mapper

import (
	"fmt"

	"github.com/umahmood/haversine"

	"github.com/kdudkov/tilecutter/pkg/model"
)

// metersPerPixel holds the ground resolution at the equator for zoom levels 0-18.
// https://wiki.openstreetmap.org/wiki/Slippy_map_tilenames#Resolution_and_Scale
var metersPerPixel = [...]float64{
	156543.03,
	78271.52,
	39135.76,
	19567.88,
	9783.94,
	4891.97,
	2445.98,
	1222.99,
	611.50,
	305.75,
	152.87,
	76.437,
	38.219,
	19.109,
	9.5546,
	4.7773,
	2.3887,
	1.1943,
	0.5972,
}

const MaxZoom = len(metersPerPixel) - 1

// MetersPerPixel returns the equatorial ground resolution of zoom level zoom.
func MetersPerPixel(zoom int) (float64, error) {
	if zoom < 0 || zoom > MaxZoom {
		return 0, fmt.Errorf("%w: zoom %d out of range 0-%d", ErrInvalidCoordinate, zoom, MaxZoom)
	}

	return metersPerPixel[zoom], nil
}

// Distance returns the great circle distance between a and b in meters.
func Distance(a, b model.LatLon) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon})

	return km * 1000
}

// CornerToPixelSpan measures the west edge (NW to SW corner) of the tile containing p
// and converts it to pixels with the equatorial resolution of the zoom level.
func CornerToPixelSpan(p model.LatLon, zoom int) (int, error) {
	mpp, err := MetersPerPixel(zoom)
	if err != nil {
		return 0, err
	}

	bbox := TileBoundingBox(PointToTile(p, zoom))

	return int(Distance(bbox[0], bbox[1]) / mpp), nil
}
