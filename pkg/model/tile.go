package model

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// Tile is a slippy map tile index, 0 <= X,Y < 2^Z.
type Tile struct {
	X int
	Y int
	Z int
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// NumTiles returns the number of tiles per axis on zoom level z.
func NumTiles(z int) int {
	if z < 0 || z > 30 {
		return 0
	}

	return 1 << z
}

// Valid reports whether the tile exists on its zoom level.
func (t Tile) Valid() bool {
	n := NumTiles(t.Z)

	return n > 0 && t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// Wrap wraps X around the antimeridian. Y is left untouched.
func (t Tile) Wrap() Tile {
	n := NumTiles(t.Z)
	if n == 0 {
		return t
	}

	t.X %= n
	if t.X < 0 {
		t.X += n
	}

	return t
}

// Maptile converts a valid tile to the orb representation.
func (t Tile) Maptile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
}

func FromMaptile(m maptile.Tile) Tile {
	return Tile{X: int(m.X), Y: int(m.Y), Z: int(m.Z)}
}

// InRect reports whether t lies in the rectangle spanned by t1 (top left) and t2 (bottom right),
// tiles may be on different zoom levels.
func (t Tile) InRect(t1, t2 Tile) bool {
	x1 := t.X * (1 << (19 - t.Z))
	y1 := t.Y * (1 << (19 - t.Z))

	xmin := t1.X * (1 << (19 - t1.Z))
	xmax := (t2.X + 1) * (1 << (19 - t2.Z))

	ymin := t1.Y * (1 << (19 - t1.Z))
	ymax := (t2.Y + 1) * (1 << (19 - t2.Z))

	return x1 >= xmin && x1 < xmax && y1 >= ymin && y1 < ymax
}
