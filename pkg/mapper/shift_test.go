package mapper

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/tilecutter/pkg/model"
)

func TestShiftAtTileCenter(t *testing.T) {
	for z := 0; z <= MaxZoom; z++ {
		n := 1 << z
		for _, xy := range [][2]int{{0, 0}, {n / 2, n / 3}, {n - 1, n - 1}} {
			c := TileToPoint(float64(xy[0])+0.5, float64(xy[1])+0.5, z)
			if Validate(c, z) != nil {
				continue
			}

			shift, err := ComputeShift(c, z)
			require.NoError(t, err)
			assert.Equal(t, PixelOffset{}, shift, "zoom %d tile %v", z, xy)
		}
	}
}

func TestShiftKnownPoints(t *testing.T) {
	tests := []struct {
		name  string
		p     model.LatLon
		shift PixelOffset
	}{
		// east of the tile center and south of it
		{"prague", model.LatLon{Lat: 50.08, Lon: 14.42}, PixelOffset{DX: -10, DY: -66}},
		{"east north", model.LatLon{Lat: 50.0, Lon: 14.5}, PixelOffset{DX: -82, DY: 103}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shift, err := ComputeShift(tt.p, 15)
			require.NoError(t, err)
			assert.InDelta(t, tt.shift.DX, shift.DX, 1)
			assert.InDelta(t, tt.shift.DY, shift.DY, 1)
		})
	}
}

func TestShiftSigns(t *testing.T) {
	const z = 15
	tile := PointToTile(model.LatLon{Lat: 50.0, Lon: 14.5}, z)
	x, y := float64(tile.X), float64(tile.Y)

	east := TileToPoint(x+0.75, y+0.5, z)
	west := TileToPoint(x+0.25, y+0.5, z)
	north := TileToPoint(x+0.5, y+0.25, z)
	south := TileToPoint(x+0.5, y+0.75, z)

	se, err := ComputeShift(east, z)
	require.NoError(t, err)
	sw, err := ComputeShift(west, z)
	require.NoError(t, err)
	sn, err := ComputeShift(north, z)
	require.NoError(t, err)
	ss, err := ComputeShift(south, z)
	require.NoError(t, err)

	assert.Less(t, se.DX, 0)
	assert.Greater(t, sw.DX, 0)
	assert.Equal(t, -se.DX, sw.DX)
	assert.Equal(t, 0, se.DY)

	assert.Greater(t, sn.DY, 0)
	assert.Less(t, ss.DY, 0)
	assert.Equal(t, 0, sn.DX)

	// a quarter tile is 64 px
	assert.InDelta(t, 64, sw.DX, 2)
	assert.InDelta(t, 64, sn.DY, 2)
	assert.InDelta(t, -64, ss.DY, 2)
}

// The shift must equal the tile center pixel minus the point pixel.
func TestShiftMatchesPixelGrid(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))

	for _, z := range []int{12, 15, 18} {
		for i := 0; i < 500; i++ {
			p := model.LatLon{Lat: rnd.Float64()*140 - 70, Lon: rnd.Float64()*358 - 179}

			shift, err := ComputeShift(p, z)
			require.NoError(t, err)

			px, py := PixelXY(p, z)
			cx := (math.Floor(px/TileSize) + 0.5) * TileSize
			cy := (math.Floor(py/TileSize) + 0.5) * TileSize

			assert.InDelta(t, cx-px, float64(shift.DX), 2, "%s zoom %d", p, z)
			assert.InDelta(t, cy-py, float64(shift.DY), 2, "%s zoom %d", p, z)
		}
	}
}

func TestShiftIsBounded(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))

	for i := 0; i < 1000; i++ {
		z := rnd.Intn(MaxZoom + 1)
		p := model.LatLon{Lat: rnd.Float64()*170 - 85, Lon: rnd.Float64()*360 - 180}

		shift, err := ComputeShift(p, z)
		require.NoError(t, err)
		assert.LessOrEqual(t, math.Abs(float64(shift.DX)), float64(TileSize/2))
		assert.LessOrEqual(t, math.Abs(float64(shift.DY)), float64(TileSize/2))
	}
}

func TestShiftInvalid(t *testing.T) {
	_, err := ComputeShift(model.LatLon{Lat: 90, Lon: 0}, 15)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ComputeShift(model.LatLon{Lat: 50, Lon: 14}, 19)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestShiftEdgesOfMap(t *testing.T) {
	const z = 15

	north, err := ComputeShift(model.LatLon{Lat: MaxLatitude, Lon: 10}, z)
	require.NoError(t, err)
	assert.InDelta(t, 128, north.DY, 2)

	south, err := ComputeShift(model.LatLon{Lat: -MaxLatitude, Lon: 10}, z)
	require.NoError(t, err)
	assert.InDelta(t, -128, south.DY, 2)

	// 180 and -180 are the west edge of tile 0
	east, err := ComputeShift(model.LatLon{Lat: 10, Lon: 180}, z)
	require.NoError(t, err)
	west, err := ComputeShift(model.LatLon{Lat: 10, Lon: -180}, z)
	require.NoError(t, err)

	assert.Equal(t, west, east)
	assert.InDelta(t, 128, east.DX, 2)
}
