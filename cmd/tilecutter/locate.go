package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdudkov/tilecutter/pkg/cutter"
	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
)

// newLocateCmd prints the tile, the tile center and the crop shift of one point.
func newLocateCmd() *cobra.Command {
	var (
		lat, lon float64
		zoom     int
		size     int
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show the tile and crop shift of a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.LatLon{Lat: lat, Lon: lon}

			shift, err := mapper.ComputeShift(p, zoom)
			if err != nil {
				return err
			}

			t := mapper.PointToTile(p, zoom)
			n := cutter.TilesNeeded(size)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tile:   %s\n", t)
			fmt.Fprintf(out, "center: %s\n", mapper.TileCenter(p, zoom))
			fmt.Fprintf(out, "shift:  %s\n", shift)
			fmt.Fprintf(out, "mosaic: %dx%d tiles, %dpx\n", n, n, n*mapper.TileSize)

			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (degree)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude (degree)")
	cmd.Flags().IntVarP(&zoom, "zoom", "z", 15, "zoom level")
	cmd.Flags().IntVarP(&size, "size", "s", 512, "image size in pixels")

	return cmd
}
