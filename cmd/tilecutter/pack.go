package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kdudkov/tilecutter/pkg/cutter"
	"github.com/kdudkov/tilecutter/pkg/mbtiles"
	"github.com/kdudkov/tilecutter/pkg/points"
)

func newPackCmd() *cobra.Command {
	var (
		csvFile string
		lf      layerFlags
		zoom    int
		size    int
	)

	cmd := &cobra.Command{
		Use:   "pack <file.mbtiles>",
		Short: "Download every tile the points of a csv file need into an mbtiles file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf.apply(cmd, cfg)

			if cmd.Flags().Changed("zoom") {
				cfg.Zoom = &zoom
			}
			if cmd.Flags().Changed("size") {
				cfg.Size = size
			}

			var missed []string
			if csvFile == "" {
				missed = append(missed, "csv")
			}

			if missed = append(missed, cfg.missed()...); len(missed) > 0 {
				return fmt.Errorf("missed arguments: %v", missed)
			}

			opts, err := cfg.cutterOptions()
			if err != nil {
				return err
			}

			if err := opts.Validate(); err != nil {
				return err
			}

			comma, err := cfg.comma()
			if err != nil {
				return err
			}

			records, rowErrors, err := points.ReadFile(csvFile, points.Options{Comma: comma})
			if err != nil {
				return err
			}

			for _, e := range rowErrors {
				slog.Error("bad row", "file", csvFile, "error", e)
			}

			src, err := cfg.openSource(slog.Default())
			if err != nil {
				return err
			}

			set := cutter.TileSet(records, cfg.zoom(), cfg.Size)

			w, err := mbtiles.Create(args[0])
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(set)), "downloading tiles")

			if err := mbtiles.Pack(cmd.Context(), w, src, set, func() { _ = bar.Add(1) }); err != nil {
				_ = w.Finish(args[0], mbtiles.FormatOf(src))
				return err
			}

			_ = bar.Finish()

			if err := w.Finish(args[0], mbtiles.FormatOf(src)); err != nil {
				return err
			}

			slog.Info(fmt.Sprintf("packed %d tiles for %d points into %s", w.Total(), len(records), args[0]))

			return nil
		},
	}

	cmd.Flags().StringVar(&csvFile, "csv", "", "csv file with id, lat, lon")
	cmd.Flags().IntVarP(&zoom, "zoom", "z", 0, "zoom level")
	cmd.Flags().IntVarP(&size, "size", "s", 0, "image size in pixels")
	lf.register(cmd)

	return cmd
}
