package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kdudkov/tilecutter/pkg/cutter"
	"github.com/kdudkov/tilecutter/pkg/points"
	"github.com/kdudkov/tilecutter/pkg/sink"
)

type layerFlags struct {
	layer  string
	layers string
	cache  string
}

func (f *layerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.layer, "layer", "l", "", "layer key or .mbtiles file, several separated by commas")
	cmd.Flags().StringVar(&f.layers, "layers", "", "layers description file")
	cmd.Flags().StringVar(&f.cache, "cache", "", "tile cache directory")
}

func (f *layerFlags) apply(cmd *cobra.Command, c *Config) {
	if cmd.Flags().Changed("layer") {
		c.Layer = f.layer
	}
	if cmd.Flags().Changed("layers") {
		c.Layers = f.layers
	}
	if cmd.Flags().Changed("cache") {
		c.Cache = f.cache
	}
}

func newCutCmd() *cobra.Command {
	var (
		csvFile  string
		lf       layerFlags
		zoom     int
		size     int
		out      string
		format   string
		quality  int
		workers  int
		strict   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "cut",
		Short: "Cut an image for every point of a csv file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var missed []string

			if csvFile == "" {
				missed = append(missed, "csv")
			}

			lf.apply(cmd, cfg)

			fl := cmd.Flags()
			if fl.Changed("zoom") {
				cfg.Zoom = &zoom
			}
			if fl.Changed("size") {
				cfg.Size = size
			}
			if fl.Changed("out") {
				cfg.Output.Dir = out
			}
			if fl.Changed("format") {
				cfg.Output.Format = format
			}
			if fl.Changed("quality") {
				cfg.Output.Quality = quality
			}
			if fl.Changed("workers") {
				cfg.Workers = workers
			}
			if fl.Changed("strict") {
				cfg.Strict = strict
			}

			missed = append(missed, cfg.missed()...)

			if len(missed) > 0 {
				return fmt.Errorf("missed arguments: %v", missed)
			}

			return runCut(cmd, csvFile, progress)
		},
	}

	cmd.Flags().StringVar(&csvFile, "csv", "", "csv file with id, lat, lon")
	cmd.Flags().IntVarP(&zoom, "zoom", "z", 0, "zoom level")
	cmd.Flags().IntVarP(&size, "size", "s", 0, "image size in pixels")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&format, "format", "", "output format, jpg or png")
	cmd.Flags().IntVar(&quality, "quality", 0, "jpeg quality")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "points processed in parallel")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail points with missing tiles")
	cmd.Flags().BoolVar(&progress, "progress", false, "show a progress bar")
	lf.register(cmd)

	return cmd
}

func runCut(cmd *cobra.Command, csvFile string, progress bool) error {
	logger := slog.Default()

	opts, err := cfg.cutterOptions()
	if err != nil {
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
		logger.Error("bad row", "file", csvFile, "error", e)
	}

	src, err := cfg.openSource(logger)
	if err != nil {
		return err
	}

	c, err := cutter.New(src, opts, logger)
	if err != nil {
		return err
	}

	out, err := sink.NewDir(cfg.Output.Dir, cfg.Output.Format, cfg.Output.Quality)
	if err != nil {
		return err
	}

	b := &cutter.Batch{
		Cutter:  c,
		Sink:    out,
		Workers: cfg.Workers,
	}

	if progress {
		bar := progressbar.Default(int64(len(records)), "cutting")
		defer bar.Finish()

		b.OnDone = func(_ points.Record, _ *cutter.Result, _ error) {
			_ = bar.Add(1)
		}
	}

	logger.Info(fmt.Sprintf("cutting %d points, zoom %d, size %d, layer %s", len(records), opts.Zoom, opts.Size, src.GetName()))

	rep, err := b.Run(cmd.Context(), records)

	logger.Info("done", "total", rep.Total, "ok", rep.Done, "with_blank_tiles", rep.Warned, "failed", len(rep.Failures), "bad_rows", len(rowErrors))

	if err != nil {
		return err
	}

	if len(rep.Failures) > 0 {
		errs := make([]error, 0, len(rep.Failures))
		for _, f := range rep.Failures {
			errs = append(errs, f)
		}

		return fmt.Errorf("%d of %d points failed: %w", len(rep.Failures), rep.Total, errors.Join(errs...))
	}

	return nil
}
