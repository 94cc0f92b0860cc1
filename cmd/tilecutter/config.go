package main

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/kdudkov/tilecutter/pkg/cutter"
	"github.com/kdudkov/tilecutter/pkg/model"
)

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

type Config struct {
	Zoom        *int         `yaml:"zoom"`
	Size        int          `yaml:"size"`
	Layer       string       `yaml:"layer"`
	Layers      string       `yaml:"layers"`
	Cache       string       `yaml:"cache"`
	Workers     int          `yaml:"workers"`
	TileWorkers int          `yaml:"tileWorkers"`
	MemTiles    int64        `yaml:"memTiles"`
	Blank       string       `yaml:"blank"`
	Strict      bool         `yaml:"strict"`
	Separator   string       `yaml:"separator"`
	Output      OutputConfig `yaml:"output"`
}

func defaultConfig() *Config {
	return &Config{
		Layers:      "layers.yml",
		Cache:       "./data",
		Workers:     1,
		TileWorkers: 4,
		MemTiles:    256,
		Blank:       "#000000",
		Separator:   ";",
		Output: OutputConfig{
			Dir:     "out",
			Format:  "jpg",
			Quality: 80,
		},
	}
}

// loadConfig reads fname over the defaults, a missing file is not an error unless required.
func loadConfig(fname string, required bool) (*Config, error) {
	cfg := defaultConfig()

	d, err := os.ReadFile(fname)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(d, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}

	return cfg, nil
}

func (c *Config) zoom() int {
	if c.Zoom == nil {
		return 0
	}

	return *c.Zoom
}

// missed lists required settings given neither in the config file nor by flags.
func (c *Config) missed() []string {
	var res []string

	if c.Zoom == nil {
		res = append(res, "zoom")
	}

	if c.Size == 0 {
		res = append(res, "size")
	}

	return res
}

func (c *Config) blankColor() (color.Color, error) {
	if c.Blank == "" {
		return color.Black, nil
	}

	col, err := colorful.Hex(c.Blank)
	if err != nil {
		return nil, fmt.Errorf("blank color: %w", err)
	}

	return col, nil
}

func (c *Config) comma() (rune, error) {
	if c.Separator == "" {
		return ';', nil
	}

	if c.Separator == `\t` {
		return '\t', nil
	}

	r, n := utf8.DecodeRuneInString(c.Separator)
	if n != len(c.Separator) {
		return 0, fmt.Errorf("separator must be a single character, got %q", c.Separator)
	}

	return r, nil
}

func (c *Config) cutterOptions() (cutter.Options, error) {
	blank, err := c.blankColor()
	if err != nil {
		return cutter.Options{}, err
	}

	return cutter.Options{
		Zoom:            c.zoom(),
		Size:            c.Size,
		Blank:           blank,
		TileConcurrency: c.TileWorkers,
		Strict:          c.Strict,
	}, nil
}

// openSource opens the layers named in c.Layer, separated by commas and asked in that order.
// Names ending with .mbtiles or .sqlite are files, others are keys of the layers file.
func (c *Config) openSource(logger *slog.Logger) (model.Source, error) {
	if c.Layer == "" {
		return nil, errors.New("no layer given")
	}

	var descriptions []*model.LayerDescription

	var sources []model.Source

	for _, name := range strings.Split(c.Layer, ",") {
		name = strings.TrimSpace(name)

		if strings.HasSuffix(name, ".mbtiles") || strings.HasSuffix(name, ".sqlite") {
			l, err := model.NewLayer(name, name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}

			logger.Info(fmt.Sprintf("loaded file %s, name %s", name, l.GetName()))
			sources = append(sources, l)

			continue
		}

		if descriptions == nil {
			d, err := model.ReadLayerDescriptions(c.Layers)
			if err != nil {
				return nil, err
			}

			descriptions = d
		}

		var found *model.LayerDescription

		for _, d := range descriptions {
			if d.Key == name {
				found = d
				break
			}
		}

		if found == nil {
			return nil, fmt.Errorf("layer %s is not found in %s", name, c.Layers)
		}

		sources = append(sources, model.NewProxy(found, logger, c.Cache))
	}

	var src model.Source = sources[0]

	if len(sources) > 1 {
		src = model.NewMultilayer(c.Layer, c.Layer, sources...)
	}

	if c.MemTiles > 0 {
		src = model.NewMemCache(src, c.MemTiles, time.Hour)
	}

	return src, nil
}
