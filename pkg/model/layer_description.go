package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// LayerDescription is one entry of layers.yml.
type LayerDescription struct {
	Name            string        `yaml:"name"`
	Key             string        `yaml:"key"`
	MinZoom         int           `yaml:"minZoom"`
	MaxZoom         int           `yaml:"maxZoom"`
	Tms             bool          `yaml:"tms"`
	Url             string        `yaml:"url"`
	TileType        string        `yaml:"tileType"`
	ServerParts     []string      `yaml:"serverParts"`
	Timeout         time.Duration `yaml:"timeout"`
	KeepProbability float32       `yaml:"keepProbability"`
	UserAgent       string        `yaml:"userAgent"`
	// RateLimit is the max number of requests per second to the tile server, 0 means no limit.
	RateLimit float64 `yaml:"rateLimit"`
	Offline   bool    `yaml:"offline"`
	// Bounds limits the layer to the tiles between two [z, x, y] tiles, top left and bottom right.
	Bounds [][]int `yaml:"bounds"`
}

// BoundTiles returns the corner tiles of Bounds, ok is false when the layer is not limited.
func (l *LayerDescription) BoundTiles() (t1, t2 Tile, ok bool) {
	if len(l.Bounds) != 2 || len(l.Bounds[0]) != 3 || len(l.Bounds[1]) != 3 {
		return Tile{}, Tile{}, false
	}

	b1, b2 := l.Bounds[0], l.Bounds[1]

	return Tile{Z: b1[0], X: b1[1], Y: b1[2]}, Tile{Z: b2[0], X: b2[1], Y: b2[2]}, true
}

func (l *LayerDescription) Validate() error {
	if l.Key == "" {
		return fmt.Errorf("layer %q: empty key", l.Name)
	}

	if !strings.Contains(l.Url, "{z}") || !strings.Contains(l.Url, "{x}") || !strings.Contains(l.Url, "{y}") {
		return fmt.Errorf("layer %s: url must contain {z}, {x} and {y}", l.Key)
	}

	if l.MinZoom < 0 || l.MaxZoom > 19 || l.MinZoom > l.MaxZoom {
		return fmt.Errorf("layer %s: invalid zoom range %d-%d", l.Key, l.MinZoom, l.MaxZoom)
	}

	if len(l.Bounds) > 0 {
		t1, t2, ok := l.BoundTiles()
		if !ok {
			return fmt.Errorf("layer %s: bounds must be two [z, x, y] tiles", l.Key)
		}

		for _, t := range []Tile{t1, t2} {
			if t.Z > 19 || !t.Valid() {
				return fmt.Errorf("layer %s: invalid bounds tile %s", l.Key, t)
			}
		}
	}

	return nil
}

// ReadLayerDescriptions reads a yaml list of layer descriptions.
func ReadLayerDescriptions(fname string) ([]*LayerDescription, error) {
	d, err := os.ReadFile(fname)

	if err != nil {
		return nil, err
	}

	var res []*LayerDescription

	if err := yaml.Unmarshal(d, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}

	for _, l := range res {
		if l.MaxZoom == 0 {
			l.MaxZoom = 19
		}

		if l.TileType == "" {
			l.TileType = "png"
		}

		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", fname, err)
		}
	}

	return res, nil
}

func NewProxy(l *LayerDescription, logger *slog.Logger, path string) *Proxy {
	p := &Proxy{
		logger:          logger.With("layer", l.Key),
		minZoom:         l.MinZoom,
		maxZoom:         l.MaxZoom,
		keepProbability: l.KeepProbability,
		key:             l.Key,
		name:            l.Name,
		tms:             l.Tms,
		path:            filepath.Join(path, "tiles", l.Key),
		url:             l.Url,
		ext:             strings.ToLower(l.TileType),
		serverParts:     l.ServerParts,
		timeout:         l.Timeout,
		httpTimeout:     time.Second * 10,
		userAgent:       l.UserAgent,
		Offline:         l.Offline,
	}

	if p.name == "" {
		p.name = p.key
	}

	if l.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(l.RateLimit), 1)
	}

	if t1, t2, ok := l.BoundTiles(); ok {
		p.SetBounds(t1, t2)
	}

	p.Init()

	return p
}
