package model

import "context"

var _ Source = &MultiLayer{}

// MultiLayer asks its layers in order and returns the first tile found.
type MultiLayer struct {
	key     string
	name    string
	minZoom int
	maxZoom int
	layers  []Source
}

func NewMultilayer(key, name string, layers ...Source) *MultiLayer {
	m := &MultiLayer{
		key:    key,
		name:   name,
		layers: layers,
	}

	m.init()

	return m
}

func (m *MultiLayer) init() {
	if len(m.layers) == 0 {
		panic("no layers")
	}

	m.minZoom = m.layers[0].GetMinZoom()
	m.maxZoom = m.layers[0].GetMaxZoom()

	for _, l := range m.layers {
		m.minZoom = min(m.minZoom, l.GetMinZoom())
		m.maxZoom = max(m.maxZoom, l.GetMaxZoom())
	}
}

func (m *MultiLayer) GetKey() string {
	return m.key
}

func (m *MultiLayer) GetMaxZoom() int {
	return m.maxZoom
}

func (m *MultiLayer) GetMinZoom() int {
	return m.minZoom
}

func (m *MultiLayer) GetName() string {
	return m.name
}

func (m *MultiLayer) GetContentType() string {
	return m.layers[0].GetContentType()
}

func (m *MultiLayer) IsFile() bool {
	for _, l := range m.layers {
		if !l.IsFile() {
			return false
		}
	}

	return true
}

func (m *MultiLayer) IsTms() bool {
	return false
}

// GetTile returns the first non-empty tile. Errors of earlier layers are dropped
// when a later layer has the tile, otherwise the last error is returned.
func (m *MultiLayer) GetTile(ctx context.Context, z int, x int, y int) ([]byte, error) {
	var lastErr error

	for _, l := range m.layers {
		if z < l.GetMinZoom() || z > l.GetMaxZoom() {
			continue
		}

		b, err := l.GetTile(ctx, z, x, y)

		if err != nil {
			lastErr = err
			continue
		}

		if len(b) > 0 {
			return b, nil
		}
	}

	return nil, lastErr
}
