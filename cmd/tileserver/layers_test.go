package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/tilecutter/pkg/model"
)

func TestLayers(t *testing.T) {
	layers := NewLayers()
	layers.Add(&pngSource{key: "osm"})
	layers.Add(&pngSource{key: "bright"})
	layers.Add(nil)

	fname := filepath.Join(t.TempDir(), "osm")
	writeRegion(t, fname, 17696, 11101, nil)

	l, err := model.NewLayer("osm", fname)
	require.NoError(t, err)

	dropped := layers.SetFiles(map[string]*model.Layer{"osm": l})
	assert.Empty(t, dropped)

	// the file shadows the source with the same key
	s, ok := layers.Get("osm")
	require.True(t, ok)
	assert.Same(t, l, s)

	list := layers.List()
	require.Len(t, list, 2)
	assert.Equal(t, "bright", list[0].GetKey())
	assert.Equal(t, "region", list[1].GetName())

	dropped = layers.SetFiles(map[string]*model.Layer{})
	require.Len(t, dropped, 1)
	assert.Same(t, l, dropped[0])
	require.NoError(t, l.Close())

	s, ok = layers.Get("osm")
	require.True(t, ok)
	assert.NotSame(t, l, s)
	assert.Len(t, layers.List(), 2)

	_, ok = layers.File("osm")
	assert.False(t, ok)

	_, ok = layers.Get("none")
	assert.False(t, ok)
}
