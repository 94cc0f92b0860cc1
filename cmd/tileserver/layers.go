package main

import (
	"cmp"
	"slices"
	"sync"

	"github.com/kdudkov/tilecutter/pkg/model"
)

// Layers is the set of sources served by key. Sources from layers.yml are added once,
// mbtiles files are replaced as a whole on every rescan of the files directory.
// A file shadows a source with the same key.
type Layers struct {
	mx     sync.RWMutex
	static map[string]model.Source
	files  map[string]*model.Layer
}

func NewLayers() *Layers {
	return &Layers{
		static: make(map[string]model.Source),
		files:  make(map[string]*model.Layer),
	}
}

func (h *Layers) Get(key string) (model.Source, bool) {
	h.mx.RLock()
	defer h.mx.RUnlock()

	if l, ok := h.files[key]; ok {
		return l, true
	}

	s, ok := h.static[key]

	return s, ok
}

func (h *Layers) Add(s model.Source) {
	if s == nil {
		return
	}

	h.mx.Lock()
	h.static[s.GetKey()] = s
	h.mx.Unlock()
}

// File returns the layer opened for the file name.
func (h *Layers) File(name string) (*model.Layer, bool) {
	h.mx.RLock()
	defer h.mx.RUnlock()

	l, ok := h.files[name]

	return l, ok
}

// SetFiles swaps in the new file layers and returns the old ones not among them.
func (h *Layers) SetFiles(files map[string]*model.Layer) []*model.Layer {
	h.mx.Lock()
	defer h.mx.Unlock()

	var dropped []*model.Layer

	for name, l := range h.files {
		if files[name] != l {
			dropped = append(dropped, l)
		}
	}

	h.files = files

	return dropped
}

// List returns the served sources ordered by name, then by key.
func (h *Layers) List() []model.Source {
	h.mx.RLock()

	res := make([]model.Source, 0, len(h.static)+len(h.files))

	for key, s := range h.static {
		if _, ok := h.files[key]; !ok {
			res = append(res, s)
		}
	}

	for _, l := range h.files {
		res = append(res, l)
	}

	h.mx.RUnlock()

	slices.SortFunc(res, func(a, b model.Source) int {
		return cmp.Or(cmp.Compare(a.GetName(), b.GetName()), cmp.Compare(a.GetKey(), b.GetKey()))
	})

	return res
}
