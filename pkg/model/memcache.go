package model

import (
	"context"
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v3"
)

var _ Source = &MemCache{}

// MemCache keeps recently used tiles of another source in memory.
// Neighbouring points of a batch share most of their tiles.
type MemCache struct {
	Source
	ttl   time.Duration
	cache *ccache.Cache[[]byte]
}

func NewMemCache(src Source, maxTiles int64, ttl time.Duration) *MemCache {
	return &MemCache{
		Source: src,
		ttl:    ttl,
		cache:  ccache.New(ccache.Configure[[]byte]().MaxSize(maxTiles).ItemsToPrune(uint32(max(1, maxTiles/10)))),
	}
}

func (m *MemCache) GetTile(ctx context.Context, z, x, y int) ([]byte, error) {
	key := fmt.Sprintf("%d/%d/%d", z, x, y)

	if item := m.cache.Get(key); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	data, err := m.Source.GetTile(ctx, z, x, y)

	if err != nil || len(data) == 0 {
		return data, err
	}

	m.cache.Set(key, data, m.ttl)

	return data, nil
}

func (m *MemCache) Stop() {
	m.cache.Stop()
}
