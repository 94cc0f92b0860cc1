// Package mbtiles writes tile sets into mbtiles (sqlite) files readable by model.Layer.
package mbtiles

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/paulmach/orb/maptile"
	_ "modernc.org/sqlite"

	"github.com/kdudkov/tilecutter/pkg/model"
)

type Writer struct {
	db      *sql.DB
	minZoom int
	maxZoom int
	total   int
}

// Create replaces fname with an empty mbtiles file.
func Create(fname string) (*Writer, error) {
	_ = os.Remove(fname)
	db, err := sql.Open("sqlite", fname)

	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Writer{db: db, minZoom: -1}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER NOT NULL,tile_column INTEGER NOT NULL,tile_row INTEGER NOT NULL,tile_data BLOB NOT NULL,UNIQUE (zoom_level, tile_column, tile_row));")

	if err != nil {
		return err
	}

	_, err = db.Exec("CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT);")

	return err
}

// Put stores a tile given in xyz scheme, rows are flipped to tms.
func (w *Writer) Put(z, x, y int, data []byte) error {
	y1 := 1<<z - y - 1

	_, err := w.db.Exec("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) values (?,?,?,?)", z, x, y1, data)

	if err != nil {
		return err
	}

	w.total++

	if w.minZoom < 0 {
		w.minZoom = z
	}

	w.minZoom = min(w.minZoom, z)
	w.maxZoom = max(w.maxZoom, z)

	return nil
}

func (w *Writer) Total() int {
	return w.total
}

// Finish writes the metadata and closes the file.
func (w *Writer) Finish(name, format string) error {
	meta := map[string]string{
		"version": "1.1",
		"format":  format,
		"minzoom": strconv.Itoa(max(w.minZoom, 0)),
		"maxzoom": strconv.Itoa(w.maxZoom),
		"name":    name,
		"scheme":  "tms",
	}

	if err := putMeta(w.db, meta); err != nil {
		w.db.Close()
		return err
	}

	return w.db.Close()
}

func putMeta(db *sql.DB, meta map[string]string) error {
	for k, v := range meta {
		_, err := db.Exec("INSERT INTO metadata (name, value) values (?,?)", k, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatOf returns the mbtiles format name of a source.
func FormatOf(src model.Source) string {
	switch src.GetContentType() {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// Pack downloads all tiles of set from src into w. Every missing tile is an error,
// progress is called after each stored tile.
func Pack(ctx context.Context, w *Writer, src model.Source, set maptile.Set, progress func()) error {
	tiles := make([]maptile.Tile, 0, len(set))
	for t := range set {
		tiles = append(tiles, t)
	}

	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	for _, t := range tiles {
		if err := ctx.Err(); err != nil {
			return err
		}

		z, x, y := int(t.Z), int(t.X), int(t.Y)

		data, err := src.GetTile(ctx, z, x, y)

		if err != nil {
			return fmt.Errorf("tile %d/%d/%d: %w", z, x, y, err)
		}

		if data == nil {
			return fmt.Errorf("no tile z=%d %d/%d", z, x, y)
		}

		if err := w.Put(z, x, y, data); err != nil {
			return err
		}

		if progress != nil {
			progress()
		}
	}

	return nil
}
