package model

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite"
)

// Source returns raw tile data. A missing tile is reported as nil data with nil error.
type Source interface {
	GetTile(ctx context.Context, z, x, y int) ([]byte, error)
	GetContentType() string
	GetMinZoom() int
	GetMaxZoom() int
	GetKey() string
	GetName() string
	IsTms() bool
	IsFile() bool
}

var _ Source = &Layer{}

// Layer serves tiles from an mbtiles file.
type Layer struct {
	minZoom     int
	maxZoom     int
	key         string
	name        string
	contentType string
	db          *sql.DB
	tms         bool
	meta        map[string]string
	file        os.FileInfo
}

func NewLayer(key, path string) (*Layer, error) {
	fileInfo, err := os.Stat(path)

	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, err
	}

	l := &Layer{
		db:   db,
		key:  key,
		name: key,
		tms:  true,
		file: fileInfo,
	}

	if err := l.getMetadata(); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.minZoom, l.maxZoom, err = l.getMinMaxZoom()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if v, ok := l.meta["minzoom"]; ok {
		if vv, err := strconv.Atoi(v); err == nil {
			l.minZoom = vv
		}
	}

	if v, ok := l.meta["maxzoom"]; ok {
		if vv, err := strconv.Atoi(v); err == nil {
			l.maxZoom = vv
		}
	}

	if v, ok := l.meta["scheme"]; ok {
		if v != "tms" {
			l.tms = false
		}
	}

	if v, ok := l.meta["name"]; ok {
		l.name = v
	}

	l.contentType = "image/png"

	if v, ok := l.meta["format"]; ok {
		ct := ContentType(v)
		if ct == "" {
			_ = db.Close()
			return nil, fmt.Errorf("invalid format - %s", v)
		}

		l.contentType = ct
	}

	return l, nil
}

// ContentType maps a tile file extension to its mime type, unknown extensions give "".
func ContentType(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func (l *Layer) String() string {
	return fmt.Sprintf("%s %d:%d %v %v %+v", l.name, l.minZoom, l.maxZoom, l.tms, l.file.ModTime(), l.meta)
}

func (l *Layer) GetKey() string {
	return l.key
}

func (l *Layer) GetName() string {
	return l.name
}

func (l *Layer) GetMinZoom() int {
	return l.minZoom
}

func (l *Layer) GetMaxZoom() int {
	return l.maxZoom
}

func (l *Layer) GetContentType() string {
	return l.contentType
}

func (l *Layer) IsTms() bool {
	return l.tms
}

func (l *Layer) IsFile() bool {
	return true
}

// Changed reports whether fi describes another file than the one the layer was opened from,
// or the same file rewritten since.
func (l *Layer) Changed(fi os.FileInfo) bool {
	return !os.SameFile(l.file, fi) || !fi.ModTime().Equal(l.file.ModTime()) || fi.Size() != l.file.Size()
}

func (l *Layer) Close() error {
	return l.db.Close()
}

func (l *Layer) getMetadata() error {
	row, err := l.db.Query("SELECT name,value FROM metadata ORDER BY name")
	if err != nil {
		return err
	}

	l.meta = make(map[string]string)

	defer row.Close()
	for row.Next() {
		var name string
		var value string
		if err = row.Scan(&name, &value); err != nil {
			return err
		}
		l.meta[name] = value
	}

	return row.Err()
}

func (l *Layer) getMinMaxZoom() (int, int, error) {
	row, err := l.db.Query("SELECT coalesce(min(zoom_level), 0), coalesce(max(zoom_level), 0) FROM tiles")
	if err != nil {
		return 0, 0, err
	}

	var zmin, zmax int

	defer row.Close()
	if row.Next() {
		if err = row.Scan(&zmin, &zmax); err != nil {
			return 0, 0, err
		}
	}

	return zmin, zmax, nil
}

func (l *Layer) GetTile(ctx context.Context, zoom, x, y int) ([]byte, error) {
	if l.tms {
		y = 1<<zoom - y - 1
	}

	row, err := l.db.QueryContext(ctx, "SELECT tile_data FROM tiles WHERE zoom_level=? and tile_column=? and tile_row=?", zoom, x, y)
	if err != nil {
		return nil, err
	}

	defer row.Close()

	if row.Next() {
		var data []byte
		if err = row.Scan(&data); err != nil {
			return nil, err
		}

		return data, nil
	}

	return nil, row.Err()
}
