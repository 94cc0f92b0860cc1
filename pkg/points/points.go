// Package points reads the table of points to cut, a CSV file with id, lat and lon columns.
package points

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kdudkov/tilecutter/pkg/model"
)

var ErrNoColumns = errors.New("no id, lat and lon columns")

type Record struct {
	ID    string
	Point model.LatLon
	// Line is the line number in the source file.
	Line int
}

// RowError is a row that could not be parsed.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Comma is the field separator, ';' if zero.
	Comma rune
}

// ReadFile reads the point table from file fname.
func ReadFile(fname string, opts Options) ([]Record, []error, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}

	defer f.Close()

	return Read(f, opts)
}

// Read reads a table with a header row. Columns are found by the names id, lat and lon,
// a header without them means the first three columns in that order.
// Bad rows are returned as *RowError and do not stop the reading.
func Read(r io.Reader, opts Options) ([]Record, []error, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}

		return nil, nil, err
	}

	idCol, latCol, lonCol, err := columns(header)
	if err != nil {
		return nil, nil, err
	}

	var res []Record
	var rowErrors []error

	for {
		row, err := cr.Read()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rowErrors = append(rowErrors, &RowError{Line: pe.Line, Err: pe.Err})
				continue
			}

			return res, rowErrors, err
		}

		line, _ := cr.FieldPos(0)

		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		rec, err := parseRow(row, idCol, latCol, lonCol)
		if err != nil {
			rowErrors = append(rowErrors, &RowError{Line: line, Err: err})
			continue
		}

		rec.Line = line
		res = append(res, rec)
	}

	return res, rowErrors, nil
}

func columns(header []string) (int, int, int, error) {
	idCol, latCol, lonCol := -1, -1, -1

	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "id":
			idCol = i
		case "lat", "latitude":
			latCol = i
		case "lon", "lng", "long", "longitude":
			lonCol = i
		}
	}

	if idCol >= 0 && latCol >= 0 && lonCol >= 0 {
		return idCol, latCol, lonCol, nil
	}

	if len(header) >= 3 {
		return 0, 1, 2, nil
	}

	return 0, 0, 0, ErrNoColumns
}

func parseRow(row []string, idCol, latCol, lonCol int) (Record, error) {
	if len(row) <= max(idCol, latCol, lonCol) {
		return Record{}, fmt.Errorf("expected at least %d fields, got %d", max(idCol, latCol, lonCol)+1, len(row))
	}

	id := strings.TrimSpace(row[idCol])
	if id == "" {
		return Record{}, errors.New("empty id")
	}

	lat, err := parseFloat(row[latCol])
	if err != nil {
		return Record{}, fmt.Errorf("lat: %w", err)
	}

	lon, err := parseFloat(row[lonCol])
	if err != nil {
		return Record{}, fmt.Errorf("lon: %w", err)
	}

	return Record{ID: id, Point: model.LatLon{Lat: lat, Lon: lon}}, nil
}

// parseFloat accepts a decimal comma as well, common in semicolon separated files.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
