package points

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/tilecutter/pkg/model"
)

func TestReadByName(t *testing.T) {
	data := "lon;id;lat\n14.42;p1;50.08\n-0.1278;london;51.5074\n"

	recs, rowErrs, err := Read(strings.NewReader(data), Options{})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)

	require.Len(t, recs, 2)
	assert.Equal(t, Record{ID: "p1", Point: model.LatLon{Lat: 50.08, Lon: 14.42}, Line: 2}, recs[0])
	assert.Equal(t, Record{ID: "london", Point: model.LatLon{Lat: 51.5074, Lon: -0.1278}, Line: 3}, recs[1])
}

func TestReadPositional(t *testing.T) {
	data := "name,y,x\na,1.5,2.5\n"

	recs, _, err := Read(strings.NewReader(data), Options{Comma: ','})
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, model.LatLon{Lat: 1.5, Lon: 2.5}, recs[0].Point)
}

func TestReadBadRows(t *testing.T) {
	data := strings.Join([]string{
		"id;latitude;longitude",
		"1;50.1;14.4",
		"2;abc;14.4",
		"3;50.1",
		"",
		";50.1;14.4",
		"4; 50,25 ;14,5",
		"5;-33.86;151.2",
	}, "\n")

	recs, rowErrs, err := Read(strings.NewReader(data), Options{})
	require.NoError(t, err)

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}

	assert.Equal(t, []string{"1", "4", "5"}, ids)
	assert.Equal(t, model.LatLon{Lat: 50.25, Lon: 14.5}, recs[1].Point)
	assert.Equal(t, 7, recs[1].Line)

	require.Len(t, rowErrs, 3)

	var re *RowError
	require.True(t, errors.As(rowErrs[0], &re))
	assert.Equal(t, 3, re.Line)
	assert.Contains(t, re.Error(), "lat")

	require.True(t, errors.As(rowErrs[1], &re))
	assert.Equal(t, 4, re.Line)

	require.True(t, errors.As(rowErrs[2], &re))
	assert.Equal(t, 6, re.Line)
	assert.ErrorContains(t, re, "empty id")
}

func TestReadHeader(t *testing.T) {
	recs, rowErrs, err := Read(strings.NewReader(""), Options{})
	assert.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, rowErrs)

	_, _, err = Read(strings.NewReader("id;lat\n1;2\n"), Options{})
	assert.ErrorIs(t, err, ErrNoColumns)

	recs, _, err = Read(strings.NewReader("\ufeffID;Lat;Lng\nx;1;2\n"), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].ID)
	assert.Equal(t, model.LatLon{Lat: 1, Lon: 2}, recs[0].Point)
}

func TestReadFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(fname, []byte("id\tlat\tlon\n1\t10\t20\n"), 0644))

	recs, _, err := ReadFile(fname, Options{Comma: '\t'})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.LatLon{Lat: 10, Lon: 20}, recs[0].Point)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "none.csv"), Options{})
	assert.Error(t, err)
}
