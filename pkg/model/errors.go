package model

import (
	"errors"
	"fmt"
)

var ErrTileUnavailable = errors.New("tile unavailable")

// TileError is returned for a single tile that could not be fetched or decoded.
type TileError struct {
	Tile Tile
	Err  error
}

func (e *TileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tile %s: %s", e.Tile, ErrTileUnavailable)
	}

	return fmt.Sprintf("tile %s: %s: %s", e.Tile, ErrTileUnavailable, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

func (e *TileError) Is(target error) bool {
	return target == ErrTileUnavailable
}

func Unavailable(t Tile, err error) *TileError {
	return &TileError{Tile: t, Err: err}
}
