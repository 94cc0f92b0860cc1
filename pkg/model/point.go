package model

import (
	"fmt"
)

// LatLon is a geographic point in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

func (p LatLon) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}
