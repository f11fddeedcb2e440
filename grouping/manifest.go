package grouping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/geo/r2"
)

// TileEntry is one DEM tile listed in the manifest: a raster file plus the
// rectangular extent it covers, in the dataset's coordinate reference.
type TileEntry struct {
	File     string    `json:"file"`
	Boundary []float64 `json:"boundary,omitempty"` // [minX, minY, maxX, maxY]
}

// Manifest enumerates the available DEM tiles in a canonical order.
type Manifest struct {
	Tiles []TileEntry `json:"tiles"`
}

// ReadManifest loads a DEM manifest JSON file. Entry order is preserved; it
// is the canonical tile order used everywhere downstream.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DEM manifest %q: %v", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse DEM manifest %q: %v", path, err)
	}
	if len(m.Tiles) == 0 {
		return nil, fmt.Errorf("DEM manifest %q lists no tiles", path)
	}
	return &m, nil
}

// Extent returns the entry's boundary as a rectangle.
func (e TileEntry) Extent() (r2.Rect, error) {
	if len(e.Boundary) != 4 {
		return r2.Rect{}, fmt.Errorf("tile %q has no usable boundary", e.File)
	}
	return r2.RectFromPoints(
		r2.Point{X: e.Boundary[0], Y: e.Boundary[1]},
		r2.Point{X: e.Boundary[2], Y: e.Boundary[3]},
	), nil
}
