package grouping

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
	geom "github.com/twpayne/go-geom"
)

// Thalweg is one river centerline: its record index in the input dataset and
// its path as an ordered point sequence.
type Thalweg struct {
	Index int
	Path  *geom.LineString
}

// ReadThalwegs loads every polyline record from the thalweg shapefile, in
// record order. Record order is the canonical thalweg order; indices are
// stable across runs on the same file.
func ReadThalwegs(path string) ([]Thalweg, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open thalweg shapefile %q: %v", path, err)
	}
	defer reader.Close()

	var thalwegs []Thalweg
	index := 0
	for reader.Next() {
		_, shape := reader.Shape()
		line, ok := shape.(*shp.PolyLine)
		if !ok {
			return nil, fmt.Errorf("thalweg record %d is not a polyline", index)
		}
		coords := make([]geom.Coord, 0, len(line.Points))
		for _, p := range line.Points {
			coords = append(coords, geom.Coord{p.X, p.Y})
		}
		if len(coords) < 2 {
			return nil, fmt.Errorf("thalweg record %d has fewer than 2 points", index)
		}
		ls := geom.NewLineString(geom.XY).MustSetCoords(coords)
		thalwegs = append(thalwegs, Thalweg{Index: index, Path: ls})
		index++
	}
	if len(thalwegs) == 0 {
		return nil, fmt.Errorf("thalweg shapefile %q has no polyline records", path)
	}
	return thalwegs, nil
}
