package merge

import (
	"fmt"
	"os"

	shp "github.com/jonas-p/go-shp"
)

// shpFeature is one shapefile record: its shape plus its attribute row read
// back as strings, which is enough to carry it into a merged file.
type shpFeature struct {
	Shape shp.Shape
	Attrs []string
}

// readShapefile loads every record of a shapefile with its attributes.
func readShapefile(path string) ([]shpFeature, []shp.Field, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open shapefile %q: %v", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	var features []shpFeature
	row := 0
	for reader.Next() {
		_, shape := reader.Shape()
		attrs := make([]string, len(fields))
		for f := range fields {
			attrs[f] = reader.ReadAttribute(row, f)
		}
		features = append(features, shpFeature{Shape: shape, Attrs: attrs})
		row++
	}
	return features, fields, nil
}

// shapePoints returns a mutable view of the shape's vertices, or nil for
// unsupported shape types.
func shapePoints(shape shp.Shape) []shp.Point {
	switch s := shape.(type) {
	case *shp.PolyLine:
		return s.Points
	case *shp.Polygon:
		return s.Points
	case *shp.Point:
		return []shp.Point{{X: s.X, Y: s.Y}}
	default:
		return nil
	}
}

// setShapePoints writes transformed vertices back and refreshes the shape's
// bounding box.
func setShapePoints(shape shp.Shape, points []shp.Point) {
	switch s := shape.(type) {
	case *shp.PolyLine:
		s.Points = points
		s.Box = pointsBox(points)
	case *shp.Polygon:
		s.Points = points
		s.Box = pointsBox(points)
	case *shp.Point:
		if len(points) == 1 {
			s.X, s.Y = points[0].X, points[0].Y
		}
	}
}

func pointsBox(points []shp.Point) shp.Box {
	if len(points) == 0 {
		return shp.Box{}
	}
	box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
	}
	return box
}

// shapeType picks the writer shape type from the first feature.
func shapeType(features []shpFeature, fallback shp.ShapeType) shp.ShapeType {
	if len(features) == 0 {
		return fallback
	}
	switch features[0].Shape.(type) {
	case *shp.Polygon:
		return shp.POLYGON
	case *shp.PolyLine:
		return shp.POLYLINE
	case *shp.Point:
		return shp.POINT
	default:
		return fallback
	}
}

// writeShapefile writes features with their attribute rows. An empty feature
// list still produces a valid, empty shapefile.
func writeShapefile(path string, stype shp.ShapeType, fields []shp.Field, features []shpFeature) error {
	// Recreate rather than append; merged artifacts are built in one go.
	os.Remove(path)

	writer, err := shp.Create(path, stype)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %q: %v", path, err)
	}
	defer writer.Close()

	if len(fields) == 0 {
		fields = []shp.Field{shp.NumberField("ID", 10)}
	}
	writer.SetFields(fields)

	for row, feature := range features {
		writer.Write(feature.Shape)
		for f := range fields {
			value := ""
			if f < len(feature.Attrs) {
				value = feature.Attrs[f]
			}
			if err := writer.WriteAttribute(row, f, value); err != nil {
				return fmt.Errorf("failed to write attribute %d of record %d in %q: %v", f, row, path, err)
			}
		}
	}
	return nil
}
