package merge

import (
	"fmt"
	"os"
	"strconv"
	"time"

	shp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-river-driver/process"
	"github.com/bsaid97/go-river-driver/smsmap"
	"github.com/bsaid97/go-river-driver/utils"
)

// Cleaner repairs the topological defects introduced at the seams between
// adjacent workers' subdomains: vertices that should coincide with a
// recorded intersection joint are snapped onto it, duplicate seam vertices
// are dropped, and enclosed polygons are re-derived from the cleaned
// network. Geometry away from every joint is left untouched.
type Cleaner struct {
	Naming           process.Naming
	SnapToleranceDeg float64
	Log              *logrus.Logger
}

// CleanBoundaries runs the final clean-up over the merged arc network and
// joint record, then persists the cleaned network and the re-derived
// polygon set.
func (c *Cleaner) CleanBoundaries(arcs, joints *smsmap.Map) error {
	c.Log.Info("--------------- final clean-ups on intersections near inter-subdomain interfaces ----")
	start := time.Now()

	index := NewJointIndex(c.SnapToleranceDeg * 100)
	for _, joint := range joints.DetachedNodes {
		index.Add(joint)
	}

	scope, err := c.loadBombScope()
	if err != nil {
		return err
	}
	if scope != nil {
		defer scope.Destroy()
	}

	cleaned, snapped := snapArcsToJoints(arcs, index, scope, c.SnapToleranceDeg)
	c.Log.Infof("Snapped %d seam vertices onto %d recorded joints", snapped, index.Len())

	if err := cleaned.Write(c.Naming.Merged(process.MergedTotalArcs)); err != nil {
		return err
	}

	polygons := polygonizeArcs(cleaned)
	c.reportInvalid(polygons)

	if err := c.writePolygons(polygons); err != nil {
		return err
	}
	for _, polygon := range polygons {
		polygon.Destroy()
	}

	c.Log.Infof("Final clean-ups took: %v", time.Since(start))
	return nil
}

// loadBombScope dissolves the merged bomb polygons into one scope geometry.
// Cleanup only applies inside it. No bomb polygons means no scoping.
func (c *Cleaner) loadBombScope() (*geos.Geom, error) {
	path := c.Naming.Merged(process.MergedBombPolygons)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	features, _, err := readShapefile(path)
	if err != nil {
		return nil, err
	}

	var polygons []*geos.Geom
	for _, feature := range features {
		polygon, ok := feature.Shape.(*shp.Polygon)
		if !ok || len(polygon.Points) < 4 {
			continue
		}
		ring := make([][]float64, 0, len(polygon.Points))
		for _, p := range polygon.Points {
			ring = append(ring, []float64{p.X, p.Y})
		}
		geom := geos.NewPolygon([][][]float64{ring})
		if geom == nil || !geom.IsValid() {
			if geom != nil {
				geom = geom.MakeValid()
			}
		}
		if geom != nil {
			polygons = append(polygons, geom)
		}
	}
	if len(polygons) == 0 {
		return nil, nil
	}

	scope, err := CascadedUnion(polygons)
	if err != nil {
		return nil, fmt.Errorf("failed to dissolve bomb polygons: %v", err)
	}
	return scope, nil
}

// CascadedUnion unions geometries pairwise, halving the list each level.
// It consumes its inputs.
func CascadedUnion(geometries []*geos.Geom) (*geos.Geom, error) {
	if len(geometries) == 0 {
		return nil, fmt.Errorf("nothing to union")
	}
	if len(geometries) == 1 {
		return geometries[0], nil
	}

	mid := len(geometries) / 2
	left, err := CascadedUnion(geometries[:mid])
	if err != nil {
		return nil, err
	}
	right, err := CascadedUnion(geometries[mid:])
	if err != nil {
		return nil, err
	}

	result := left.Union(right)
	left.Destroy()
	right.Destroy()
	return result, nil
}

// snapArcsToJoints moves every arc vertex that lies within tolerance of a
// recorded joint (and inside the bomb scope, when there is one) onto that
// joint, then drops the duplicate vertices snapping can create. Arcs with no
// vertex near any joint are passed through unchanged.
func snapArcsToJoints(arcs *smsmap.Map, index *JointIndex, scope *geos.Geom, tolerance float64) (*smsmap.Map, int) {
	cleaned := &smsmap.Map{
		Arcs:          make([]smsmap.Arc, 0, len(arcs.Arcs)),
		DetachedNodes: arcs.DetachedNodes,
	}

	snapped := 0
	for _, arc := range arcs.Arcs {
		touched := false
		points := make([]smsmap.Point, len(arc.Points))
		copy(points, arc.Points)

		for i, p := range points {
			joint, ok := index.Nearest(p.X, p.Y, tolerance)
			if !ok {
				continue
			}
			if scope != nil && !withinScope(scope, p) {
				continue
			}
			if joint != p {
				points[i] = joint
				touched = true
				snapped++
			}
		}

		if !touched {
			cleaned.Arcs = append(cleaned.Arcs, arc)
			continue
		}
		cleaned.Arcs = append(cleaned.Arcs, smsmap.Arc{Points: dedupeVertices(points)})
	}
	return cleaned, snapped
}

func withinScope(scope *geos.Geom, p smsmap.Point) bool {
	point := geos.NewPoint([]float64{p.X, p.Y})
	if point == nil {
		return false
	}
	defer point.Destroy()
	return scope.Intersects(point)
}

// dedupeVertices removes consecutive duplicates at coordinate precision.
// Only called on arcs that were actually snapped.
func dedupeVertices(points []smsmap.Point) []smsmap.Point {
	if len(points) == 0 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		last := out[len(out)-1]
		lx, ly := utils.TruncateCoordinates(last.X, last.Y)
		px, py := utils.TruncateCoordinates(p.X, p.Y)
		if lx == px && ly == py {
			continue
		}
		out = append(out, p)
	}
	return out
}

// polygonizeArcs nodes the cleaned network and re-derives its enclosed
// polygons.
func polygonizeArcs(cleaned *smsmap.Map) []*geos.Geom {
	var lines []*geos.Geom
	for _, arc := range cleaned.Arcs {
		if len(arc.Points) < 2 {
			continue
		}
		coords := make([][]float64, 0, len(arc.Points))
		for _, p := range arc.Points {
			coords = append(coords, []float64{p.X, p.Y})
		}
		if line := geos.NewLineString(coords); line != nil {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	// Union first: polygonize needs a fully noded network, and arcs from
	// different workers cross without shared vertices.
	noded, err := CascadedUnion(lines)
	if err != nil {
		return nil
	}
	defer noded.Destroy()

	pieces := make([]*geos.Geom, 0, noded.NumGeometries())
	for i := 0; i < noded.NumGeometries(); i++ {
		pieces = append(pieces, noded.Geometry(i))
	}

	collection := geos.Polygonize(pieces)
	if collection == nil {
		return nil
	}
	defer collection.Destroy()

	var polygons []*geos.Geom
	for i := 0; i < collection.NumGeometries(); i++ {
		geom := collection.Geometry(i)
		if geom.TypeID() == 3 {
			polygons = append(polygons, geom.Clone())
		}
	}
	return polygons
}

// reportInvalid logs any re-derived polygon that is not valid. Diagnostic
// only; invalid polygons are still written.
func (c *Cleaner) reportInvalid(polygons []*geos.Geom) {
	for i, polygon := range polygons {
		if !polygon.IsValid() {
			c.Log.Warnf("Re-derived polygon %d is invalid: %s", i, polygon.IsValidReason())
		}
	}
}

// writePolygons persists the re-derived polygon set with a sequential ID
// attribute.
func (c *Cleaner) writePolygons(polygons []*geos.Geom) error {
	features := make([]shpFeature, 0, len(polygons))
	for i, polygon := range polygons {
		shape := polygonToShape(polygon)
		if shape == nil {
			continue
		}
		features = append(features, shpFeature{
			Shape: shape,
			Attrs: []string{strconv.Itoa(i)},
		})
	}
	fields := []shp.Field{shp.NumberField("ID", 10)}
	return writeShapefile(c.Naming.Merged(process.CleanedArcPolygons), shp.POLYGON, fields, features)
}

// polygonToShape flattens a GEOS polygon (outer ring plus holes) into a
// shapefile polygon with part offsets.
func polygonToShape(polygon *geos.Geom) *shp.Polygon {
	exterior := polygon.ExteriorRing()
	if exterior == nil {
		return nil
	}

	shape := &shp.Polygon{}
	appendRing := func(ring *geos.Geom) {
		seq := ring.CoordSeq()
		if seq == nil || seq.Size() < 4 {
			return
		}
		shape.Parts = append(shape.Parts, int32(len(shape.Points)))
		for i := 0; i < seq.Size(); i++ {
			shape.Points = append(shape.Points, shp.Point{X: seq.X(i), Y: seq.Y(i)})
		}
	}

	appendRing(exterior)
	for r := 0; r < polygon.NumInteriorRings(); r++ {
		appendRing(polygon.InteriorRing(r))
	}
	if len(shape.Points) == 0 {
		return nil
	}
	shape.NumParts = int32(len(shape.Parts))
	shape.NumPoints = int32(len(shape.Points))
	shape.Box = pointsBox(shape.Points)
	return shape
}
