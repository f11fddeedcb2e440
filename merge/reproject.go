package merge

import (
	"fmt"
	"math"

	"github.com/everystreet/go-proj/v8/proj"
	shp "github.com/jonas-p/go-shp"
)

// CanonicalCRS is the single reference frame all merged shapefile outputs
// are expressed in.
const CanonicalCRS = "EPSG:4326"

// reprojectPoints transforms vertices from srcCRS to the canonical frame in
// place. A matching or empty source CRS is a no-op.
func reprojectPoints(points []shp.Point, srcCRS string) error {
	if srcCRS == "" || srcCRS == CanonicalCRS || len(points) == 0 {
		return nil
	}

	coords := make([]proj.XY, len(points))
	for i, p := range points {
		coords[i] = proj.XY{X: p.X, Y: p.Y}
	}

	err := proj.CRSToCRS(srcCRS, CanonicalCRS, func(pj proj.Projection) {
		for i := range coords {
			proj.TransformForward(pj, &coords[i])
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up %s -> %s transform: %v", srcCRS, CanonicalCRS, err)
	}
	// TransformForward reports nothing; a failed transform leaves non-finite
	// coordinates behind.
	if i, ok := firstNonFinite(coords); ok {
		return fmt.Errorf("failed to reproject %s -> %s: vertex %d is not finite", srcCRS, CanonicalCRS, i)
	}

	for i := range points {
		points[i].X = coords[i].X
		points[i].Y = coords[i].Y
	}
	return nil
}

// firstNonFinite returns the index of the first NaN or infinite coordinate.
func firstNonFinite(coords []proj.XY) (int, bool) {
	for i, c := range coords {
		if math.IsNaN(c.X) || math.IsInf(c.X, 0) || math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
			return i, true
		}
	}
	return 0, false
}
