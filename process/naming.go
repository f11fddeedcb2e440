// Package process runs the external river-geometry routine over a rank's
// tile groups and owns the output naming scheme shared with the merger.
package process

import (
	"fmt"
	"path/filepath"
)

// Naming is the one shared naming scheme: GroupProcessor writes artifacts
// under a prefix built here, and ResultMerger discovers them with the glob
// patterns built here. Keeping both sides in one type makes the filename
// convention an explicit contract instead of two strings that happen to
// agree.
type Naming struct {
	OutputDir string
}

// Prefix returns the collision-free artifact prefix for one group run:
// global group id, owning rank and the rank-local ordinal are all embedded,
// so concurrent workers can write into the shared output directory without
// coordination.
func (n Naming) Prefix(globalID, rank, ordinal int) string {
	return fmt.Sprintf("Group_%d_%d_%d_", globalID, rank, ordinal)
}

// Map artifact categories, merged by glob.
const (
	PatternTotalArcs     = "*_total_arcs.map"
	PatternJoints        = "*intersection_joints*.map"
	PatternRiverArcs     = "*river_arcs.map"
	PatternCenterlines   = "*centerlines.map"
	PatternBanksFinal    = "*bank_final*.map"
	PatternRiverOutline  = "*river_outline*.shp"
	PatternBombPolygons  = "*bomb*.shp"
	MergedTotalArcs      = "total_arcs.map"
	MergedJoints         = "total_intersection_joints.map"
	MergedRiverArcs      = "total_river_arcs.map"
	MergedCenterlines    = "total_centerlines.map"
	MergedBanksFinal     = "total_banks_final.map"
	MergedRiverOutline   = "total_river_outline.shp"
	MergedBombPolygons   = "total_bomb_polygons.shp"
	CleanedArcPolygons   = "total_river_arc_polygons.shp"
)

// Glob returns the discovery pattern for a category inside the output dir.
func (n Naming) Glob(pattern string) string {
	return filepath.Join(n.OutputDir, pattern)
}

// Merged returns the path of a merged artifact inside the output dir.
func (n Naming) Merged(name string) string {
	return filepath.Join(n.OutputDir, name)
}
