// Package merge combines every worker's partial outputs into unified global
// artifacts and repairs the seams between worker subdomains.
package merge

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	shp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"

	"github.com/bsaid97/go-river-driver/process"
	"github.com/bsaid97/go-river-driver/smsmap"
)

// Merger unions partial outputs discovered by filename pattern in the
// shared output directory. Runs once, on the coordinator, after the final
// processing barrier.
type Merger struct {
	Naming    process.Naming
	SourceCRS string
	Log       *logrus.Logger
}

// MergeOutputs merges every artifact category and returns the merged arc
// network and the merged intersection-joint record, which boundary cleanup
// consumes. A category with zero contributing files yields a valid empty
// merged artifact, never an error.
func (m *Merger) MergeOutputs() (*smsmap.Map, *smsmap.Map, error) {
	m.Log.Info("------------------ merging outputs from all cores --------------")
	start := time.Now()

	totalArcs, err := m.mergeMaps(process.PatternTotalArcs, process.MergedTotalArcs)
	if err != nil {
		return nil, nil, err
	}
	joints, err := m.mergeMaps(process.PatternJoints, process.MergedJoints)
	if err != nil {
		return nil, nil, err
	}
	if _, err := m.mergeMaps(process.PatternRiverArcs, process.MergedRiverArcs); err != nil {
		return nil, nil, err
	}
	if _, err := m.mergeMaps(process.PatternCenterlines, process.MergedCenterlines); err != nil {
		return nil, nil, err
	}
	if _, err := m.mergeMaps(process.PatternBanksFinal, process.MergedBanksFinal); err != nil {
		return nil, nil, err
	}

	if err := m.MergeShapefiles(process.PatternRiverOutline, process.MergedRiverOutline, shp.POLYGON); err != nil {
		return nil, nil, err
	}
	if err := m.MergeShapefiles(process.PatternBombPolygons, process.MergedBombPolygons, shp.POLYGON); err != nil {
		return nil, nil, err
	}

	m.Log.Infof("Merging outputs took: %v", time.Since(start))
	return totalArcs, joints, nil
}

func (m *Merger) mergeMaps(pattern, mergedName string) (*smsmap.Map, error) {
	merged, err := smsmap.Merge(m.Naming.Glob(pattern), m.Naming.Merged(mergedName))
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s: %v", pattern, err)
	}
	return merged, nil
}

// MergeShapefiles concatenates every shapefile matching the category
// pattern, reprojects all coordinates to the canonical frame and writes one
// merged shapefile. Field layout comes from the first contributing file.
func (m *Merger) MergeShapefiles(pattern, mergedName string, fallback shp.ShapeType) error {
	mergedPath := m.Naming.Merged(mergedName)
	matches, err := filepath.Glob(m.Naming.Glob(pattern))
	if err != nil {
		return fmt.Errorf("bad shapefile glob %q: %v", pattern, err)
	}
	sort.Strings(matches)

	var all []shpFeature
	var fields []shp.Field
	for _, match := range matches {
		if match == mergedPath {
			continue
		}
		features, fileFields, err := readShapefile(match)
		if err != nil {
			return err
		}
		if fields == nil && len(fileFields) > 0 {
			fields = fileFields
		}
		for _, feature := range features {
			points := shapePoints(feature.Shape)
			if err := reprojectPoints(points, m.SourceCRS); err != nil {
				return err
			}
			setShapePoints(feature.Shape, points)
		}
		all = append(all, features...)
	}

	if err := writeShapefile(mergedPath, shapeType(all, fallback), fields, all); err != nil {
		return err
	}
	m.Log.Infof("Merged %d features from %d files into %s", len(all), len(matches), mergedName)
	return nil
}
