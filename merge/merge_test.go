package merge

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/everystreet/go-proj/v8/proj"
	shp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-river-driver/process"
	"github.com/bsaid97/go-river-driver/smsmap"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	return log
}

func writeTestPolygons(t *testing.T, path string, count int) {
	t.Helper()
	features := make([]shpFeature, 0, count)
	for i := 0; i < count; i++ {
		base := float64(i * 10)
		points := []shp.Point{
			{X: base, Y: 0}, {X: base + 1, Y: 0},
			{X: base + 1, Y: 1}, {X: base, Y: 1},
			{X: base, Y: 0},
		}
		features = append(features, shpFeature{
			Shape: &shp.Polygon{
				Box:       pointsBox(points),
				NumParts:  1,
				NumPoints: int32(len(points)),
				Parts:     []int32{0},
				Points:    points,
			},
			Attrs: []string{"0"},
		})
	}
	require.NoError(t, writeShapefile(path, shp.POLYGON, nil, features))
}

func writeTestMap(t *testing.T, path string, arcs int) {
	t.Helper()
	m := &smsmap.Map{}
	for i := 0; i < arcs; i++ {
		x := float64(i)
		m.Arcs = append(m.Arcs, smsmap.Arc{Points: []smsmap.Point{{X: x, Y: 0}, {X: x + 1, Y: 1}}})
	}
	require.NoError(t, m.Write(path))
}

func TestMergeOutputsUnionsEveryCategory(t *testing.T) {
	dir := t.TempDir()
	naming := process.Naming{OutputDir: dir}

	// Two ranks' worth of partial artifacts.
	for rank := 0; rank < 2; rank++ {
		prefix := naming.Prefix(rank, rank, 0)
		writeTestMap(t, filepath.Join(dir, prefix+"total_arcs.map"), rank+1)
		writeTestMap(t, filepath.Join(dir, prefix+"intersection_joints.map"), 0)
		writeTestMap(t, filepath.Join(dir, prefix+"river_arcs.map"), 1)
		writeTestMap(t, filepath.Join(dir, prefix+"centerlines.map"), 1)
		writeTestMap(t, filepath.Join(dir, prefix+"bank_final.map"), 1)
		writeTestPolygons(t, filepath.Join(dir, prefix+"river_outline.shp"), 2)
		writeTestPolygons(t, filepath.Join(dir, prefix+"bomb_polygons.shp"), 1)
	}

	merger := &Merger{Naming: naming, SourceCRS: "", Log: quietLog()}
	arcs, joints, err := merger.MergeOutputs()
	require.NoError(t, err)

	assert.Len(t, arcs.Arcs, 3, "1 arc from rank 0 plus 2 from rank 1")
	assert.True(t, joints.IsEmpty())

	onDisk, err := smsmap.Read(naming.Merged(process.MergedTotalArcs))
	require.NoError(t, err)
	assert.Equal(t, arcs, onDisk)
}

func TestMergeShapefilesFeatureCountIsTheSum(t *testing.T) {
	dir := t.TempDir()
	naming := process.Naming{OutputDir: dir}

	writeTestPolygons(t, filepath.Join(dir, "Group_0_0_0_river_outline.shp"), 2)
	writeTestPolygons(t, filepath.Join(dir, "Group_1_1_0_river_outline.shp"), 3)

	merger := &Merger{Naming: naming, SourceCRS: "", Log: quietLog()}
	require.NoError(t, merger.MergeShapefiles(process.PatternRiverOutline, process.MergedRiverOutline, shp.POLYGON))

	features, _, err := readShapefile(naming.Merged(process.MergedRiverOutline))
	require.NoError(t, err)
	assert.Len(t, features, 5)
}

func TestMergeShapefilesRerunDoesNotDoubleFeatures(t *testing.T) {
	dir := t.TempDir()
	naming := process.Naming{OutputDir: dir}
	writeTestPolygons(t, filepath.Join(dir, "Group_0_0_0_river_outline.shp"), 2)

	merger := &Merger{Naming: naming, SourceCRS: "", Log: quietLog()}
	require.NoError(t, merger.MergeShapefiles(process.PatternRiverOutline, process.MergedRiverOutline, shp.POLYGON))
	require.NoError(t, merger.MergeShapefiles(process.PatternRiverOutline, process.MergedRiverOutline, shp.POLYGON))

	features, _, err := readShapefile(naming.Merged(process.MergedRiverOutline))
	require.NoError(t, err)
	assert.Len(t, features, 2, "the merged file must not feed its own re-run")
}

func TestMergeShapefilesEmptyCategoryWritesValidEmptyFile(t *testing.T) {
	dir := t.TempDir()
	naming := process.Naming{OutputDir: dir}

	merger := &Merger{Naming: naming, SourceCRS: "", Log: quietLog()}
	require.NoError(t, merger.MergeShapefiles(process.PatternBombPolygons, process.MergedBombPolygons, shp.POLYGON))

	features, _, err := readShapefile(naming.Merged(process.MergedBombPolygons))
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestFirstNonFiniteFlagsFailedTransforms(t *testing.T) {
	finite := []proj.XY{{X: -77.035, Y: 38.889}, {X: 0, Y: 0}}
	_, ok := firstNonFinite(finite)
	assert.False(t, ok)

	for _, bad := range []proj.XY{
		{X: math.NaN(), Y: 0},
		{X: 0, Y: math.NaN()},
		{X: math.Inf(1), Y: 0},
		{X: 0, Y: math.Inf(-1)},
	} {
		i, ok := firstNonFinite([]proj.XY{{X: 1, Y: 1}, bad})
		assert.True(t, ok)
		assert.Equal(t, 1, i)
	}
}

func TestReprojectIsIdentityForCanonicalAndUnsetCRS(t *testing.T) {
	points := []shp.Point{{X: -77.035, Y: 38.889}}
	original := append([]shp.Point(nil), points...)

	require.NoError(t, reprojectPoints(points, ""))
	assert.Equal(t, original, points)

	require.NoError(t, reprojectPoints(points, CanonicalCRS))
	assert.Equal(t, original, points)
}
