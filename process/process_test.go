package process

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-river-driver/grouping"
)

// recordingMaker captures every request instead of generating maps.
type recordingMaker struct {
	requests []Request
	failAt   int
}

func (m *recordingMaker) MakeRiverMap(req Request) error {
	m.requests = append(m.requests, req)
	if m.failAt > 0 && len(m.requests) == m.failAt {
		return errors.New("raster went missing")
	}
	return nil
}

func testGrouping() *grouping.Grouping {
	return &grouping.Grouping{
		ThalwegToGroup: []int{0, 1, 0, 2},
		GroupFiles:     [][]string{{"west.tif"}, {"east.tif", "west.tif"}, {}},
		GroupThalwegs:  [][]int{{0, 2}, {1}, {3}},
	}
}

func TestProcessGroupsFeedsExactlyTheOwnedGroups(t *testing.T) {
	maker := &recordingMaker{}
	naming := Naming{OutputDir: "/out"}

	err := ProcessGroups(maker, testGrouping(), "thalwegs.shp", naming, []int{1, 2}, 3, logrus.New())
	require.NoError(t, err)
	require.Len(t, maker.requests, 2)

	first := maker.requests[0]
	assert.Equal(t, []string{"east.tif", "west.tif"}, first.TileFiles)
	assert.Equal(t, []int{1}, first.SelectedIdx)
	assert.Equal(t, "thalwegs.shp", first.ThalwegShp)
	assert.Equal(t, "/out", first.OutputDir)
	assert.Equal(t, "Group_1_3_0_", first.OutputPrefix)

	// An empty tile-file list is still processed, not dropped.
	second := maker.requests[1]
	assert.Empty(t, second.TileFiles)
	assert.Equal(t, []int{3}, second.SelectedIdx)
	assert.Equal(t, "Group_2_3_1_", second.OutputPrefix)
}

func TestProcessGroupsFailsFastWithGroupDiagnostic(t *testing.T) {
	maker := &recordingMaker{failAt: 1}
	naming := Naming{OutputDir: "/out"}

	err := ProcessGroups(maker, testGrouping(), "thalwegs.shp", naming, []int{0, 1}, 0, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global: 0")
	assert.Len(t, maker.requests, 1, "no group after the failing one may run")
}

func TestPrefixesAreCollisionFreeAcrossRanksAndOrdinals(t *testing.T) {
	naming := Naming{OutputDir: "/out"}
	seen := make(map[string]bool)
	for rank := 0; rank < 3; rank++ {
		for ordinal := 0; ordinal < 4; ordinal++ {
			prefix := naming.Prefix(rank*4+ordinal, rank, ordinal)
			assert.False(t, seen[prefix], "duplicate prefix %s", prefix)
			seen[prefix] = true
		}
	}
}

func TestProcessorOutputNamesMatchMergerPatterns(t *testing.T) {
	naming := Naming{OutputDir: "/out"}
	prefix := naming.Prefix(7, 1, 0)

	cases := map[string]string{
		prefix + "total_arcs.map":          PatternTotalArcs,
		prefix + "intersection_joints.map": PatternJoints,
		prefix + "river_arcs.map":          PatternRiverArcs,
		prefix + "centerlines.map":         PatternCenterlines,
		prefix + "bank_final.map":          PatternBanksFinal,
		prefix + "river_outline.shp":       PatternRiverOutline,
		prefix + "bomb_polygons.shp":       PatternBombPolygons,
	}
	for name, pattern := range cases {
		ok, err := filepath.Match(pattern, name)
		require.NoError(t, err)
		assert.True(t, ok, "%s must match %s", name, pattern)
	}
}

func TestMergedArtifactsDoNotMatchPartialPatterns(t *testing.T) {
	// The merged arc network must not be re-consumed as a partial input.
	ok, err := filepath.Match(PatternTotalArcs, MergedTotalArcs)
	require.NoError(t, err)
	assert.False(t, ok)
}
