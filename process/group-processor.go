package process

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsaid97/go-river-driver/grouping"
)

// Request is one invocation of the external river-geometry routine: exactly
// one tile group's DEM files and thalweg subset, plus where and under what
// prefix to write.
type Request struct {
	TileFiles    []string
	ThalwegShp   string
	SelectedIdx  []int
	OutputDir    string
	OutputPrefix string
	LogPrefix    string
}

// MapMaker is the external river-geometry routine. It is assumed stateful
// and non-reentrant per invocation, which is why a rank's groups are fed to
// it one at a time.
type MapMaker interface {
	MakeRiverMap(req Request) error
}

// ProcessGroups runs the rank's share of the group list strictly
// sequentially. A group failure is not retried or isolated; it aborts with a
// diagnostic naming the rank, the rank-local ordinal and the global group
// id. (Skip-and-record was considered and deliberately not implemented.)
func ProcessGroups(maker MapMaker, g *grouping.Grouping, thalwegShp string, naming Naming, groupIDs []int, rank int, log *logrus.Logger) error {
	start := time.Now()
	for ordinal, groupID := range groupIDs {
		groupStart := time.Now()
		log.Infof("Rank %d: Group %d of %d (global: %d) started ...", rank, ordinal+1, len(groupIDs), groupID)

		req := Request{
			TileFiles:    g.GroupFiles[groupID],
			ThalwegShp:   thalwegShp,
			SelectedIdx:  g.GroupThalwegs[groupID],
			OutputDir:    naming.OutputDir,
			OutputPrefix: naming.Prefix(groupID, rank, ordinal),
			LogPrefix:    fmt.Sprintf("[Rank %d, Group %d of %d, global: %d] ", rank, ordinal+1, len(groupIDs), groupID),
		}
		if err := maker.MakeRiverMap(req); err != nil {
			return fmt.Errorf("rank %d: group %d (global: %d) failed: %v", rank, ordinal+1, groupID, err)
		}

		log.Infof("Rank %d: Group %d (global: %d) run time: %v", rank, ordinal+1, groupID, time.Since(groupStart))
	}
	log.Infof("Rank %d: total run time: %v", rank, time.Since(start))
	return nil
}
