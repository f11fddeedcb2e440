// Package riverdriver coordinates the distributed generation of river maps:
// thalwegs are grouped by the DEM tiles they need, groups are dealt out to a
// fixed set of ranks, each rank feeds its groups to the external
// river-geometry routine one at a time, and the coordinator merges all
// partial outputs and repairs the seams between subdomains.
package riverdriver

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsaid97/go-river-driver/comm"
	"github.com/bsaid97/go-river-driver/grouping"
	"github.com/bsaid97/go-river-driver/merge"
	"github.com/bsaid97/go-river-driver/process"
	"github.com/bsaid97/go-river-driver/tilecache"
	"github.com/bsaid97/go-river-driver/utils"
)

// Run executes one full pipeline pass for this rank. Every rank of the group
// calls Run with the same configuration; phases are separated by collective
// barriers, and grouping, merging and cleanup only happen on the
// coordinator. The maker is the external river-geometry routine, the parser
// the external DEM raster decoder.
func Run(cfg Config, ctx comm.Context, maker process.MapMaker, parser tilecache.Parser) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cfg.Logger

	start := time.Now()
	if ctx.IsCoordinator() {
		log.Info("---------------------------------grouping thalwegs---------------------------------")
		log.Infof("A total of %d core(s) used.", ctx.Size())
	}
	if err := ctx.Barrier(); err != nil {
		return err
	}

	g, err := distributeGrouping(cfg, ctx, parser, log)
	if err != nil {
		return err
	}

	if err := ctx.Barrier(); err != nil {
		return err
	}
	if ctx.IsCoordinator() {
		log.Info("---------------------------------caching DEM tiles---------------------------------")
	}
	if err := ctx.Barrier(); err != nil {
		return err
	}

	if cfg.UseDEMCache {
		cache := &tilecache.Cache{Parser: parser}
		unique := tilecache.UniqueFiles(g.GroupFiles)
		if err := cache.Prewarm(unique, ctx.Size(), ctx.Rank(), cfg.ValidateDEMCache, log); err != nil {
			return err
		}
	}

	if err := ctx.Barrier(); err != nil {
		return err
	}
	if ctx.IsCoordinator() {
		log.Info("---------------------------------assign groups to each core---------------------------------")
	}
	if err := ctx.Barrier(); err != nil {
		return err
	}

	myGroups := grouping.Partition(g.NumGroups(), ctx.Size(), ctx.Rank())
	log.Infof("Rank %d handles groups %v", ctx.Rank(), myGroups)

	if err := ctx.Barrier(); err != nil {
		return err
	}
	if ctx.IsCoordinator() {
		log.Info("---------------------------------beginning map generation---------------------------------")
	}
	if err := ctx.Barrier(); err != nil {
		return err
	}

	naming := process.Naming{OutputDir: cfg.OutputDir}
	if err := process.ProcessGroups(maker, g, cfg.ThalwegShp, naming, myGroups, ctx.Rank(), log); err != nil {
		return err
	}

	if err := ctx.Barrier(); err != nil {
		return err
	}

	if ctx.IsCoordinator() {
		merger := &merge.Merger{Naming: naming, SourceCRS: cfg.SourceCRS, Log: log}
		totalArcs, joints, err := merger.MergeOutputs()
		if err != nil {
			return err
		}
		cleaner := &merge.Cleaner{
			Naming:           naming,
			SnapToleranceDeg: utils.CalculateWGS84ToleranceFromMeters(cfg.SnapToleranceMeters),
			Log:              log,
		}
		if err := cleaner.CleanBoundaries(totalArcs, joints); err != nil {
			return err
		}
		log.Infof(">>>>>>>> Total run time: %v >>>>>>>>", time.Since(start))
	}
	return nil
}

// distributeGrouping computes or loads the grouping on the coordinator,
// clears the output directory, and broadcasts the grouping by value to every
// rank.
func distributeGrouping(cfg Config, ctx comm.Context, parser tilecache.Parser, log *logrus.Logger) (*grouping.Grouping, error) {
	var payload []byte
	if ctx.IsCoordinator() {
		groupingStart := time.Now()
		if err := utils.SilentRemove(cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to clear output directory: %v", err)
		}
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %v", err)
		}

		g, err := loadOrComputeGrouping(cfg, parser, log)
		if err != nil {
			return nil, err
		}
		logGroups(g, log)
		log.Infof("Grouping took: %v", time.Since(groupingStart))

		payload, err = g.Encode()
		if err != nil {
			return nil, err
		}
	}

	received, err := ctx.Broadcast(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to receive grouping broadcast: %v", err)
	}
	return grouping.DecodeGrouping(received)
}

func loadOrComputeGrouping(cfg Config, parser tilecache.Parser, log *logrus.Logger) (*grouping.Grouping, error) {
	store := &grouping.Store{Dir: cfg.CacheDir}

	if cfg.UseGroupingCache {
		if g, ok := store.TryLoad(cfg.DemsJSON, cfg.ThalwegShp); ok {
			log.Info("Reading grouping info from cache ...")
			return g, nil
		}
		log.Infof("Grouping cache does not exist at %s. Cache will be generated after grouping.", cfg.CacheDir)
	}

	manifest, err := grouping.ReadManifest(cfg.DemsJSON)
	if err != nil {
		return nil, err
	}
	if err := resolveExtents(manifest, parser); err != nil {
		return nil, err
	}
	thalwegs, err := grouping.ReadThalwegs(cfg.ThalwegShp)
	if err != nil {
		return nil, err
	}

	g, err := grouping.Compute(manifest, thalwegs, cfg.ThalwegBuffer)
	if err != nil {
		return nil, err
	}

	// Written regardless of the read flag, like the tile sidecars.
	if err := store.Save(cfg.DemsJSON, cfg.ThalwegShp, g); err != nil {
		log.Warnf("Failed to save grouping cache: %v", err)
	}
	return g, nil
}

// resolveExtents fills manifest entries that carry no boundary by parsing
// the tile itself (through the cache, so the parse is not wasted).
func resolveExtents(manifest *grouping.Manifest, parser tilecache.Parser) error {
	cache := &tilecache.Cache{Parser: parser}
	for i, entry := range manifest.Tiles {
		if len(entry.Boundary) == 4 {
			continue
		}
		data, _, err := cache.GetOrParse(entry.File)
		if err != nil {
			return fmt.Errorf("failed to resolve extent of %q: %v", entry.File, err)
		}
		manifest.Tiles[i].Boundary = []float64{data.MinX, data.MinY, data.MaxX, data.MaxY}
	}
	return nil
}

func logGroups(g *grouping.Grouping, log *logrus.Logger) {
	log.Infof("Thalwegs are divided into %d groups.", g.NumGroups())
	for i := 0; i < g.NumGroups(); i++ {
		log.Infof("[ Group %d ]-----------------------------------------------------------------------", i+1)
		log.Infof("Group %d includes the following thalwegs (idx starts from 0): %v", i+1, g.GroupThalwegs[i])
		log.Infof("Group %d needs the following DEMs: %v", i+1, g.GroupFiles[i])
	}
}
