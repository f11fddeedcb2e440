package tilecache

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bsaid97/go-river-driver/grouping"
)

// warmJob is one tile file to pre-parse.
type warmJob struct {
	File string
}

// warmResult reports the outcome for one tile file.
type warmResult struct {
	File       string
	FreshCache bool
	Error      error
}

// warmPool runs pre-warm jobs on a fixed set of goroutines. There is no
// ordering requirement between files, only that every file in the share is
// parsed once.
type warmPool struct {
	numWorkers int
	jobs       chan warmJob
	results    chan warmResult
	wg         sync.WaitGroup
}

func newWarmPool(numWorkers int, buffer int) *warmPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &warmPool{
		numWorkers: numWorkers,
		jobs:       make(chan warmJob, buffer),
		results:    make(chan warmResult, buffer),
	}
}

func (wp *warmPool) start(workFunc func(warmJob) warmResult) {
	wp.wg.Add(wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobs {
				wp.results <- workFunc(job)
			}
		}()
	}
}

// Prewarm parses this rank's share of the deduplicated tile-file list so a
// later sequential group-processing pass only ever reads warm sidecars. The
// share uses the same near-equal partition arithmetic as group assignment.
// With validate set, every file in the share is re-parsed and checked
// against its sidecar, and the log tells fresh caches from validated ones.
func (c *Cache) Prewarm(files []string, size, rank int, validate bool, log *logrus.Logger) error {
	share := grouping.PartitionStrings(files, size, rank)
	if len(share) == 0 {
		return nil
	}

	pool := newWarmPool(runtime.NumCPU(), len(share))
	pool.start(func(job warmJob) warmResult {
		if validate {
			fresh, err := c.Validate(job.File)
			return warmResult{File: job.File, FreshCache: fresh, Error: err}
		}
		_, fresh, err := c.GetOrParse(job.File)
		return warmResult{File: job.File, FreshCache: fresh, Error: err}
	})

	for _, file := range share {
		pool.jobs <- warmJob{File: file}
	}
	close(pool.jobs)

	var firstErr error
	for i := 0; i < len(share); i++ {
		result := <-pool.results
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
			}
			log.Errorf("[Rank %d] pre-caching %s failed: %v", rank, result.File, result.Error)
			continue
		}
		if result.FreshCache {
			log.Infof("[Rank %d] cached DEM %s", rank, result.File)
		} else if validate {
			log.Infof("[Rank %d] validated existing cache for %s", rank, result.File)
		}
	}

	pool.wg.Wait()
	close(pool.results)

	if firstErr != nil {
		return fmt.Errorf("pre-caching failed on rank %d: %v", rank, firstErr)
	}
	return nil
}

// UniqueFiles deduplicates the per-group tile-file lists while keeping first
// appearance order.
func UniqueFiles(groupFiles [][]string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, group := range groupFiles {
		for _, file := range group {
			if file == "" || seen[file] {
				continue
			}
			seen[file] = true
			unique = append(unique, file)
		}
	}
	return unique
}
