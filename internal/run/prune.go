package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Deleted     int
	DirsRemoved int
}

// Prune deletes old run records per the retention policy and removes run
// directories that no longer have a row in the store.
func (p *Pipeline) Prune(ctx context.Context, keepLast, keepDays int) (PruneResult, error) {
	lock, err := AcquireLock(p.dataDir)
	if err != nil {
		return PruneResult{}, err
	}
	defer lock.Release()

	deleted, err := p.store.PruneRuns(ctx, keepLast, keepDays)
	if err != nil {
		return PruneResult{}, err
	}

	kept, err := p.store.ListRuns(ctx)
	if err != nil {
		return PruneResult{Deleted: deleted}, err
	}
	alive := make(map[string]bool, len(kept))
	for _, rec := range kept {
		alive[rec.RunID] = true
	}

	runsDir := filepath.Join(p.dataDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if os.IsNotExist(err) {
		return PruneResult{Deleted: deleted}, nil
	}
	if err != nil {
		return PruneResult{Deleted: deleted}, fmt.Errorf("read runs dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || alive[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(runsDir, entry.Name())); err != nil {
			log.Warn().Err(err).Str("run_id", entry.Name()).Msg("failed to remove run dir")
			continue
		}
		removed++
	}

	return PruneResult{Deleted: deleted, DirsRemoved: removed}, nil
}
