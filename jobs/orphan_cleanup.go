package jobs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// orphanGracePeriod keeps freshly written files out of a sweep so an upload
// whose metadata write is still in flight is never reaped.
const orphanGracePeriod = 24 * time.Hour

// PathLister is the slice of the catalog store the cleanup needs: the set of
// storage names still referenced by a quality row.
type PathLister interface {
	ActiveFilePaths() (map[string]bool, error)
}

// OrphanCleanupJob removes files from the upload directory that no quality
// row references anymore. Per-request compensation already cleans up failed
// uploads; this job catches whatever slipped through a crash in between.
type OrphanCleanupJob struct {
	dir     string
	catalog PathLister
}

// NewOrphanCleanupJob creates a new orphan cleanup job over the upload directory.
func NewOrphanCleanupJob(dir string, catalog PathLister) *OrphanCleanupJob {
	return &OrphanCleanupJob{dir: dir, catalog: catalog}
}

// Run performs one sweep. Files younger than the grace period are skipped.
func (j *OrphanCleanupJob) Run() error {
	active, err := j.catalog.ActiveFilePaths()
	if err != nil {
		return fmt.Errorf("failed to list active file paths: %w", err)
	}

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || active[entry.Name()] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Printf("Failed to stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove orphaned file %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Orphan cleanup removed %d file(s)", removed)
	}
	return nil
}
