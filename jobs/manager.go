// Package jobs provides background job processing functionality.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// cleanupInterval is how often the orphan cleanup sweeps the upload directory.
const cleanupInterval = 6 * time.Hour

// JobManager handles background job execution
type JobManager struct {
	cleanupJob *OrphanCleanupJob
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.RWMutex
}

// NewJobManager creates a new job manager
func NewJobManager(cleanupJob *OrphanCleanupJob) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		cleanupJob: cleanupJob,
		ctx:        ctx,
		cancel:     cancel,
		running:    false,
	}
}

// Start begins the job manager background processing
func (jm *JobManager) Start() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jm.running {
		log.Println("Job manager is already running")
		return
	}

	jm.running = true
	log.Println("Starting job manager...")

	jm.wg.Add(1)
	go jm.runPeriodicCleanup()
}

// Stop stops the job manager and waits for in-flight jobs to finish.
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if !jm.running {
		return
	}

	log.Println("Stopping job manager...")
	jm.cancel()
	jm.running = false

	jm.wg.Wait()
	log.Println("Job manager stopped")
}

// IsRunning returns whether the job manager is currently running
func (jm *JobManager) IsRunning() bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return jm.running
}

// TriggerCleanup runs one orphan cleanup sweep immediately. The running
// check and wg.Add happen under mu so a trigger can never race Stop's Wait.
func (jm *JobManager) TriggerCleanup() {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	if jm.cleanupJob == nil {
		log.Println("Cannot trigger cleanup: no cleanup job configured")
		return
	}
	if !jm.running {
		log.Println("Cannot trigger cleanup: job manager is not running")
		return
	}

	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		if err := jm.cleanupJob.Run(); err != nil {
			log.Printf("Orphan cleanup failed: %v", err)
		}
	}()
}

// runPeriodicCleanup runs the orphan cleanup job periodically.
func (jm *JobManager) runPeriodicCleanup() {
	defer jm.wg.Done()

	if jm.cleanupJob == nil {
		log.Println("No cleanup job configured, skipping periodic cleanup")
		<-jm.ctx.Done()
		return
	}

	if err := jm.cleanupJob.Run(); err != nil {
		log.Printf("Initial orphan cleanup failed: %v", err)
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-jm.ctx.Done():
			log.Println("Periodic orphan cleanup stopped")
			return
		case <-ticker.C:
			log.Println("Running periodic orphan cleanup...")
			if err := jm.cleanupJob.Run(); err != nil {
				log.Printf("Periodic orphan cleanup failed: %v", err)
			}
		}
	}
}
