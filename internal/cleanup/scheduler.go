package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes stale yt-dlp artifacts (subtitle and
// media temp files) from the work directory. The downloaders clean up
// after themselves on the happy path; this catches what crashes and
// timeouts leave behind.
type Scheduler struct {
	workDir         string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler for the given work directory.
func NewScheduler(workDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		workDir:         workDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start runs an initial sweep and begins the periodic cleanup.
func (s *Scheduler) Start() {
	log.Println("Running initial work-dir cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// Only extensions yt-dlp runs produce; the work dir may be a shared
// temp directory, so nothing else is touched.
var staleExtensions = map[string]bool{
	".vtt":  true,
	".srt":  true,
	".json": true,
	".mp3":  true,
	".mp4":  true,
	".part": true,
}

func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
		return
	}

	var deletedCount int
	var deletedSize int64

	for _, entry := range entries {
		if entry.IsDir() || !staleExtensions[filepath.Ext(entry.Name())] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(s.workDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete stale file %s: %v", path, err)
			continue
		}
		deletedCount++
		deletedSize += info.Size()
		log.Printf("Deleted stale work file: %s (age: %s, size: %dKB)",
			entry.Name(), age.Round(time.Hour), info.Size()/1024)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// EnsureWorkDirExists creates the work directory if it doesn't exist.
func EnsureWorkDirExists(workDir string) error {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}
	log.Printf("Work directory ready: %s", workDir)
	return nil
}
