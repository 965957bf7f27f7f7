package scanner

import (
	"fmt"
	"sync"
	"time"

	"scalegrid/logging"
)

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	processed  int
	errors     int
	ticker     *time.Ticker
	done       chan bool
	drained    chan struct{}
	mu         sync.Mutex
	totalFiles int
	verbose    bool
}

// setupProgressTracker initializes the progress tracker and starts its
// display and result-consuming goroutines
func setupProgressTracker(stats FileStats, verbose bool, resultsChan chan ProcessImageResult) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		drained:    make(chan struct{}),
		totalFiles: stats.totalFiles,
		verbose:    verbose,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			if !p.verbose {
				continue
			}
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Errors: %d)", p.processed, p.totalFiles, p.errors)
			} else {
				fmt.Printf("\rProgress: %d/%d", p.processed, p.totalFiles)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on extraction results and
// signals once the channel is fully drained
func (p *ProgressTracker) processResults(resultsChan chan ProcessImageResult) {
	defer close(p.drained)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if !result.Success {
			p.errors++
			if result.Error != nil {
				logging.LogImageProcessed(result.Path, false, result.Error.Error())
			}
		} else {
			logging.LogImageProcessed(result.Path, true, "")
		}

		p.mu.Unlock()
	}
}

// Processed returns how many files have been handled so far
func (p *ProgressTracker) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

// Errors returns how many files failed extraction
func (p *ProgressTracker) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}

// wait blocks until every buffered result has been consumed. Callers must
// close the results channel first. The counts are final afterwards.
func (p *ProgressTracker) wait() {
	<-p.drained
}

// stop ends the progress tracking
func (p *ProgressTracker) stop() {
	p.ticker.Stop()
	p.done <- true
}
