package scanner

import (
	"errors"
	"fmt"
	"testing"
)

func TestProgressTrackerDrainsBeforeReporting(t *testing.T) {
	// Fill the channel's buffer completely, then close it. The counts must
	// cover every result once wait returns, not just the ones consumed so
	// far.
	const total = 100
	resultsChan := make(chan ProcessImageResult, total)
	tracker := setupProgressTracker(FileStats{totalFiles: total}, false, resultsChan)

	for i := 0; i < total; i++ {
		result := ProcessImageResult{Path: fmt.Sprintf("img%03d.tif", i), Success: true}
		if i%10 == 0 {
			result.Success = false
			result.Error = errors.New("extraction failed")
		}
		resultsChan <- result
	}
	close(resultsChan)

	tracker.wait()
	tracker.stop()

	if got := tracker.Processed(); got != total {
		t.Errorf("Expected %d processed after drain, got %d", total, got)
	}
	if got := tracker.Errors(); got != 10 {
		t.Errorf("Expected 10 errors after drain, got %d", got)
	}
}
