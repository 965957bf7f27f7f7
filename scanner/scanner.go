// Package scanner walks a sample folder, extracts acquisition metadata from
// every TIFF it finds using a bounded worker pool, and records the results
// in the catalog. The returned metadata map feeds the containment analysis.
package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scalegrid/database"
	"scalegrid/logging"
	"scalegrid/metadata"
	"scalegrid/types"
)

// ScanFolder scans a folder and returns the extracted metadata keyed by
// image path. Each successfully extracted record is also stored in the
// catalog when db is non-nil.
func ScanFolder(db *sql.DB, options ScanOptions) (map[string]types.ImageMetadata, error) {
	var wg sync.WaitGroup
	resultsChan := make(chan ProcessImageResult, 100)

	workers := options.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	semaphore := make(chan struct{}, workers)

	registry := metadata.NewExtractorRegistry()

	fileStats := countFilesToProcess(registry, options)
	printStartupInfo(fileStats, options)

	progressTracker := setupProgressTracker(fileStats, options.Verbose, resultsChan)

	extracted := make(map[string]types.ImageMetadata)
	var extractedMu sync.Mutex

	startTime := time.Now()
	err := filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			if err != nil && options.DebugMode {
				logging.LogError("Error accessing path %s: %v", path, err)
			}
			return nil
		}

		if !registry.CanExtract(path) {
			return nil
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(p string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := ProcessImageResult{Path: p}
			meta, extractErr := registry.Extract(p)
			if extractErr != nil {
				result.Error = fmt.Errorf("failed to extract metadata from %s: %v", p, extractErr)
				resultsChan <- result
				return
			}

			if db != nil {
				if storeErr := database.StoreImageMetadata(db, options.SampleID, meta, options.ForceRewrite); storeErr != nil {
					result.Error = storeErr
					resultsChan <- result
					return
				}
			}

			extractedMu.Lock()
			extracted[p] = meta
			extractedMu.Unlock()

			result.Success = true
			resultsChan <- result
		}(path)

		return nil
	})

	wg.Wait()
	close(resultsChan)
	progressTracker.wait()
	progressTracker.stop()

	printCompletionStats(progressTracker, startTime, options)

	return extracted, err
}

// countFilesToProcess counts the files the extractor chain can handle
func countFilesToProcess(registry *metadata.ExtractorRegistry, options ScanOptions) FileStats {
	stats := FileStats{}

	if options.DebugMode {
		logging.DebugLog("Starting metadata scan on folder: %s", options.FolderPath)
		logging.DebugLog("Force rewrite: %v, Sample: %s", options.ForceRewrite, options.SampleID)
	}

	filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if registry.CanExtract(path) {
			stats.totalFiles++
		}
		return nil
	})

	return stats
}

// printStartupInfo displays information about the scan before starting
func printStartupInfo(stats FileStats, options ScanOptions) {
	if !options.Verbose {
		return
	}

	fmt.Printf("Starting metadata extraction...\nTotal TIFF files to process: %d\n", stats.totalFiles)
	fmt.Printf("Sample: %s\n", options.SampleID)
	fmt.Printf("Force rewrite mode: %v\n", options.ForceRewrite)

	if options.DebugMode {
		fmt.Printf("Debug mode: enabled\n")
		logging.DebugLog("Found %d TIFF files to process", stats.totalFiles)
	}
}

// printCompletionStats displays statistics after scan completion
func printCompletionStats(tracker *ProgressTracker, startTime time.Time, options ScanOptions) {
	elapsed := time.Since(startTime)
	processed, errors := tracker.Processed(), tracker.Errors()

	if options.DebugMode {
		logging.DebugLog("Scan completed in %v. Processed: %d, Errors: %d", elapsed, processed, errors)
	}

	if !options.Verbose {
		return
	}

	fmt.Println("\nExtraction complete.")
	fmt.Printf("Processed %d images in %v.\n", processed, elapsed.Round(time.Second))

	if errors > 0 {
		fmt.Printf("Encountered %d errors during extraction.\n", errors)
		fmt.Println("Check the log file for details.")
	}
}
