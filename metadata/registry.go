package metadata

import (
	"fmt"

	"scalegrid/logging"
	"scalegrid/types"
)

// Extractor pulls an ImageMetadata record out of one image file.
type Extractor interface {
	// CanExtract checks whether this extractor handles the given file.
	CanExtract(path string) bool
	// Extract reads the file's acquisition metadata.
	Extract(path string) (types.ImageMetadata, error)
}

// ExtractorRegistry tries a fixed sequence of extractors in order of
// preference and returns the first successful record.
type ExtractorRegistry struct {
	extractors []Extractor
}

// NewExtractorRegistry builds the default chain: direct TIFF tag reading
// first, exiftool as fallback.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{
		extractors: []Extractor{
			NewPhenomTIFFExtractor(),
			NewExiftoolExtractor(),
		},
	}
}

// CanExtract reports whether any registered extractor handles the file.
func (r *ExtractorRegistry) CanExtract(path string) bool {
	for _, e := range r.extractors {
		if e.CanExtract(path) {
			return true
		}
	}
	return false
}

// Extract runs the chain and returns the first record obtained. Errors from
// earlier extractors are logged and the next one is tried; the last error is
// returned when all of them fail.
func (r *ExtractorRegistry) Extract(path string) (types.ImageMetadata, error) {
	var lastErr error
	for _, e := range r.extractors {
		if !e.CanExtract(path) {
			continue
		}
		meta, err := e.Extract(path)
		if err == nil {
			return meta, nil
		}
		logging.DebugLog("Extractor %T failed for %s: %v", e, path, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no extractor available for %s", path)
	}
	return types.ImageMetadata{}, lastErr
}
