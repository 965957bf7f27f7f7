package metadata

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"

	"scalegrid/logging"
	"scalegrid/types"
)

// ExiftoolExtractor shells out to exiftool through go-exiftool. It is the
// fallback for files whose IFD cannot be walked directly (unusual byte
// layouts, multi-page containers): exiftool dumps every tag it finds, and
// the Phenom XML document is recovered from whichever string field carries
// it.
type ExiftoolExtractor struct{}

// NewExiftoolExtractor creates the exiftool-based fallback extractor.
func NewExiftoolExtractor() *ExiftoolExtractor {
	return &ExiftoolExtractor{}
}

// CanExtract reports whether this extractor handles the given file.
func (e *ExiftoolExtractor) CanExtract(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// Extract runs exiftool on the file and rebuilds the metadata record from
// its output.
func (e *ExiftoolExtractor) Extract(path string) (types.ImageMetadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return types.ImageMetadata{}, fmt.Errorf("cannot initialize exiftool: %v", err)
	}
	defer et.Close()

	infos := et.ExtractMetadata(path)
	if len(infos) == 0 {
		return types.ImageMetadata{}, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	info := infos[0]
	if info.Err != nil {
		return types.ImageMetadata{}, fmt.Errorf("exiftool failed for %s: %v", path, info.Err)
	}

	width, height := 0, 0
	if w, err := info.GetInt("ImageWidth"); err == nil {
		width = int(w)
	}
	if h, err := info.GetInt("ImageHeight"); err == nil {
		height = int(h)
	}

	// The Phenom document surfaces as an unnamed string field; find it by
	// its content rather than by tag name.
	for key, value := range info.Fields {
		text, ok := value.(string)
		if !ok || !strings.Contains(text, "<samplePosition>") {
			continue
		}
		logging.DebugLog("Recovered Phenom XML from exiftool field %q for %s", key, path)
		return ParsePhenomXML([]byte(text), path, width, height)
	}

	return types.ImageMetadata{}, fmt.Errorf("no Phenom metadata in exiftool output for %s", path)
}
