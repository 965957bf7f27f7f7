package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"scalegrid/logging"
	"scalegrid/types"
)

// phenomTag is the private TIFF tag Phenom instruments use for their XML
// metadata document.
const phenomTag = 34683

// PhenomTIFFExtractor reads the embedded XML straight from the TIFF
// container. This is the primary extractor: no external tooling needed.
type PhenomTIFFExtractor struct{}

// NewPhenomTIFFExtractor creates the TIFF tag extractor.
func NewPhenomTIFFExtractor() *PhenomTIFFExtractor {
	return &PhenomTIFFExtractor{}
}

// CanExtract reports whether this extractor handles the given file.
func (e *PhenomTIFFExtractor) CanExtract(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// Extract locates the Phenom XML tag in the file's first IFD and parses it.
// Pixel dimensions fall back to the decoded image config when the XML has no
// crop hint.
func (e *PhenomTIFFExtractor) Extract(path string) (types.ImageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ImageMetadata{}, fmt.Errorf("cannot read %s: %v", path, err)
	}

	xmlData, err := findTag(data, phenomTag)
	if err != nil {
		return types.ImageMetadata{}, fmt.Errorf("no Phenom metadata in %s: %v", path, err)
	}

	width, height := 0, 0
	if cfg, err := tiff.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	} else {
		logging.DebugLog("Cannot decode TIFF config for %s: %v", path, err)
	}

	return ParsePhenomXML(xmlData, path, width, height)
}

// findTag walks the first IFD of a TIFF file and returns the raw value bytes
// of the requested tag. Both little- and big-endian containers are handled;
// only BYTE, ASCII and UNDEFINED entries qualify, since the Phenom tag holds
// an XML text payload.
func findTag(data []byte, tag uint16) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("file too short for a TIFF header")
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("bad TIFF magic")
	}

	ifdOffset := order.Uint32(data[4:8])
	if int(ifdOffset)+2 > len(data) {
		return nil, fmt.Errorf("IFD offset out of range")
	}

	count := int(order.Uint16(data[ifdOffset : ifdOffset+2]))
	entries := data[ifdOffset+2:]
	if len(entries) < count*12 {
		return nil, fmt.Errorf("truncated IFD")
	}

	for i := 0; i < count; i++ {
		entry := entries[i*12 : i*12+12]
		if order.Uint16(entry[0:2]) != tag {
			continue
		}

		fieldType := order.Uint16(entry[2:4])
		// BYTE = 1, ASCII = 2, UNDEFINED = 7; all single-byte element types.
		if fieldType != 1 && fieldType != 2 && fieldType != 7 {
			return nil, fmt.Errorf("tag %d has unexpected field type %d", tag, fieldType)
		}

		size := order.Uint32(entry[4:8])
		if size <= 4 {
			return bytes.TrimRight(entry[8:8+size], "\x00"), nil
		}

		offset := order.Uint32(entry[8:12])
		if int(offset)+int(size) > len(data) {
			return nil, fmt.Errorf("tag %d value out of range", tag)
		}
		return bytes.TrimRight(data[offset:offset+size], "\x00"), nil
	}

	return nil, fmt.Errorf("tag %d not present", tag)
}
