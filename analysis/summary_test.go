package analysis

import (
	"math"
	"testing"

	"scalegrid/types"
)

func TestSummarizeNestedCollection(t *testing.T) {
	metadata := map[string]types.ImageMetadata{
		"a.tif": geo(1000, 1000, 0, 0, 100),
		"b.tif": geo(300, 300, 0, 0, 400),
		"c.tif": geo(50, 50, 0, 0, 2500),
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)
	if len(collections) != 1 {
		t.Fatalf("Expected one collection, got %d", len(collections))
	}

	s := Summarize(collections[0])

	if s.ImageCount != 3 {
		t.Errorf("Expected 3 images, got %d", s.ImageCount)
	}
	if s.EdgeCount != 3 {
		t.Errorf("Expected 3 containment edges, got %d", s.EdgeCount)
	}
	if s.MinMagnification != 100 || s.MaxMagnification != 2500 {
		t.Errorf("Expected magnification range 100-2500, got %g-%g", s.MinMagnification, s.MaxMagnification)
	}
	if math.Abs(s.MeanMagnification-1000) > 1e-9 {
		t.Errorf("Expected mean magnification 1000, got %g", s.MeanMagnification)
	}
	if s.MissingGeometry != 0 {
		t.Errorf("Expected no images missing geometry, got %d", s.MissingGeometry)
	}
}

func TestSummarizeMissingGeometry(t *testing.T) {
	metadata := map[string]types.ImageMetadata{
		"bad.tif": {Magnification: 500},
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)
	if len(collections) != 1 {
		t.Fatalf("Expected one singleton, got %d", len(collections))
	}

	s := Summarize(collections[0])

	if s.ImageCount != 1 || s.MissingGeometry != 1 {
		t.Errorf("Expected one image without geometry, got %+v", s)
	}
	if s.MeanMagnification != 0 {
		t.Errorf("Expected zero magnification stats, got %+v", s)
	}
}
