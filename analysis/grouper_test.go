package analysis

import (
	"fmt"
	"strings"
	"testing"

	"scalegrid/collection"
	"scalegrid/types"
)

func TestGroupCollectionsNestedTriple(t *testing.T) {
	metadata := map[string]types.ImageMetadata{
		"a.tif": geo(1000, 1000, 0, 0, 127),
		"b.tif": geo(300, 300, 0, 0, 423),
		"c.tif": geo(50, 50, 0, 0, 2540),
	}

	collections := GroupCollections("", "TCL12345", metadata, DefaultMargin)

	if len(collections) != 1 {
		t.Fatalf("Expected one collection, got %d", len(collections))
	}
	c := collections[0]

	if c.Name != "Collection_1" {
		t.Errorf("Expected name Collection_1, got %s", c.Name)
	}
	if c.SampleID != "TCL12345" {
		t.Errorf("Expected sample ID TCL12345, got %s", c.SampleID)
	}
	if len(c.Images) != 3 {
		t.Fatalf("Expected 3 images, got %v", c.Images)
	}

	wantEdges := []collection.ImagePair{
		{Parent: "a.tif", Child: "b.tif"},
		{Parent: "a.tif", Child: "c.tif"},
		{Parent: "b.tif", Child: "c.tif"},
	}
	for _, edge := range wantEdges {
		if _, ok := c.BoundingBoxes[edge]; !ok {
			t.Errorf("Expected bounding box for edge %v", edge)
		}
	}

	// Both contained images must carry a color; the parent-only image none.
	if _, ok := c.Colors["b.tif"]; !ok {
		t.Error("Expected a color for b.tif")
	}
	if _, ok := c.Colors["c.tif"]; !ok {
		t.Error("Expected a color for c.tif")
	}
	if _, ok := c.Colors["a.tif"]; ok {
		t.Error("a.tif is never contained and must not get a color")
	}
}

func TestGroupCollectionsDisjointSingletons(t *testing.T) {
	metadata := make(map[string]types.ImageMetadata)
	for i := 0; i < 10; i++ {
		// Frames far apart with no overlap at all.
		metadata[fmt.Sprintf("img%02d.tif", i)] = geo(100, 100, float64(i*10000), 0, float64(100+i))
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	if len(collections) != 10 {
		t.Fatalf("Expected 10 singleton collections, got %d", len(collections))
	}
	for _, c := range collections {
		if len(c.Images) != 1 {
			t.Errorf("Expected singleton, got %v", c.Images)
		}
		if len(c.Containment) != 0 || len(c.BoundingBoxes) != 0 {
			t.Errorf("Singleton %s must have no containment data", c.Name)
		}
		if !strings.HasPrefix(c.Name, "Single_") {
			t.Errorf("Expected Single_ name prefix, got %s", c.Name)
		}
	}
}

func TestGroupCollectionsMissingGeometrySingleton(t *testing.T) {
	noY := types.ImageMetadata{
		FieldOfViewWidth:  types.Float(100),
		FieldOfViewHeight: types.Float(100),
		SamplePositionX:   types.Float(0),
		Magnification:     1270,
	}
	metadata := map[string]types.ImageMetadata{
		"a.tif":   geo(1000, 1000, 0, 0, 127),
		"b.tif":   geo(100, 100, 0, 0, 1270),
		"bad.tif": noY,
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	if len(collections) != 2 {
		t.Fatalf("Expected a pair collection plus one singleton, got %d", len(collections))
	}

	var singleton *collection.Collection
	for _, c := range collections {
		if len(c.Images) == 1 {
			singleton = c
		}
	}
	if singleton == nil || singleton.Images[0] != "bad.tif" {
		t.Fatalf("Expected bad.tif to end up in its own singleton collection")
	}
}

func TestGroupCollectionsCoverage(t *testing.T) {
	// A mixed set: nested frames, an isolated frame, a geometry-less record.
	metadata := map[string]types.ImageMetadata{
		"low.tif":  geo(2000, 2000, 0, 0, 63),
		"mid.tif":  geo(500, 500, 100, 100, 254),
		"high.tif": geo(50, 50, 120, 80, 2540),
		"far.tif":  geo(100, 100, 90000, 0, 1270),
		"bad.tif":  {Magnification: 500},
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	seen := make(map[string]int)
	for _, c := range collections {
		for _, key := range c.Images {
			seen[key]++
		}
	}
	for key := range metadata {
		if seen[key] != 1 {
			t.Errorf("Image %s appears in %d collections, expected exactly 1", key, seen[key])
		}
	}
	if len(seen) != len(metadata) {
		t.Errorf("Expected %d distinct images across collections, got %d", len(metadata), len(seen))
	}
}

func TestGroupCollectionsSharedChildClaimedOnce(t *testing.T) {
	// c sits inside two overlapping parents, q and p, that do not contain
	// each other. The parent clustering second must not pull c in again.
	metadata := map[string]types.ImageMetadata{
		"q.tif":  geo(1000, 1000, 0, 0, 127),
		"p.tif":  geo(1000, 1000, 600, 0, 128),
		"c.tif":  geo(100, 100, 300, 0, 1270),
		"s1.tif": geo(100, 100, -300, 0, 1271),
		"d.tif":  geo(100, 100, 900, 0, 1272),
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	if len(collections) != 2 {
		t.Fatalf("Expected two collections, got %d", len(collections))
	}

	seen := make(map[string]int)
	for _, c := range collections {
		for _, key := range c.Images {
			seen[key]++
		}
	}
	for key := range metadata {
		if seen[key] != 1 {
			t.Errorf("Image %s appears in %d collections, expected exactly 1", key, seen[key])
		}
	}

	// d seeds first (highest magnification), claiming p and the shared c;
	// s1 then gets q alone.
	if !collections[0].HasImage("c.tif") || !collections[0].HasImage("p.tif") || !collections[0].HasImage("d.tif") {
		t.Errorf("Expected first collection to hold p, c and d, got %v", collections[0].Images)
	}
	if !collections[1].HasImage("q.tif") || !collections[1].HasImage("s1.tif") || collections[1].HasImage("c.tif") {
		t.Errorf("Expected second collection to hold only q and s1, got %v", collections[1].Images)
	}
}

func TestGroupCollectionsSingletonNameCollision(t *testing.T) {
	metadata := map[string]types.ImageMetadata{
		"sub1/a.tif": geo(100, 100, 0, 0, 1270),
		"sub2/a.tif": geo(100, 100, 50000, 0, 1271),
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	if len(collections) != 2 {
		t.Fatalf("Expected two singletons, got %d", len(collections))
	}
	if collections[0].Name == collections[1].Name {
		t.Errorf("Singleton names must be distinct, both are %s", collections[0].Name)
	}
	for _, c := range collections {
		if !strings.HasPrefix(c.Name, "Single_a.tif") {
			t.Errorf("Expected Single_a.tif-based name, got %s", c.Name)
		}
	}
}

func TestGroupCollectionsEmptyInput(t *testing.T) {
	if got := GroupCollections("", "S1", map[string]types.ImageMetadata{}, DefaultMargin); len(got) != 0 {
		t.Errorf("Expected no collections for empty input, got %d", len(got))
	}
}

func TestGroupCollectionsMultiImageFirst(t *testing.T) {
	metadata := map[string]types.ImageMetadata{
		"a.tif":    geo(1000, 1000, 0, 0, 127),
		"b.tif":    geo(100, 100, 0, 0, 1270),
		"solo.tif": geo(100, 100, 90000, 0, 1270),
	}

	collections := GroupCollections("", "S1", metadata, DefaultMargin)

	if len(collections) != 2 {
		t.Fatalf("Expected two collections, got %d", len(collections))
	}
	if len(collections[0].Images) != 2 {
		t.Errorf("Expected the multi-image collection first, got %v", collections[0].Images)
	}
	if len(collections[1].Images) != 1 {
		t.Errorf("Expected the singleton last, got %v", collections[1].Images)
	}
}
