package collection

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"scalegrid/types"
)

func TestAddImageDeduplicates(t *testing.T) {
	c := New("Collection_1", "sess1", "SEM123-45")

	c.AddImage("a.tif", types.ImageMetadata{Magnification: 100})
	c.AddImage("b.tif", types.ImageMetadata{Magnification: 500})
	c.AddImage("a.tif", types.ImageMetadata{Magnification: 999})

	if len(c.Images) != 2 {
		t.Fatalf("Expected 2 images, got %v", c.Images)
	}
	// The first metadata record wins.
	if c.Metadata["a.tif"].Magnification != 100 {
		t.Errorf("Expected original metadata kept, got %v", c.Metadata["a.tif"])
	}
}

func TestAddContainmentDeduplicates(t *testing.T) {
	c := New("Collection_1", "", "SEM123-45")
	c.AddImage("a.tif", types.ImageMetadata{})
	c.AddImage("b.tif", types.ImageMetadata{})

	first := types.BoundingBox{X1: 0.1, Y1: 0.2, X2: 0.3, Y2: 0.4}
	c.AddContainment("a.tif", "b.tif", first)
	c.AddContainment("a.tif", "b.tif", types.BoundingBox{X1: 0.9})

	if len(c.Containment["a.tif"]) != 1 {
		t.Fatalf("Expected one child, got %v", c.Containment["a.tif"])
	}
	if got := c.BoundingBoxes[ImagePair{Parent: "a.tif", Child: "b.tif"}]; got != first {
		t.Errorf("Expected the first bounding box kept, got %v", got)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	c := New("Collection_1", "session1", "SEM123-45")
	c.AddImage("overview.tif", types.ImageMetadata{
		Path:              "overview.tif",
		Magnification:     127,
		FieldOfViewWidth:  types.Float(1000),
		FieldOfViewHeight: types.Float(1000),
		SamplePositionX:   types.Float(0),
		SamplePositionY:   types.Float(0),
	})
	c.AddImage("detail.tif", types.ImageMetadata{
		Path:              "detail.tif",
		Magnification:     1270,
		FieldOfViewWidth:  types.Float(100),
		FieldOfViewHeight: types.Float(100),
		SamplePositionX:   types.Float(0),
		SamplePositionY:   types.Float(0),
	})
	c.AddContainment("overview.tif", "detail.tif", types.BoundingBox{X1: 0.1, Y1: 0.2, X2: 0.3, Y2: 0.4})
	c.Colors["detail.tif"] = types.Color{R: 255, G: 0, B: 0, A: 180}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// The edge travels as a joined string key.
	if !strings.Contains(string(data), `"overview.tif|detail.tif"`) {
		t.Errorf("Expected joined pair key in wire format, got %s", data)
	}

	var loaded Collection
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if loaded.Name != c.Name || loaded.SessionID != c.SessionID || loaded.SampleID != c.SampleID {
		t.Errorf("Identity fields differ: got %s/%s/%s", loaded.Name, loaded.SessionID, loaded.SampleID)
	}
	if !reflect.DeepEqual(loaded.Images, c.Images) {
		t.Errorf("Images differ: %v vs %v", loaded.Images, c.Images)
	}
	if !reflect.DeepEqual(loaded.Containment, c.Containment) {
		t.Errorf("Containment differs: %v vs %v", loaded.Containment, c.Containment)
	}
	if !reflect.DeepEqual(loaded.BoundingBoxes, c.BoundingBoxes) {
		t.Errorf("Bounding boxes differ: %v vs %v", loaded.BoundingBoxes, c.BoundingBoxes)
	}
	if !reflect.DeepEqual(loaded.Colors, c.Colors) {
		t.Errorf("Colors differ: %v vs %v", loaded.Colors, c.Colors)
	}
	if !reflect.DeepEqual(loaded.Metadata, c.Metadata) {
		t.Errorf("Metadata differs: %v vs %v", loaded.Metadata, c.Metadata)
	}
}

func TestMarshalRejectsSeparatorInKey(t *testing.T) {
	c := New("Collection_1", "", "S1")
	c.AddImage("bad|name.tif", types.ImageMetadata{})

	if _, err := json.Marshal(c); err == nil {
		t.Fatal("Expected an error for an image key containing the separator")
	}
}

func TestUnmarshalRejectsMalformedPairKeys(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"no separator", "parentchild"},
		{"two separators", "a|b|c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte(`{
				"name": "Collection_1",
				"sample_id": "S1",
				"images": ["a.tif", "b.tif"],
				"bounding_boxes": {"` + tc.key + `": [0, 0, 1, 1]}
			}`)
			var c Collection
			if err := json.Unmarshal(data, &c); err == nil {
				t.Errorf("Expected an error for bounding box key %q", tc.key)
			}
		})
	}
}

func TestUnmarshalRejectsUnknownReferences(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			"containment parent",
			`"containment": {"ghost.tif": ["a.tif"]}`,
		},
		{
			"containment child",
			`"containment": {"a.tif": ["ghost.tif"]}`,
		},
		{
			"bounding box",
			`"bounding_boxes": {"a.tif|ghost.tif": [0, 0, 1, 1]}`,
		},
		{
			"color",
			`"colors": {"ghost.tif": [255, 0, 0, 180]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte(`{"name": "Collection_1", "sample_id": "S1", "images": ["a.tif"], ` + tc.body + `}`)
			var c Collection
			if err := json.Unmarshal(data, &c); err == nil {
				t.Error("Expected a validation error for an unknown image reference")
			}
		})
	}
}

func TestUnmarshalDefaultsNilMaps(t *testing.T) {
	var c Collection
	if err := json.Unmarshal([]byte(`{"name": "Single_x.tif", "sample_id": "S1", "images": ["x.tif"]}`), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c.Metadata == nil || c.Containment == nil || c.BoundingBoxes == nil || c.Colors == nil {
		t.Error("Expected all maps initialized after load")
	}
}

func TestChildren(t *testing.T) {
	c := New("Collection_1", "", "S1")
	for _, key := range []string{"a.tif", "b.tif", "c.tif"} {
		c.AddImage(key, types.ImageMetadata{})
	}
	c.AddContainment("a.tif", "b.tif", types.BoundingBox{})
	c.AddContainment("a.tif", "c.tif", types.BoundingBox{})
	c.AddContainment("b.tif", "c.tif", types.BoundingBox{})

	children := c.Children()
	if len(children) != 2 {
		t.Fatalf("Expected 2 distinct children, got %v", children)
	}
	seen := map[string]bool{}
	for _, child := range children {
		seen[child] = true
	}
	if !seen["b.tif"] || !seen["c.tif"] {
		t.Errorf("Expected b.tif and c.tif as children, got %v", children)
	}
}
