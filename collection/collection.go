// Package collection defines the serializable aggregate grouping related SEM
// images together with their containment relationships, bounding boxes and
// display colors, plus the JSON-file store that persists them.
package collection

import (
	"encoding/json"
	"fmt"
	"strings"

	"scalegrid/types"
)

// pairSeparator joins parent and child keys in the on-disk bounding box map.
// Image keys containing it cannot be serialized unambiguously and are
// rejected at save time.
const pairSeparator = "|"

// ImagePair identifies one containment edge. Kept as a real two-field struct
// in memory; the joined string form exists only in the wire format.
type ImagePair struct {
	Parent string
	Child  string
}

// Collection is a set of related images grouped by containment. Images are
// kept in discovery order without duplicates; every key referenced by
// Containment, BoundingBoxes or Colors also appears in Images.
type Collection struct {
	Name      string
	SessionID string
	SampleID  string

	Images        []string
	Metadata      map[string]types.ImageMetadata
	Containment   map[string][]string
	BoundingBoxes map[ImagePair]types.BoundingBox
	Colors        map[string]types.Color
}

// New creates an empty collection.
func New(name, sessionID, sampleID string) *Collection {
	return &Collection{
		Name:          name,
		SessionID:     sessionID,
		SampleID:      sampleID,
		Metadata:      make(map[string]types.ImageMetadata),
		Containment:   make(map[string][]string),
		BoundingBoxes: make(map[ImagePair]types.BoundingBox),
		Colors:        make(map[string]types.Color),
	}
}

// AddImage appends an image and its metadata. Adding a key already present
// is a no-op.
func (c *Collection) AddImage(key string, metadata types.ImageMetadata) {
	for _, existing := range c.Images {
		if existing == key {
			return
		}
	}
	c.Images = append(c.Images, key)
	c.Metadata[key] = metadata
}

// AddContainment records that parent fully contains child, located at bbox
// within the parent's frame. Re-adding an existing edge is a no-op.
func (c *Collection) AddContainment(parent, child string, bbox types.BoundingBox) {
	for _, existing := range c.Containment[parent] {
		if existing == child {
			return
		}
	}
	c.Containment[parent] = append(c.Containment[parent], child)
	c.BoundingBoxes[ImagePair{Parent: parent, Child: child}] = bbox
}

// Children returns every image that appears as a child of some parent in
// this collection.
func (c *Collection) Children() []string {
	seen := make(map[string]bool)
	var children []string
	for _, kids := range c.Containment {
		for _, child := range kids {
			if !seen[child] {
				seen[child] = true
				children = append(children, child)
			}
		}
	}
	return children
}

// HasImage reports whether key is part of the collection.
func (c *Collection) HasImage(key string) bool {
	for _, existing := range c.Images {
		if existing == key {
			return true
		}
	}
	return false
}

// wire is the on-disk JSON shape, kept compatible with the original
// collection files: bounding boxes are keyed by "parent|child".
type wire struct {
	Name          string                         `json:"name"`
	SessionID     string                         `json:"session_id"`
	SampleID      string                         `json:"sample_id"`
	Images        []string                       `json:"images"`
	Metadata      map[string]types.ImageMetadata `json:"metadata"`
	Containment   map[string][]string            `json:"containment"`
	BoundingBoxes map[string]types.BoundingBox   `json:"bounding_boxes"`
	Colors        map[string]types.Color         `json:"colors"`
}

// MarshalJSON serializes the collection to the wire format. It fails with a
// separator-collision error if any image key contains the pair separator,
// since such a key would not round-trip.
func (c *Collection) MarshalJSON() ([]byte, error) {
	for _, key := range c.Images {
		if strings.Contains(key, pairSeparator) {
			return nil, fmt.Errorf("image key %q contains the reserved separator %q and cannot be serialized", key, pairSeparator)
		}
	}

	boxes := make(map[string]types.BoundingBox, len(c.BoundingBoxes))
	for pair, bbox := range c.BoundingBoxes {
		boxes[pair.Parent+pairSeparator+pair.Child] = bbox
	}

	return json.Marshal(wire{
		Name:          c.Name,
		SessionID:     c.SessionID,
		SampleID:      c.SampleID,
		Images:        c.Images,
		Metadata:      c.Metadata,
		Containment:   c.Containment,
		BoundingBoxes: boxes,
		Colors:        c.Colors,
	})
}

// UnmarshalJSON reconstructs a collection from the wire format, rebuilding
// the pair-keyed bounding box map and validating that every referenced key
// is part of the image list.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	c.Name = w.Name
	c.SessionID = w.SessionID
	c.SampleID = w.SampleID
	c.Images = w.Images
	c.Metadata = w.Metadata
	c.Containment = w.Containment
	c.Colors = w.Colors
	if c.Metadata == nil {
		c.Metadata = make(map[string]types.ImageMetadata)
	}
	if c.Containment == nil {
		c.Containment = make(map[string][]string)
	}
	if c.Colors == nil {
		c.Colors = make(map[string]types.Color)
	}

	c.BoundingBoxes = make(map[ImagePair]types.BoundingBox, len(w.BoundingBoxes))
	for key, bbox := range w.BoundingBoxes {
		if strings.Count(key, pairSeparator) != 1 {
			return fmt.Errorf("malformed bounding box key %q: expected exactly one %q separator", key, pairSeparator)
		}
		sep := strings.Index(key, pairSeparator)
		pair := ImagePair{Parent: key[:sep], Child: key[sep+1:]}
		c.BoundingBoxes[pair] = bbox
	}

	return c.validate()
}

// validate checks the referential invariants after deserialization: every
// key used by containment, bounding boxes or colors must be a listed image.
func (c *Collection) validate() error {
	known := make(map[string]bool, len(c.Images))
	for _, key := range c.Images {
		known[key] = true
	}

	for parent, children := range c.Containment {
		if !known[parent] {
			return fmt.Errorf("containment references unknown image %q", parent)
		}
		for _, child := range children {
			if !known[child] {
				return fmt.Errorf("containment references unknown image %q", child)
			}
		}
	}
	for pair := range c.BoundingBoxes {
		if !known[pair.Parent] || !known[pair.Child] {
			return fmt.Errorf("bounding box references unknown image pair %q/%q", pair.Parent, pair.Child)
		}
	}
	for key := range c.Colors {
		if !known[key] {
			return fmt.Errorf("color assigned to unknown image %q", key)
		}
	}
	return nil
}
