package analysis

import (
	"fmt"
	"path/filepath"

	"scalegrid/collection"
	"scalegrid/types"
)

// GroupCollections partitions the image set into collections using the
// containment relation. Images are visited from highest to lowest
// magnification so the most specific frames anchor each collection: an image
// with at least one containing parent seeds a collection holding itself,
// all of its parents, and each such parent's still-unclaimed direct
// children. Deeper
// ancestor chains are not merged recursively; non-exclusive containment
// normally pulls grandparents in anyway when they also directly contain the
// seed. A single used-set guarantees no image lands in two multi-image
// collections.
//
// Images left over after seeding, including any without usable geometry,
// become one singleton collection each, appended in the analyzer's sorted
// key order. An empty metadata map yields an empty slice.
func GroupCollections(sessionID, sampleID string, metadata map[string]types.ImageMetadata, margin float64) []*collection.Collection {
	if len(metadata) == 0 {
		return nil
	}

	containment := AnalyzeContainment(metadata, margin)
	sorted := sortedByMagnification(metadata)

	var collections []*collection.Collection
	used := make(map[string]bool)

	// Highest magnification first.
	for i := len(sorted) - 1; i >= 0; i-- {
		seed := sorted[i]
		if used[seed] {
			continue
		}

		var parents []string
		for parent, children := range containment {
			for _, child := range children {
				if child == seed {
					parents = append(parents, parent)
					break
				}
			}
		}
		if len(parents) == 0 {
			continue
		}

		c := collection.New(fmt.Sprintf("Collection_%d", len(collections)+1), sessionID, sampleID)

		// The seed and its parents cannot already be claimed: a claimed
		// parent would have pulled the seed in with it. A parent's other
		// direct children can be, when they sit under a second parent that
		// clustered earlier, so those stay where they are.
		members := map[string]bool{seed: true}
		for _, parent := range parents {
			members[parent] = true
			for _, child := range containment[parent] {
				if !used[child] {
					members[child] = true
				}
			}
		}

		// Keep discovery order stable: walk the sorted keys, not the set.
		for _, key := range sorted {
			if members[key] {
				c.AddImage(key, metadata[key])
				used[key] = true
			}
		}

		// Register every containment edge whose endpoints are both members,
		// walking parents in sorted order for a stable result.
		for _, parent := range sorted {
			if !members[parent] {
				continue
			}
			for _, child := range containment[parent] {
				if !members[child] {
					continue
				}
				bbox, ok := CalculateBoundingBox(metadata[parent], metadata[child])
				if !ok {
					continue
				}
				c.AddContainment(parent, child, bbox)
			}
		}

		c.Colors = AssignColors(c.Children())
		collections = append(collections, c)
	}

	// Whatever is left gets its own singleton collection. Base filenames can
	// repeat across subfolders; a counter suffix keeps the names, and so the
	// saved files, distinct.
	singles := make(map[string]int)
	for _, key := range sorted {
		if used[key] {
			continue
		}
		name := "Single_" + filepath.Base(key)
		singles[name]++
		if n := singles[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		c := collection.New(name, sessionID, sampleID)
		c.AddImage(key, metadata[key])
		collections = append(collections, c)
	}

	return collections
}
