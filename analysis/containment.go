// Package analysis implements the geometric core of scalegrid: inferring
// which low-magnification SEM images spatially contain which
// higher-magnification ones, computing the normalized bounding box of each
// child inside its parent, and grouping related images into collections.
//
// All functions here are pure and synchronous; they operate on the metadata
// mapping they are given and perform no I/O.
package analysis

import (
	"sort"

	"scalegrid/types"
)

// DefaultMargin is the containment tolerance as a fraction of the parent's
// field of view, applied outward on each axis.
const DefaultMargin = 0.05

// sortedByMagnification returns the image keys ordered ascending by
// magnification, ties broken by key, lowest magnification (widest field of
// view) first.
func sortedByMagnification(metadata map[string]types.ImageMetadata) []string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := metadata[keys[i]].Magnification, metadata[keys[j]].Magnification
		if mi != mj {
			return mi < mj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// AnalyzeContainment determines which images' sampled regions fully contain
// which other images' regions, within a tolerance margin expressed as a
// fraction of the parent's field of view.
//
// Images missing any geometry field never appear as parent or child. The
// scan is one-directional over the magnification-sorted key order, so the
// resulting parent -> children map is acyclic and free of self-containment.
// A child may be listed under several parents when it fits inside more than
// one. Parents with no children are omitted.
func AnalyzeContainment(metadata map[string]types.ImageMetadata, margin float64) map[string][]string {
	containment := make(map[string][]string)
	sorted := sortedByMagnification(metadata)

	for i, parentKey := range sorted {
		pw, ph, px, py, ok := metadata[parentKey].Geometry()
		if !ok {
			continue
		}

		pxMin, pxMax := px-pw/2, px+pw/2
		pyMin, pyMax := py-ph/2, py+ph/2
		marginX := pw * margin
		marginY := ph * margin

		var children []string
		for _, childKey := range sorted[i+1:] {
			cw, ch, cx, cy, ok := metadata[childKey].Geometry()
			if !ok {
				continue
			}

			cxMin, cxMax := cx-cw/2, cx+cw/2
			cyMin, cyMax := cy-ch/2, cy+ch/2

			xContained := (pxMin-marginX) < cxMin && (pxMax+marginX) > cxMax
			yContained := (pyMin-marginY) < cyMin && (pyMax+marginY) > cyMax

			if xContained && yContained {
				children = append(children, childKey)
			}
		}

		if len(children) > 0 {
			containment[parentKey] = children
		}
	}

	return containment
}
