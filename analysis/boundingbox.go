package analysis

import (
	"scalegrid/types"
)

// CalculateBoundingBox computes where the child's field of view falls within
// the parent's pixel frame, normalized to [0,1] with origin top-left.
// The stage y axis increases upward while pixel y increases downward, so the
// vertical terms are negated. Coordinates are clamped independently, which
// deliberately truncates children extending past the parent's frame instead
// of failing: a partially overlapping child still renders a clipped box.
//
// ok is false when either record is missing a geometry field; no box can be
// computed in that case.
func CalculateBoundingBox(parent, child types.ImageMetadata) (types.BoundingBox, bool) {
	pw, ph, px, py, ok := parent.Geometry()
	if !ok {
		return types.BoundingBox{}, false
	}
	cw, ch, cx, cy, ok := child.Geometry()
	if !ok {
		return types.BoundingBox{}, false
	}

	relLeft := (cx - cw/2 - px) / pw
	relRight := (cx + cw/2 - px) / pw
	relTop := -(cy + ch/2 - py) / ph
	relBottom := -(cy - ch/2 - py) / ph

	box := types.BoundingBox{
		X1: clamp01(0.5 + relLeft),
		Y1: clamp01(0.5 + relTop),
		X2: clamp01(0.5 + relRight),
		Y2: clamp01(0.5 + relBottom),
	}
	return box, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
