package analysis

import (
	"sort"

	"scalegrid/types"
)

// palette holds the ten distinct display colors assigned to contained
// images, cycled in order. Alpha 180 so overlaid boxes stay translucent.
var palette = [...]types.Color{
	{R: 255, G: 0, B: 0, A: 180},     // red
	{R: 0, G: 255, B: 0, A: 180},     // green
	{R: 0, G: 0, B: 255, A: 180},     // blue
	{R: 255, G: 255, B: 0, A: 180},   // yellow
	{R: 255, G: 0, B: 255, A: 180},   // magenta
	{R: 0, G: 255, B: 255, A: 180},   // cyan
	{R: 255, G: 128, B: 0, A: 180},   // orange
	{R: 128, G: 0, B: 255, A: 180},   // purple
	{R: 0, G: 128, B: 0, A: 180},     // dark green
	{R: 128, G: 128, B: 255, A: 180}, // light blue
}

// AssignColors maps each child image to a palette color. Children are
// visited in sorted key order so the assignment is deterministic for a given
// child set; the same key may still get a different color in a different
// collection, since the palette index depends only on position within that
// collection's children.
func AssignColors(children []string) map[string]types.Color {
	sorted := make([]string, len(children))
	copy(sorted, children)
	sort.Strings(sorted)

	colors := make(map[string]types.Color, len(sorted))
	for i, child := range sorted {
		colors[child] = palette[i%len(palette)]
	}
	return colors
}
