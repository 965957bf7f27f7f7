package analysis

import (
	"gonum.org/v1/gonum/stat"

	"scalegrid/collection"
)

// Summary describes one collection for the post-analysis report.
type Summary struct {
	Name                string
	ImageCount          int
	EdgeCount           int
	MinMagnification    float64
	MaxMagnification    float64
	MeanMagnification   float64
	StdDevMagnification float64
	MissingGeometry     int
}

// Summarize computes per-collection magnification statistics over the images
// that carry geometry. Images without geometry are counted separately; a
// collection made only of such images reports zero magnification stats.
func Summarize(c *collection.Collection) Summary {
	s := Summary{
		Name:       c.Name,
		ImageCount: len(c.Images),
	}
	for _, children := range c.Containment {
		s.EdgeCount += len(children)
	}

	var mags []float64
	for _, key := range c.Images {
		meta := c.Metadata[key]
		if !meta.HasGeometry() {
			s.MissingGeometry++
			continue
		}
		mags = append(mags, meta.Magnification)
	}
	if len(mags) == 0 {
		return s
	}

	s.MinMagnification = mags[0]
	s.MaxMagnification = mags[0]
	for _, m := range mags[1:] {
		if m < s.MinMagnification {
			s.MinMagnification = m
		}
		if m > s.MaxMagnification {
			s.MaxMagnification = m
		}
	}
	s.MeanMagnification = stat.Mean(mags, nil)
	if len(mags) > 1 {
		s.StdDevMagnification = stat.StdDev(mags, nil)
	}
	return s
}
