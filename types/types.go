package types

import (
	"encoding/json"
	"fmt"
)

// ImageMetadata holds the acquisition metadata extracted from a single SEM
// image. The four geometry fields (field of view and stage position, both in
// micrometers) are pointers because vendor files may omit them; everything
// else is carried through for display and export and is not used by the
// containment math.
type ImageMetadata struct {
	Path         string `json:"image_path,omitempty"`
	DatabarLabel string `json:"databarLabel,omitempty"`
	AcquiredAt   string `json:"time,omitempty"`

	PixelsWidth  int     `json:"pixels_width,omitempty"`
	PixelsHeight int     `json:"pixels_height,omitempty"`
	PixelSizeNM  float64 `json:"pixel_dimension_nm,omitempty"`

	FieldOfViewWidth  *float64 `json:"field_of_view_width,omitempty"`
	FieldOfViewHeight *float64 `json:"field_of_view_height,omitempty"`
	SamplePositionX   *float64 `json:"sample_position_x,omitempty"`
	SamplePositionY   *float64 `json:"sample_position_y,omitempty"`

	// Magnification is the polaroid-equivalent magnification derived from the
	// field of view. Used only as a sort key, never in containment math.
	Magnification float64 `json:"mag_pol,omitempty"`

	MultistageX *float64 `json:"multistage_x,omitempty"`
	MultistageY *float64 `json:"multistage_y,omitempty"`
	BeamShiftX  *float64 `json:"beam_shift_x,omitempty"`
	BeamShiftY  *float64 `json:"beam_shift_y,omitempty"`

	Detector          string  `json:"detector,omitempty"`
	HighVoltageKV     float64 `json:"high_voltage_kV,omitempty"`
	SpotSize          float64 `json:"spot_size,omitempty"`
	DwellTimeNS       int     `json:"dwell_time_ns,omitempty"`
	Contrast          float64 `json:"contrast,omitempty"`
	Gamma             float64 `json:"gamma,omitempty"`
	Brightness        float64 `json:"brightness,omitempty"`
	PressurePa        float64 `json:"pressure_Pa,omitempty"`
	EmissionCurrentUA float64 `json:"emission_current_uA,omitempty"`
	WorkingDistanceMM float64 `json:"working_distance_mm,omitempty"`
}

// HasGeometry reports whether the record carries all four geometry fields
// with a usable (strictly positive) field of view. Records failing this check
// are excluded from containment analysis but still appear as singleton
// collections.
func (m ImageMetadata) HasGeometry() bool {
	if m.FieldOfViewWidth == nil || m.FieldOfViewHeight == nil ||
		m.SamplePositionX == nil || m.SamplePositionY == nil {
		return false
	}
	return *m.FieldOfViewWidth > 0 && *m.FieldOfViewHeight > 0
}

// Geometry returns the field of view and stage position in micrometers.
// ok is false when HasGeometry is false; the values are then unspecified.
func (m ImageMetadata) Geometry() (fovW, fovH, x, y float64, ok bool) {
	if !m.HasGeometry() {
		return 0, 0, 0, 0, false
	}
	return *m.FieldOfViewWidth, *m.FieldOfViewHeight, *m.SamplePositionX, *m.SamplePositionY, true
}

// BoundingBox is a rectangle normalized to a parent image's pixel frame:
// coordinates in [0,1], origin top-left, x rightward, y downward.
// X1 <= X2 and Y1 <= Y2 always hold after clamping; zero-area boxes are
// legal (fully clamped edge cases).
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// MarshalJSON writes the box in the on-disk tuple form [x1, y1, x2, y2].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON reads the tuple form written by MarshalJSON.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var t [4]float64
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("invalid bounding box: %v", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = t[0], t[1], t[2], t[3]
	return nil
}

// Color is a display color for a contained image, stored as RGBA components
// in [0,255].
type Color struct {
	R, G, B, A uint8
}

// MarshalJSON writes the color in the on-disk tuple form [r, g, b, a].
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]uint8{c.R, c.G, c.B, c.A})
}

// UnmarshalJSON reads the tuple form written by MarshalJSON.
func (c *Color) UnmarshalJSON(data []byte) error {
	var t [4]uint8
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("invalid color: %v", err)
	}
	c.R, c.G, c.B, c.A = t[0], t[1], t[2], t[3]
	return nil
}

// Float returns a pointer to v. Convenience for building ImageMetadata
// literals with optional geometry fields.
func Float(v float64) *float64 {
	return &v
}
