// Package metadata extracts per-image acquisition metadata from Phenom SEM
// TIFF files and caches it per sample as CSV, so repeated analyses of a
// folder do not have to re-read every image.
//
// Phenom instruments embed an XML document in a private TIFF tag; the
// geometry the containment analysis needs (field of view and stage position)
// is derived from it. Files without the tag are tolerated: their records
// simply lack geometry and surface as singleton collections downstream.
package metadata

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"scalegrid/types"
)

// magnificationReference is the polaroid reference width in micrometers:
// magnification = reference / field-of-view width.
const magnificationReference = 127000.0

// phenomXML mirrors the relevant parts of the embedded XML document. The
// root element name varies across firmware versions and is not checked.
type phenomXML struct {
	DatabarLabel string   `xml:"databarLabel"`
	Time         string   `xml:"time"`
	PixelWidth   *float64 `xml:"pixelWidth"`

	CropHint *struct {
		Right  int `xml:"right"`
		Bottom int `xml:"bottom"`
	} `xml:"cropHint"`

	SamplePosition *struct {
		X *float64 `xml:"x"`
		Y *float64 `xml:"y"`
	} `xml:"samplePosition"`

	MultiStage *struct {
		Axes []struct {
			ID    string `xml:"id,attr"`
			Value string `xml:",chardata"`
		} `xml:"axis"`
	} `xml:"multiStage"`

	Acquisition *struct {
		Scan struct {
			Detector        string  `xml:"detector"`
			SpotSize        float64 `xml:"spotSize"`
			DwellTime       int     `xml:"dwellTime"`
			HighVoltage     float64 `xml:"highVoltage"`
			EmissionCurrent float64 `xml:"emissionCurrent"`
			BeamShift       *struct {
				X *float64 `xml:"x"`
				Y *float64 `xml:"y"`
			} `xml:"beamShift"`
		} `xml:"scan"`
	} `xml:"acquisition"`

	AppliedContrast        float64 `xml:"appliedContrast"`
	AppliedGamma           float64 `xml:"appliedGamma"`
	AppliedBrightness      float64 `xml:"appliedBrightness"`
	SamplePressureEstimate float64 `xml:"samplePressureEstimate"`
	WorkingDistance        float64 `xml:"workingDistance"`
}

// ParsePhenomXML converts the embedded XML document into an ImageMetadata
// record. fallbackW/fallbackH are the image pixel dimensions to use when the
// document carries no crop hint (they may be zero when unknown, in which
// case no field of view can be derived).
//
// Units follow the instrument: pixelWidth in nm, sample position in µm,
// highVoltage in V (converted to kV), workingDistance in mm.
func ParsePhenomXML(data []byte, path string, fallbackW, fallbackH int) (types.ImageMetadata, error) {
	var doc phenomXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return types.ImageMetadata{}, fmt.Errorf("cannot parse embedded XML for %s: %v", path, err)
	}

	meta := types.ImageMetadata{
		Path:         path,
		DatabarLabel: doc.DatabarLabel,
		AcquiredAt:   doc.Time,
	}

	widthPix, heightPix := fallbackW, fallbackH
	if doc.CropHint != nil {
		widthPix, heightPix = doc.CropHint.Right, doc.CropHint.Bottom
	}
	meta.PixelsWidth = widthPix
	meta.PixelsHeight = heightPix

	if doc.PixelWidth != nil {
		meta.PixelSizeNM = *doc.PixelWidth
		if widthPix > 0 && heightPix > 0 {
			fovW := meta.PixelSizeNM * float64(widthPix) / 1000 // nm -> µm
			fovH := meta.PixelSizeNM * float64(heightPix) / 1000
			meta.FieldOfViewWidth = types.Float(fovW)
			meta.FieldOfViewHeight = types.Float(fovH)
			if fovW > 0 {
				meta.Magnification = float64(int(magnificationReference / fovW))
			}
		}
	}

	if doc.SamplePosition != nil {
		meta.SamplePositionX = doc.SamplePosition.X
		meta.SamplePositionY = doc.SamplePosition.Y
	}

	if doc.MultiStage != nil {
		for _, axis := range doc.MultiStage.Axes {
			value, err := strconv.ParseFloat(axis.Value, 64)
			if err != nil {
				continue
			}
			switch axis.ID {
			case "X":
				meta.MultistageX = types.Float(value)
			case "Y":
				meta.MultistageY = types.Float(value)
			}
		}
	}

	if doc.Acquisition != nil {
		scan := doc.Acquisition.Scan
		meta.Detector = scan.Detector
		meta.SpotSize = scan.SpotSize
		meta.DwellTimeNS = scan.DwellTime
		meta.HighVoltageKV = scan.HighVoltage / 1000
		meta.EmissionCurrentUA = scan.EmissionCurrent
		if scan.BeamShift != nil {
			meta.BeamShiftX = scan.BeamShift.X
			meta.BeamShiftY = scan.BeamShift.Y
		}
	}

	meta.Contrast = doc.AppliedContrast
	meta.Gamma = doc.AppliedGamma
	meta.Brightness = doc.AppliedBrightness
	meta.PressurePa = doc.SamplePressureEstimate
	meta.WorkingDistanceMM = doc.WorkingDistance

	return meta, nil
}
