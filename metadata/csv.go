package metadata

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"scalegrid/logging"
	"scalegrid/types"
)

// column maps one CSV column to an ImageMetadata field. Using one table for
// both directions keeps save and load in lockstep.
type column struct {
	name string
	get  func(m types.ImageMetadata) string
	set  func(m *types.ImageMetadata, v string) error
}

// columns lists every CSV column in file order: the fields an operator looks
// at first, then the remaining acquisition attributes alphabetically.
var columns = []column{
	{"image_path",
		func(m types.ImageMetadata) string { return m.Path },
		func(m *types.ImageMetadata, v string) error { m.Path = v; return nil }},
	{"databarLabel",
		func(m types.ImageMetadata) string { return m.DatabarLabel },
		func(m *types.ImageMetadata, v string) error { m.DatabarLabel = v; return nil }},
	{"mag_pol",
		func(m types.ImageMetadata) string { return fmtFloat(m.Magnification) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.Magnification })},
	{"field_of_view_width",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.FieldOfViewWidth) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.FieldOfViewWidth = v })},
	{"field_of_view_height",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.FieldOfViewHeight) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.FieldOfViewHeight = v })},
	{"sample_position_x",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.SamplePositionX) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.SamplePositionX = v })},
	{"sample_position_y",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.SamplePositionY) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.SamplePositionY = v })},
	{"detector",
		func(m types.ImageMetadata) string { return m.Detector },
		func(m *types.ImageMetadata, v string) error { m.Detector = v; return nil }},
	{"high_voltage_kV",
		func(m types.ImageMetadata) string { return fmtFloat(m.HighVoltageKV) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.HighVoltageKV })},
	{"working_distance_mm",
		func(m types.ImageMetadata) string { return fmtFloat(m.WorkingDistanceMM) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.WorkingDistanceMM })},
	{"beam_shift_x",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.BeamShiftX) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.BeamShiftX = v })},
	{"beam_shift_y",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.BeamShiftY) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.BeamShiftY = v })},
	{"brightness",
		func(m types.ImageMetadata) string { return fmtFloat(m.Brightness) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.Brightness })},
	{"contrast",
		func(m types.ImageMetadata) string { return fmtFloat(m.Contrast) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.Contrast })},
	{"dwell_time_ns",
		func(m types.ImageMetadata) string { return fmtInt(m.DwellTimeNS) },
		setInt(func(m *types.ImageMetadata, v int) { m.DwellTimeNS = v })},
	{"emission_current_uA",
		func(m types.ImageMetadata) string { return fmtFloat(m.EmissionCurrentUA) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.EmissionCurrentUA })},
	{"gamma",
		func(m types.ImageMetadata) string { return fmtFloat(m.Gamma) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.Gamma })},
	{"multistage_x",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.MultistageX) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.MultistageX = v })},
	{"multistage_y",
		func(m types.ImageMetadata) string { return fmtOptFloat(m.MultistageY) },
		setOptFloat(func(m *types.ImageMetadata, v *float64) { m.MultistageY = v })},
	{"pixel_dimension_nm",
		func(m types.ImageMetadata) string { return fmtFloat(m.PixelSizeNM) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.PixelSizeNM })},
	{"pixels_height",
		func(m types.ImageMetadata) string { return fmtInt(m.PixelsHeight) },
		setInt(func(m *types.ImageMetadata, v int) { m.PixelsHeight = v })},
	{"pixels_width",
		func(m types.ImageMetadata) string { return fmtInt(m.PixelsWidth) },
		setInt(func(m *types.ImageMetadata, v int) { m.PixelsWidth = v })},
	{"pressure_Pa",
		func(m types.ImageMetadata) string { return fmtFloat(m.PressurePa) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.PressurePa })},
	{"spot_size",
		func(m types.ImageMetadata) string { return fmtFloat(m.SpotSize) },
		setFloat(func(m *types.ImageMetadata) *float64 { return &m.SpotSize })},
	{"time",
		func(m types.ImageMetadata) string { return m.AcquiredAt },
		func(m *types.ImageMetadata, v string) error { m.AcquiredAt = v; return nil }},
}

func fmtFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fmtOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func fmtInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func setFloat(field func(*types.ImageMetadata) *float64) func(*types.ImageMetadata, string) error {
	return func(m *types.ImageMetadata, v string) error {
		if v == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(m) = parsed
		return nil
	}
}

func setOptFloat(assign func(*types.ImageMetadata, *float64)) func(*types.ImageMetadata, string) error {
	return func(m *types.ImageMetadata, v string) error {
		if v == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		assign(m, types.Float(parsed))
		return nil
	}
}

func setInt(assign func(*types.ImageMetadata, int)) func(*types.ImageMetadata, string) error {
	return func(m *types.ImageMetadata, v string) error {
		if v == "" {
			return nil
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		assign(m, parsed)
		return nil
	}
}

// SaveCSV writes the metadata for all of a sample's images to the cache CSV
// and returns the file path. Rows are written in sorted path order.
func (m *Manager) SaveCSV(sampleID string, metadata map[string]types.ImageMetadata) (string, error) {
	path := m.CSVPath(sampleID)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cannot create metadata CSV %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.name
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("cannot write CSV header: %v", err)
	}

	for _, key := range sortedKeys(metadata) {
		record := metadata[key]
		if record.Path == "" {
			record.Path = key
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = col.get(record)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("cannot write CSV row for %s: %v", key, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("cannot flush metadata CSV %s: %v", path, err)
	}
	return path, nil
}

// LoadCSV reads a sample's cached metadata back. Columns unknown to this
// version are ignored; rows without an image path are skipped. Returns an
// empty map when no cache exists.
func (m *Manager) LoadCSV(sampleID string) (map[string]types.ImageMetadata, error) {
	path := m.CSVPath(sampleID)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]types.ImageMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open metadata CSV %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse metadata CSV %s: %v", path, err)
	}
	if len(rows) == 0 {
		return map[string]types.ImageMetadata{}, nil
	}

	setters := make([]func(*types.ImageMetadata, string) error, len(rows[0]))
	for i, name := range rows[0] {
		for _, col := range columns {
			if col.name == name {
				setters[i] = col.set
				break
			}
		}
	}

	metadata := make(map[string]types.ImageMetadata)
	for _, row := range rows[1:] {
		var record types.ImageMetadata
		for i, value := range row {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			if err := setters[i](&record, value); err != nil {
				logging.LogWarning("Bad value %q in column %q of %s: %v", value, rows[0][i], path, err)
			}
		}
		if record.Path == "" {
			continue
		}
		metadata[record.Path] = record
	}
	return metadata, nil
}

// HasCSV reports whether a metadata cache exists for the sample.
func (m *Manager) HasCSV(sampleID string) bool {
	_, err := os.Stat(m.CSVPath(sampleID))
	return err == nil
}

func sortedKeys(metadata map[string]types.ImageMetadata) []string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	// Stable file output regardless of map order.
	sort.Strings(keys)
	return keys
}
