package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manager owns the per-sample metadata files: the CSV cache of image records
// and the sample-info JSON.
type Manager struct {
	Dir string
}

// NewManager creates the metadata directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create metadata directory %s: %v", dir, err)
	}
	return &Manager{Dir: dir}, nil
}

// CSVPath returns the path of the sample's metadata cache.
func (m *Manager) CSVPath(sampleID string) string {
	return filepath.Join(m.Dir, sampleID+"_metadata.csv")
}

// InfoPath returns the path of the sample's info file.
func (m *Manager) InfoPath(sampleID string) string {
	return filepath.Join(m.Dir, sampleID+"_info.json")
}

// SampleInfo describes one sample session as entered by the operator.
type SampleInfo struct {
	SampleID    string `json:"sample_id"`
	SessionID   string `json:"session_id,omitempty"`
	Operator    string `json:"operator,omitempty"`
	Description string `json:"description,omitempty"`
	FolderPath  string `json:"folder_path,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// SaveSampleInfo writes the sample info JSON, stamping it with the current
// time when no timestamp is set. A missing sample ID is an error.
func (m *Manager) SaveSampleInfo(info SampleInfo) (string, error) {
	if info.SampleID == "" {
		return "", fmt.Errorf("sample ID is required")
	}
	if info.Timestamp == "" {
		info.Timestamp = time.Now().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot serialize sample info for %s: %v", info.SampleID, err)
	}

	path := m.InfoPath(info.SampleID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("cannot write sample info %s: %v", path, err)
	}
	return path, nil
}

// LoadSampleInfo reads the sample info JSON. Returns nil without error when
// no info file exists.
func (m *Manager) LoadSampleInfo(sampleID string) (*SampleInfo, error) {
	data, err := os.ReadFile(m.InfoPath(sampleID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read sample info for %s: %v", sampleID, err)
	}

	var info SampleInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("cannot parse sample info for %s: %v", sampleID, err)
	}
	return &info, nil
}
