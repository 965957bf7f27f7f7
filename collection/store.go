package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists collections as JSON files in a single directory.
type Store struct {
	Dir string
}

// NewStore creates the storage directory if needed and returns a store over
// it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create collection directory %s: %v", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// filename derives the on-disk name for a collection from its identifiers,
// matching the layout the viewer expects: <sample>_<name>.json, with a
// session prefix when one is set.
func (s *Store) filename(c *Collection) string {
	name := strings.ReplaceAll(c.Name, " ", "_")
	if c.SessionID != "" {
		return fmt.Sprintf("%s_%s_%s.json", c.SessionID, c.SampleID, name)
	}
	return fmt.Sprintf("%s_%s.json", c.SampleID, name)
}

// Save writes the collection to its JSON file and returns the file path.
func (s *Store) Save(c *Collection) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot serialize collection %s: %v", c.Name, err)
	}

	path := filepath.Join(s.Dir, s.filename(c))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("cannot write collection file %s: %v", path, err)
	}
	return path, nil
}

// Load reads a collection back from a JSON file.
func (s *Store) Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read collection file %s: %v", path, err)
	}

	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cannot parse collection file %s: %v", path, err)
	}
	return &c, nil
}

// ListForSample returns the paths of all collection files saved for the
// given sample, in lexical order.
func (s *Store) ListForSample(sampleID string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list collection directory %s: %v", s.Dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, sampleID+"_") || strings.Contains(name, "_"+sampleID+"_") {
			paths = append(paths, filepath.Join(s.Dir, name))
		}
	}
	return paths, nil
}
