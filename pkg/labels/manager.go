package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LabelfileManager is a read-only registry over a fixed set of vocabulary
// definition files. Each file holds one or more label sets keyed by name.
// The key set of every file is read eagerly at construction so callers can
// list what exists; full LabelMap instances are materialized lazily and
// never cached, so every GetLabelMap call returns a fresh instance.
type LabelfileManager struct {
	root  string
	paths map[string]string
	sets  map[string][]string
}

// NewLabelfileManager scans the given id-to-relative-path map under root.
// Every file must exist and parse as a YAML mapping of label set names.
func NewLabelfileManager(root string, files map[string]string) (*LabelfileManager, error) {
	m := &LabelfileManager{
		root:  root,
		paths: make(map[string]string, len(files)),
		sets:  make(map[string][]string, len(files)),
	}
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		path := filepath.Join(root, files[id])
		names, err := labelsetNames(path)
		if err != nil {
			return nil, fmt.Errorf("label file %q: %w", id, err)
		}
		m.paths[id] = path
		m.sets[id] = names
	}
	return m, nil
}

func labelsetNames(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of label sets")
	}
	return mappingKeys(doc.Content[0]), nil
}

// Files returns the registered file ids in sorted order.
func (m *LabelfileManager) Files() []string {
	ids := make([]string, 0, len(m.paths))
	for id := range m.paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Labelsets returns the label set names a file provides, in file order.
func (m *LabelfileManager) Labelsets(fileID string) ([]string, error) {
	names, ok := m.sets[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown label file %q", fileID)
	}
	return names, nil
}

// GetLabelMap materializes one label set from one file. The file is re-read
// on every call and the result is a fresh, caller-owned LabelMap.
func (m *LabelfileManager) GetLabelMap(fileID, labelset string) (*LabelMap, error) {
	path, ok := m.paths[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown label file %q", fileID)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("label file %q: %w", fileID, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("label file %q: %w", fileID, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("label file %q: expected a mapping of label sets", fileID)
	}

	top := doc.Content[0]
	for i := 0; i < len(top.Content); i += 2 {
		if top.Content[i].Value != labelset {
			continue
		}
		lm, err := FromNode(top.Content[i+1], LoadOptions{Name: labelset})
		if err != nil {
			return nil, fmt.Errorf("label set %q in file %q: %w", labelset, fileID, err)
		}
		return lm, nil
	}
	return nil, fmt.Errorf("file %q has no label set %q (available: %v)",
		fileID, labelset, m.sets[fileID])
}
