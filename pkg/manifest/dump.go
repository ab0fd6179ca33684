// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ToYAML serialises the manifest to YAML.
func (m *Manifest) ToYAML() ([]byte, error) {
	return yaml.Marshal(m)
}

// ToJSON serialises the manifest to JSON, indented when pretty is set.
func (m *Manifest) ToJSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(m, "", "  ")
	}
	return json.Marshal(m)
}

// Save writes the manifest to path through the atomic write path.
func Save(path string, m *Manifest) error {
	data, err := m.ToYAML()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to path via a temp file and rename so readers
// never observe a half-written manifest.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}
