// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the workspace config file inside .wmgr/.
const ConfigFileName = "config.yml"

// Config is the persisted workspace configuration, recorded at init so
// later invocations re-enter the workspace without re-specifying options.
type Config struct {
	ManifestURL    string   `yaml:"manifest_url,omitempty"`
	ManifestBranch string   `yaml:"manifest_branch,omitempty"`
	ShallowClones  bool     `yaml:"shallow_clones,omitempty"`
	RepoGroups     []string `yaml:"repo_groups,omitempty"`
	CloneAllRepos  bool     `yaml:"clone_all_repos,omitempty"`
	SingularRemote string   `yaml:"singular_remote,omitempty"`
	Initialized    bool     `yaml:"initialized,omitempty"`
}

// LoadConfig reads a workspace config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse workspace config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes a workspace config file, creating .wmgr/ as needed.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal workspace config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workspace config: %w", err)
	}
	return nil
}
