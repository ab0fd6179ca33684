// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package scm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/pkg/manifest"
	"gopkg.in/yaml.v3"
)

// P4 is the Perforce subprocess backend. State that git keeps in .git is
// reconstructed from <dest>/.p4/config, written at clone time.
type P4 struct {
	exec *execx.Executor
}

// p4Config is persisted under <dest>/.p4/config so later invocations can
// rebuild the client environment.
type p4Config struct {
	Port      string `yaml:"P4PORT"`
	Client    string `yaml:"P4CLIENT"`
	User      string `yaml:"P4USER,omitempty"`
	DepotPath string `yaml:"DEPOT_PATH"`
}

// Kind identifies the backend.
func (p *P4) Kind() manifest.ScmKind { return manifest.ScmP4 }

// ParseP4URL splits "[perforce://|p4://]host:port//depot/path" into the
// server endpoint and depot path.
func ParseP4URL(url string) (server, depot string, err error) {
	trimmed := strings.TrimSpace(url)
	trimmed = strings.TrimPrefix(trimmed, "perforce://")
	trimmed = strings.TrimPrefix(trimmed, "p4://")

	idx := strings.Index(trimmed, "//")
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid p4 url %q: missing depot path", url)
	}

	server = strings.TrimSuffix(trimmed[:idx], "/")
	depot = trimmed[idx:]
	if server == "" || depot == "//" {
		return "", "", fmt.Errorf("invalid p4 url %q", url)
	}
	return server, depot, nil
}

// Clone creates a client workspace spec, pipes it into "p4 client -i",
// syncs the depot path, and persists the client config for later calls.
func (p *P4) Clone(ctx context.Context, url, dest string, opts Options) error {
	server, depot, err := ParseP4URL(url)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	client := opts.Client
	if client == "" {
		client = fmt.Sprintf("wmgr-%s-%d", filepath.Base(dest), os.Getpid())
	}

	env := p.env(server, client, opts.Username, opts.Password)

	spec := fmt.Sprintf("Client: %s\nRoot: %s\nView:\n\t%s/... //%s/...\n", client, dest, strings.TrimSuffix(depot, "/"), client)
	result, err := p.exec.RunInput(ctx, dest, env.vars, []byte(spec), "p4", "client", "-i")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &execx.CommandError{Command: "p4 client -i", ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	syncPath := depot + "/..."
	if opts.Revision != "" {
		syncPath += "@" + opts.Revision
	}
	if err := p.runChecked(ctx, dest, env, "sync", syncPath); err != nil {
		return err
	}

	cfg := p4Config{Port: server, Client: client, User: opts.Username, DepotPath: depot}
	return writeP4Config(dest, cfg)
}

// Sync reads the persisted client config and re-syncs the depot path,
// reverting open files first when Force is set.
func (p *P4) Sync(ctx context.Context, dest string, opts Options) error {
	cfg, err := readP4Config(dest)
	if err != nil {
		return err
	}

	env := p.env(cfg.Port, cfg.Client, cfg.User, opts.Password)

	if opts.Force {
		if err := p.runChecked(ctx, dest, env, "revert", cfg.DepotPath+"/..."); err != nil {
			return err
		}
	}

	syncPath := cfg.DepotPath + "/..."
	if opts.Revision != "" {
		syncPath += "@" + opts.Revision
	}
	return p.runChecked(ctx, dest, env, "sync", syncPath)
}

// Status reports the have-revision and open-file state. Perforce has no
// untracked concept and no ahead/behind.
func (p *P4) Status(ctx context.Context, dest string) (*StatusResult, error) {
	cfg, err := readP4Config(dest)
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "missing p4 config", Err: err}
	}

	env := p.env(cfg.Port, cfg.Client, cfg.User, "")

	revision, err := p.runOutput(ctx, dest, env, "changes", "-m1", cfg.DepotPath+"/...#have")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "p4 changes failed", Err: err}
	}

	opened, err := p.runOutput(ctx, dest, env, "opened")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "p4 opened failed", Err: err}
	}

	openedCount := 0
	for _, line := range strings.Split(strings.TrimSpace(opened), "\n") {
		if strings.TrimSpace(line) != "" {
			openedCount++
		}
	}

	return &StatusResult{
		Revision:   strings.TrimSpace(revision),
		HasChanges: openedCount > 0,
		Modified:   openedCount,
	}, nil
}

// IsRepository reports whether dest carries a persisted p4 config.
func (p *P4) IsRepository(dest string) bool {
	return pathExists(filepath.Join(dest, ".p4", "config"))
}

// CurrentRevision returns the most recent synced changelist description.
func (p *P4) CurrentRevision(ctx context.Context, dest string) (string, error) {
	cfg, err := readP4Config(dest)
	if err != nil {
		return "", err
	}
	env := p.env(cfg.Port, cfg.Client, cfg.User, "")
	return p.runOutput(ctx, dest, env, "changes", "-m1", cfg.DepotPath+"/...#have")
}

// HasChanges reports whether any files are opened in the client.
func (p *P4) HasChanges(ctx context.Context, dest string) (bool, error) {
	cfg, err := readP4Config(dest)
	if err != nil {
		return false, err
	}
	env := p.env(cfg.Port, cfg.Client, cfg.User, "")
	out, err := p.runOutput(ctx, dest, env, "opened")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// p4Env bundles the environment every p4 invocation needs.
type p4Env struct {
	vars []string
}

func (p *P4) env(port, client, user, password string) p4Env {
	vars := []string{"P4PORT=" + port, "P4CLIENT=" + client}
	if user != "" {
		vars = append(vars, "P4USER="+user)
	}
	if password != "" {
		vars = append(vars, "P4PASSWD="+password)
	}
	return p4Env{vars: vars}
}

func (p *P4) runChecked(ctx context.Context, dir string, env p4Env, args ...string) error {
	result, err := p.exec.RunEnv(ctx, dir, env.vars, "p4", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &execx.CommandError{
			Command:  "p4 " + args[0],
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return nil
}

func (p *P4) runOutput(ctx context.Context, dir string, env p4Env, args ...string) (string, error) {
	result, err := p.exec.RunEnv(ctx, dir, env.vars, "p4", args...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &execx.CommandError{
			Command:  "p4 " + args[0],
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return result.Stdout, nil
}

func writeP4Config(dest string, cfg p4Config) error {
	dir := filepath.Join(dest, ".p4")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create .p4 directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal p4 config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config"), data, 0o644)
}

func readP4Config(dest string) (*p4Config, error) {
	data, err := os.ReadFile(filepath.Join(dest, ".p4", "config"))
	if err != nil {
		return nil, fmt.Errorf("read p4 config: %w", err)
	}
	var cfg p4Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse p4 config: %w", err)
	}
	return &cfg, nil
}
