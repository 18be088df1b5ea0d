// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Loader collects manifests from the built-in defaults and from files.
// A manifest loaded later replaces one with the same key loaded earlier.
type Loader struct {
	manifests map[string]Manifest
	sources   map[string]string
	logger    *slog.Logger
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{
		manifests: make(map[string]Manifest),
		sources:   make(map[string]string),
	}
}

// SetLogger enables logging of which files are read and which manifests
// they define.
func (l *Loader) SetLogger(logger *slog.Logger) {
	l.logger = logger
}

func (l *Loader) log(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

// LoadDefaults loads the built-in manifests.
func (l *Loader) LoadDefaults() error {
	manifests, err := Parse([]byte(defaultManifestsYAML), "")
	if err != nil {
		return fmt.Errorf("parsing built-in manifests: %w", err)
	}
	l.add(manifests, "built-in")
	l.log("loaded built-in manifests", "count", len(manifests))
	return nil
}

// LoadFile loads manifests from a YAML or JSONC file.
func (l *Loader) LoadFile(path string) error {
	l.log("loading manifests from file", "path", path)
	manifests, err := ReadFile(path)
	if err != nil {
		return err
	}
	l.add(manifests, path)
	l.log("loaded manifests from file", "path", path, "count", len(manifests))
	return nil
}

// LoadDirectory loads every .yaml, .yml, .json and .jsonc file in dir.
// A missing directory is not an error.
func (l *Loader) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.log("manifest directory not found", "path", dir)
			return nil
		}
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json", ".jsonc":
		default:
			continue
		}
		if err := l.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) add(manifests map[string]Manifest, source string) {
	for key, manifest := range manifests {
		if previous, ok := l.sources[key]; ok {
			l.log("manifest overridden", "key", key, "previous", previous, "source", source)
		}
		l.manifests[key] = manifest
		l.sources[key] = source
	}
}

// Resolve returns the manifest registered under key.
func (l *Loader) Resolve(key string) (Manifest, error) {
	manifest, ok := l.manifests[key]
	if !ok {
		return Manifest{}, fmt.Errorf("manifest not found: %s", key)
	}
	return manifest, nil
}

// Source returns where the manifest registered under key was loaded from.
func (l *Loader) Source(key string) string {
	return l.sources[key]
}

// List returns all manifest keys, sorted.
func (l *Loader) List() []string {
	keys := make([]string, 0, len(l.manifests))
	for key := range l.manifests {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// defaultManifestsYAML contains the built-in manifests.
const defaultManifestsYAML = `
manifests:
  sqlite:
    name: SQLite MCP Server
    description: MCP server for SQLite database operations.
    registry: npm
    package: mcp-server-sqlite-npx
    capabilities:
      - filesystem-read
      - filesystem-write

  fetch:
    name: Fetch MCP Server
    description: Retrieves web content for allow-listed destinations.
    registry: pypi
    package: mcp-server-fetch
    capabilities:
      - network-client
`
