// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/guardiagent/mcp-sandbox/permission"
)

// File is the on-disk manifest format: a map from lookup key to entry.
// YAML files and JSON files (with comments and trailing commas) share
// the same structure.
type File struct {
	Manifests map[string]*Entry `yaml:"manifests" json:"manifests" validate:"dive,keys,required,endkeys,required" jsonschema:"required"`
}

// Entry is one manifest as written in a file.
type Entry struct {
	Name         string            `yaml:"name" json:"name" validate:"required" jsonschema:"required,description=Human-readable tool server name"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=What the tool server does"`
	Registry     string            `yaml:"registry" json:"registry" validate:"required,oneof=pypi npm" jsonschema:"required,enum=pypi,enum=npm"`
	Package      string            `yaml:"package" json:"package" validate:"required" jsonschema:"required,description=Package identifier within the registry"`
	Capabilities []string          `yaml:"capabilities,omitempty" json:"capabilities,omitempty" validate:"dive,oneof=network-client filesystem-read filesystem-write system-environment-read" jsonschema:"uniqueItems=true"`
	Development  *DevelopmentEntry `yaml:"development,omitempty" json:"development,omitempty"`
}

// DevelopmentEntry is the development section of an Entry. A relative
// Source resolves against the directory of the file that declares it.
type DevelopmentEntry struct {
	Source  string `yaml:"source" json:"source" validate:"required" jsonschema:"required,description=Local package source directory"`
	Command string `yaml:"command" json:"command" validate:"required" jsonschema:"required,description=Shell command run instead of the registry install"`
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes manifest file content. JSON content (detected by a
// leading '{') may contain comments and trailing commas. Relative
// development sources resolve against baseDir.
func Parse(data []byte, baseDir string) (map[string]Manifest, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		// JSON is a subset of YAML once comments and trailing commas
		// are stripped, so both formats share one decoder.
		data = jsonc.ToJSON(data)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing manifests: %w", err)
	}
	if err := structValidator.Struct(&file); err != nil {
		return nil, describeValidation(err)
	}

	result := make(map[string]Manifest, len(file.Manifests))
	for key, entry := range file.Manifests {
		manifest, err := entry.toManifest(baseDir)
		if err != nil {
			return nil, fmt.Errorf("manifest %q: %w", key, err)
		}
		result[key] = manifest
	}
	return result, nil
}

// ReadFile reads and parses a manifest file.
func ReadFile(path string) (map[string]Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	manifests, err := Parse(data, filepath.Dir(absolute))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manifests, nil
}

func (e *Entry) toManifest(baseDir string) (Manifest, error) {
	var categories []permission.Category
	for _, name := range e.Capabilities {
		category, err := permission.ParseCategory(name)
		if err != nil {
			return Manifest{}, err
		}
		categories = append(categories, category)
	}

	registry, err := ParseRegistry(e.Registry)
	if err != nil {
		return Manifest{}, err
	}

	if e.Development == nil {
		return New(e.Name, e.Description, registry, e.Package, categories...)
	}

	source := e.Development.Source
	if !filepath.IsAbs(source) {
		source = filepath.Join(baseDir, source)
	}
	return NewDevelopment(e.Name, e.Description, registry, e.Package, Development{
		Source:  filepath.Clean(source),
		Command: e.Development.Command,
	}, categories...)
}

// ToEntry converts a manifest back to its file representation.
func ToEntry(m Manifest) *Entry {
	entry := &Entry{
		Name:        m.Name,
		Description: m.Description,
		Registry:    string(m.Registry),
		Package:     m.Package,
	}
	for _, category := range m.Capabilities.List() {
		entry.Capabilities = append(entry.Capabilities, category.String())
	}
	if m.IsDevelopment() {
		entry.Development = &DevelopmentEntry{
			Source:  m.Development.Source,
			Command: m.Development.Command,
		}
	}
	return entry
}

// describeValidation flattens validator errors into field-level messages.
func describeValidation(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		field := strings.TrimPrefix(fieldError.Namespace(), "File.")
		switch fieldError.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s: %q must be one of [%s]", field, fieldError.Value(), fieldError.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s: failed %q check", field, fieldError.Tag()))
		}
	}
	return fmt.Errorf("invalid manifest file:\n  %s", strings.Join(messages, "\n  "))
}
