// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is an abstract class of access a manifest may declare.
type Category uint8

const (
	// NetworkClient allows outbound connections to allow-listed
	// destinations.
	NetworkClient Category = iota + 1

	// FilesystemRead allows read-only bind mounts of host paths.
	FilesystemRead

	// FilesystemWrite allows read-write bind mounts of host paths.
	FilesystemWrite

	// SystemEnvRead allows named host environment variables to be
	// copied into the sandbox.
	SystemEnvRead
)

var categoryNames = map[Category]string{
	NetworkClient:   "network-client",
	FilesystemRead:  "filesystem-read",
	FilesystemWrite: "filesystem-write",
	SystemEnvRead:   "system-environment-read",
}

// AllCategories returns every defined category in declaration order.
func AllCategories() []Category {
	return []Category{NetworkClient, FilesystemRead, FilesystemWrite, SystemEnvRead}
}

// String returns the category's canonical name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory converts a canonical category name to a Category.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for category, candidate := range categoryNames {
		if candidate == name {
			return category, nil
		}
	}
	return 0, fmt.Errorf("unknown capability category %q (valid: %s)", name, NewSet(AllCategories()...))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Set is an immutable set of categories. The zero value is the empty set.
type Set struct {
	bits uint8
}

// NewSet returns a set holding the given categories. Invalid categories
// are ignored.
func NewSet(categories ...Category) Set {
	var set Set
	for _, category := range categories {
		if category.Valid() {
			set.bits |= 1 << category
		}
	}
	return set
}

// Has reports whether the set contains c.
func (s Set) Has(c Category) bool {
	return c.Valid() && s.bits&(1<<c) != 0
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool {
	return s.bits == 0
}

// With returns a new set that additionally contains c.
func (s Set) With(c Category) Set {
	if c.Valid() {
		s.bits |= 1 << c
	}
	return s
}

// List returns the members in declaration order.
func (s Set) List() []Category {
	var result []Category
	for _, category := range AllCategories() {
		if s.Has(category) {
			result = append(result, category)
		}
	}
	return result
}

// String renders the set as a brace-delimited, comma-separated list.
func (s Set) String() string {
	names := make([]string, 0, len(categoryNames))
	for _, category := range s.List() {
		names = append(names, category.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// MarshalYAML encodes the set as a sequence of category names.
func (s Set) MarshalYAML() (any, error) {
	names := make([]string, 0, len(categoryNames))
	for _, category := range s.List() {
		names = append(names, category.String())
	}
	return names, nil
}

// UnmarshalYAML decodes a sequence of category names. Duplicates are
// accepted; unknown names are an error.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("capabilities must be a list of category names: %w", err)
	}
	var set Set
	for _, name := range names {
		category, err := ParseCategory(name)
		if err != nil {
			return err
		}
		set = set.With(category)
	}
	*s = set
	return nil
}
