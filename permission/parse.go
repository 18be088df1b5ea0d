// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse reads a permission in canonical textual form. The returned
// permission has passed Check.
func Parse(text string) (Permission, error) {
	text = strings.TrimSpace(text)
	kind, rest, found := strings.Cut(text, ":")
	if !found || rest == "" {
		return nil, fmt.Errorf("invalid permission %q: must be net:<host>:<port>, fs:<path>[:ro|rw[:<container-path>]] or env:<NAME>", text)
	}

	var parsed Permission
	var err error
	switch kind {
	case "net":
		parsed, err = parseNetwork(rest)
	case "fs":
		parsed, err = parseFilesystem(rest)
	case "env":
		parsed = EnvironmentVariable{Name: rest}
	default:
		return nil, fmt.Errorf("invalid permission %q: unknown kind %q", text, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid permission %q: %w", text, err)
	}
	if err := parsed.Check(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// ParseList parses each entry, stopping at the first error.
func ParseList(texts []string) ([]Permission, error) {
	result := make([]Permission, 0, len(texts))
	for _, text := range texts {
		parsed, err := Parse(text)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

func parseNetwork(rest string) (Permission, error) {
	// Bracketed IPv6: [::1]:443.
	if strings.HasPrefix(rest, "[") {
		addressPort, err := netip.ParseAddrPort(rest)
		if err != nil {
			return nil, err
		}
		return HostPort{Host: addressPort.Addr(), Port: addressPort.Port()}, nil
	}

	index := strings.LastIndex(rest, ":")
	if index <= 0 {
		return nil, fmt.Errorf("missing port")
	}
	host, portText := rest[:index], rest[index+1:]
	port, err := parsePort(portText)
	if err != nil {
		return nil, err
	}
	if address, err := netip.ParseAddr(host); err == nil {
		return HostPort{Host: address, Port: port}, nil
	}
	return DomainPort{Domain: strings.ToLower(host), Port: port}, nil
}

func parsePort(text string) (uint16, error) {
	port, err := strconv.ParseUint(text, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q: must be between 1 and 65535", text)
	}
	return uint16(port), nil
}

func parseFilesystem(rest string) (Permission, error) {
	parts := strings.SplitN(rest, ":", 3)
	access := FSAccess{Path: parts[0]}
	if len(parts) >= 2 {
		switch parts[1] {
		case "ro":
		case "rw":
			access.Write = true
		default:
			return nil, fmt.Errorf("invalid mode %q: must be ro or rw", parts[1])
		}
	}
	if len(parts) == 3 {
		if parts[2] == "" {
			return nil, fmt.Errorf("empty container path")
		}
		access.ContainerPath = parts[2]
	}
	return access, nil
}

// List is a YAML-decodable sequence of permissions in canonical textual
// form.
type List []Permission

// UnmarshalYAML decodes a sequence of permission strings.
func (l *List) UnmarshalYAML(node *yaml.Node) error {
	var texts []string
	if err := node.Decode(&texts); err != nil {
		return fmt.Errorf("permissions must be a list of strings: %w", err)
	}
	parsed, err := ParseList(texts)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalYAML encodes the list in canonical textual form.
func (l List) MarshalYAML() (any, error) {
	texts := make([]string, len(l))
	for index, item := range l {
		texts[index] = item.String()
	}
	return texts, nil
}
