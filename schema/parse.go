// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a map description.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatTOML
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	case FormatBinary:
		return "binary"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts "yaml", "yml", "json", "jsonc", "toml" and "rmb"
// for the binary encoding.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json", "jsonc":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "rmb", "binary":
		return FormatBinary, nil
	}
	return 0, fmt.Errorf("unknown map format %q", s)
}

// FormatForPath picks a format from a file extension. Unknown extensions
// are read as YAML, which also accepts plain JSON.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatYAML
}

// Map is an engaged record map together with the metadata of its
// description.
type Map struct {
	Name        string
	Version     int
	Description string
	File        *Node
}

// LoadMap reads and parses a map description file.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := ParseMap(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseMap parses a map description and engages it. The top level holds
// name, version, description, an optional root length (default
// SumOfInnerFields) and the root's fields. Every field has a name, a type
// and a length; records carry fields and record arrays an element.
//
// Syntax errors are returned wrapped; structural problems are returned as
// *ConfigError. FormatBinary input is handed to ParseBinary.
func ParseMap(data []byte, format Format) (*Map, error) {
	if format == FormatBinary {
		return ParseBinary(data)
	}
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map: %w", err)
	}

	m := &Map{}
	if name, ok := raw["name"].(string); ok {
		m.Name = name
	}
	if version, ok := toInt(raw["version"]); ok {
		m.Version = version
	}
	if desc, ok := raw["description"].(string); ok {
		m.Description = desc
	}

	length := SumOfInner()
	if v, ok := raw["length"]; ok {
		if length, err = parseLengthValue(v); err != nil {
			return nil, fmt.Errorf("root length: %w", err)
		}
	}

	children, err := parseFields(raw["fields"], m.Name)
	if err != nil {
		return nil, err
	}

	root, err := NewFile(m.Name, length, children...)
	if err != nil {
		return nil, err
	}
	m.File = root
	return m, nil
}

func decodeRaw(data []byte, format Format) (map[string]any, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("empty map description")
	}
	return raw, nil
}

func parseFields(v any, parent string) ([]*Node, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := toMaps(v)
	if !ok {
		return nil, fmt.Errorf("%s: fields must be a list of mappings", parent)
	}
	nodes := make([]*Node, 0, len(items))
	for i, fm := range items {
		n, err := parseNode(fm)
		if err != nil {
			name, _ := fm["name"].(string)
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("%s.%s: %w", parent, name, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseNode(fm map[string]any) (*Node, error) {
	name, _ := fm["name"].(string)

	typeName, _ := fm["type"].(string)
	if typeName == "" {
		if _, ok := fm["fields"]; ok {
			typeName = "record"
		} else {
			return nil, fmt.Errorf("missing type")
		}
	}
	dataType, err := ParseDataType(typeName)
	if err != nil {
		return nil, err
	}

	var length Length
	if v, ok := fm["length"]; ok {
		if length, err = parseLengthValue(v); err != nil {
			return nil, err
		}
	}

	switch dataType {
	case Record, File:
		children, err := parseFields(fm["fields"], name)
		if err != nil {
			return nil, err
		}
		return &Node{name: name, dataType: dataType, length: length, children: children}, nil
	case RecordArray:
		em, ok := toStringMap(fm["element"])
		if !ok {
			return nil, fmt.Errorf("record array needs an element mapping")
		}
		if _, ok := em["type"]; !ok {
			em["type"] = "record"
		}
		element, err := parseNode(em)
		if err != nil {
			return nil, fmt.Errorf("element: %w", err)
		}
		return NewRecordArray(name, length, element), nil
	}
	return Field(name, dataType, length), nil
}

// parseLengthValue accepts an integer constant, the textual form read by
// ParseLength, or a single-key mapping such as {fixed: 4} or
// {field: header.count}.
func parseLengthValue(v any) (Length, error) {
	if n, ok := toInt(v); ok {
		return Fixed(n), nil
	}
	switch val := v.(type) {
	case string:
		return ParseLength(val)
	case nil:
		return Length{}, nil
	}
	m, ok := toStringMap(v)
	if !ok || len(m) != 1 {
		return Length{}, fmt.Errorf("invalid length %v", v)
	}
	for k, arg := range m {
		if n, ok := toInt(arg); ok {
			return ParseLength(fmt.Sprintf("%s:%d", k, n))
		}
		if s, ok := arg.(string); ok {
			return ParseLength(k + ":" + s)
		}
		return ParseLength(k)
	}
	return Length{}, nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	}
	return 0, false
}

// toStringMap normalizes the mapping types produced by the three
// decoders.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// toMaps accepts YAML/JSON sequences ([]any) and TOML arrays of tables
// ([]map[string]any).
func toMaps(v any) ([]map[string]any, bool) {
	switch list := v.(type) {
	case []map[string]any:
		return list, true
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			m, ok := toStringMap(item)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}
