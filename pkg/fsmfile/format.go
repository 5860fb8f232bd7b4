package fsmfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an on-disk encoding of a Structure.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for a file extension or format name that is
// neither JSON nor YAML.
var ErrUnknownFormat = errors.New("fsmfile: unknown format")

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ParseJSON reads a structural description from JSON.
func ParseJSON(data []byte) (Structure, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Structure{}, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	return Decode(raw)
}

// ParseYAML reads a structural description from YAML.
func ParseYAML(data []byte) (Structure, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Structure{}, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	return Decode(raw)
}

// Parse reads a structural description in format f.
func Parse(data []byte, f Format) (Structure, error) {
	switch f {
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	}
	return Structure{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ToJSON encodes s as JSON.
func ToJSON(s Structure, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(s, "", "  ")
	}
	return json.Marshal(s)
}

// ToYAML encodes s as YAML.
func ToYAML(s Structure) ([]byte, error) {
	return yaml.Marshal(s)
}

// Marshal encodes s in format f. JSON output is indented.
func Marshal(s Structure, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ToJSON(s, true)
	case FormatYAML:
		return ToYAML(s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
