package semanticrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog file formats accepted by ParseCatalog.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// catalogFile is the on-disk shape: a document with a routes list.
type catalogFile struct {
	Routes []Route `json:"routes" yaml:"routes"`
}

// LoadCatalog reads routes from a YAML or JSON file. The format follows the
// file extension; anything other than .json is read as YAML.
func LoadCatalog(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	routes, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return routes, nil
}

// ParseCatalog decodes routes from data. Both a document with a top-level
// "routes" list and a bare list of routes are accepted.
func ParseCatalog(data []byte, format string) ([]Route, error) {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return parseYAMLCatalog(data)
	case FormatJSON:
		return parseJSONCatalog(data)
	default:
		return nil, fmt.Errorf("%w: unknown catalog format %q", ErrInvalidArgument, format)
	}
}

func parseYAMLCatalog(data []byte) ([]Route, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var routes []Route
		if err := root.Decode(&routes); err != nil {
			return nil, fmt.Errorf("failed to decode routes: %w", err)
		}
		return routes, nil
	}

	var file catalogFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode routes: %w", err)
	}
	return file.Routes, nil
}

func parseJSONCatalog(data []byte) ([]Route, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var routes []Route
		if err := json.Unmarshal(trimmed, &routes); err != nil {
			return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
		}
		return routes, nil
	}

	var file catalogFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
	}
	return file.Routes, nil
}

// WriteCatalog writes routes to path as YAML.
func WriteCatalog(path string, routes []Route) error {
	data, err := yaml.Marshal(catalogFile{Routes: routes})
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}
