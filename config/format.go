package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

// Format is the syntax of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported configuration file extension %q", filepath.Ext(path))
	}
}

func (f Format) parser() (koanf.Parser, error) {
	switch f {
	case FormatYAML, "":
		return yaml.Parser(), nil
	case FormatTOML:
		return tomlParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", string(f))
	}
}

// tomlParser implements koanf.Parser on go-toml/v2.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return toml.Marshal(m)
}
