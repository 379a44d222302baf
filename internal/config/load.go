package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadFragment reads one fragment file. The parser is chosen by
// extension: .toml uses TOML, everything else is treated as YAML.
func LoadFragment(path string) (Fragment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fragment{}, err
	}
	var f Fragment
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil {
			return Fragment{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(b, &f); err != nil {
			return Fragment{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	f.Name = path
	return f, nil
}

// Load reads all fragment files, merges them and runs schema validation
// on the result. Constraint checking (uniqueness, roles, lockout) is a
// separate stage; this only rejects structurally broken input.
func Load(paths []string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration files given")
	}
	fragments := make([]Fragment, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFragment(p)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	cfg := Merge(fragments)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return cfg, nil
}
