package proxy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of a routing table.
type rulesFile struct {
	Routes []Rule `yaml:"routes"`
}

// LoadRules reads a routing table from a YAML file and validates it. An
// empty path returns the default table.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes file: %w", err)
	}
	if err := Validate(file.Routes); err != nil {
		return nil, fmt.Errorf("routes file %s: %w", path, err)
	}
	return file.Routes, nil
}
