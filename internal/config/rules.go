package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/praxislabs/vetta/internal/gate"
)

// LoadRules reads gate rules from a YAML file. An empty path returns the
// shipped defaults, keeping the gate usable with zero configuration.
func LoadRules(path string) (gate.Rules, error) {
	if path == "" {
		return gate.DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return gate.Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var rules gate.Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return gate.Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}
