package categorize

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRulesYAML []byte

// RuleFile is the on-disk layout of a rules file.
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// ParseRules decodes a rules file.
func ParseRules(data []byte) ([]RuleSpec, error) {
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return f.Rules, nil
}

// LoadRules reads user rules from path. A missing file means no user rules.
func LoadRules(path string) ([]RuleSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	specs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// SaveRules writes specs to path as a rules file.
func SaveRules(path string, specs []RuleSpec) error {
	data, err := yaml.Marshal(RuleFile{Rules: specs})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}

// DefaultRules returns the built-in rule specs.
func DefaultRules() []RuleSpec {
	specs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic("embedded default rules: " + err.Error())
	}
	return specs
}

// Load builds a chain from the user rules file at path, followed by the
// built-in defaults when useDefaults is set.
func Load(path string, useDefaults bool) (*Chain, error) {
	user, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	var builtin []RuleSpec
	if useDefaults {
		builtin = DefaultRules()
	}
	return NewChain(user, builtin)
}
