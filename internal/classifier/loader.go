package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk layout of a rule table:
//
//	static_extensions: [".js", ".css"]
//	rules:
//	  - label: xss
//	    pattern: '(?i)<script'
type ruleFile struct {
	StaticExtensions []string `yaml:"static_extensions"`
	Rules            []Rule   `yaml:"rules"`
}

// LoadRules reads a YAML rule table. A file without static_extensions keeps
// the default set; a file without rules is an error.
func LoadRules(path string) ([]Rule, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	if rf.StaticExtensions == nil {
		rf.StaticExtensions = DefaultStaticExtensions()
	}

	// Compile once here so a bad file is rejected at load time.
	if _, err := New(rf.Rules, rf.StaticExtensions); err != nil {
		return nil, nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rf.Rules, rf.StaticExtensions, nil
}

// FromFile builds a Classifier from a rules file, or the defaults when path is empty.
func FromFile(path string) (*Classifier, error) {
	if path == "" {
		return NewDefault(), nil
	}
	rules, exts, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return New(rules, exts)
}
