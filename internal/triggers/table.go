package triggers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Kind classifies how a trigger acts on the requirement set.
type Kind string

const (
	// KindNone leaves the set unchanged.
	KindNone Kind = "none"
	// KindFreshStart replaces the set wholesale.
	KindFreshStart Kind = "fresh_start"
	// KindAdditive unions new keys into the set.
	KindAdditive Kind = "additive"
)

// Rule maps keywords or patterns in free text to requirements.
type Rule struct {
	Name         string   `yaml:"name" json:"name"`
	Kind         Kind     `yaml:"kind" json:"kind"`
	Keywords     []string `yaml:"keywords" json:"keywords"`
	Patterns     []string `yaml:"patterns" json:"patterns"`
	Requirements []string `yaml:"requirements" json:"requirements"`
}

// Satisfier marks a requirement complete when a matching tool event succeeds.
type Satisfier struct {
	Requirement     string   `yaml:"requirement" json:"requirement"`
	Tools           []string `yaml:"tools" json:"tools"`
	CommandPatterns []string `yaml:"command_patterns" json:"command_patterns"`
}

// Controls are user phrases that drive the manual overrides.
type Controls struct {
	Skip      []string `yaml:"skip" json:"skip"`
	SafetyOff []string `yaml:"safety_off" json:"safety_off"`
	SafetyOn  []string `yaml:"safety_on" json:"safety_on"`
}

// Table is the declarative pattern configuration.
type Table struct {
	Triggers      []Rule      `yaml:"triggers" json:"triggers"`
	Satisfiers    []Satisfier `yaml:"satisfiers" json:"satisfiers"`
	Controls      Controls    `yaml:"controls" json:"controls"`
	BuildPatterns []string    `yaml:"build_patterns" json:"build_patterns"`
}

// ParseTable decodes a table. format is a file extension: .yaml, .yml,
// .json or .jsonc.
func ParseTable(data []byte, format string) (*Table, error) {
	var t Table
	switch strings.ToLower(format) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse yaml table: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &t); err != nil {
			return nil, fmt.Errorf("parse json table: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable reads a table file, choosing the decoder by extension.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern table: %w", err)
	}
	return ParseTable(data, filepath.Ext(path))
}

// Validate checks rule kinds. Pattern syntax is checked by Compile.
func (t *Table) Validate() error {
	for _, r := range t.Triggers {
		switch r.Kind {
		case KindFreshStart, KindAdditive:
		default:
			return fmt.Errorf("%w: rule %q has kind %q", ErrInvalidKind, r.Name, r.Kind)
		}
	}
	return nil
}
