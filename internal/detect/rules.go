package detect

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps a label pattern to a field type and profile attribute
type Rule struct {
	Pattern     string    `yaml:"pattern"`
	Exclude     string    `yaml:"exclude,omitempty"`
	Type        FieldType `yaml:"type"`
	Translation string    `yaml:"translation"`
	Hints       []string  `yaml:"hints"`
	ProfilePath string    `yaml:"profile_path,omitempty"`

	pattern *regexp.Regexp
	exclude *regexp.Regexp
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Match reports whether the label satisfies the rule. With an exclude
// pattern, at least one primary match must not be followed by it.
func (r *Rule) Match(label string) bool {
	if r.exclude == nil {
		return r.pattern.MatchString(label)
	}
	for _, loc := range r.pattern.FindAllStringIndex(label, -1) {
		if !r.exclude.MatchString(label[loc[1]:]) {
			return true
		}
	}
	return false
}

func (r *Rule) compile() error {
	var err error
	if r.pattern, err = regexp.Compile("(?i)" + r.Pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	if r.Exclude != "" {
		if r.exclude, err = regexp.Compile("(?i)" + r.Exclude); err != nil {
			return fmt.Errorf("invalid exclude %q: %w", r.Exclude, err)
		}
	}
	if r.Type == "" {
		return fmt.Errorf("rule %q has no type", r.Pattern)
	}
	return nil
}

// UnmarshalYAML accepts field types in any case
func (t *FieldType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseFieldType(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRules decodes and compiles a YAML rule table
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}
	for i := range f.Rules {
		if err := f.Rules[i].compile(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return f.Rules, nil
}

// LoadRules returns the rule table from path, or the built-in table when
// path is empty
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the built-in German/English rule table
func DefaultRules() ([]Rule, error) {
	return ParseRules(defaultRules)
}
