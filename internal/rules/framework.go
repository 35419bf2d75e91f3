package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/reviewgate/internal/analyzer"
)

// Rule is one declarative framework rule. Matching is plain substring
// search over the file content.
type Rule struct {
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description" json:"description"`
	Patterns          []string `yaml:"patterns" json:"patterns"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns" json:"forbidden_patterns"`
	RequiredImports   []string `yaml:"required_imports" json:"required_imports"`
	Level             string   `yaml:"level" json:"level"`
}

// FrameworkDefinition is a declarative rule document. JSON documents parse
// as YAML.
type FrameworkDefinition struct {
	Framework string `yaml:"framework" json:"framework"`
	Language  string `yaml:"language" json:"language"`
	Rules     []Rule `yaml:"rules" json:"rules"`
	// ArchitecturePatterns is carried for consumers; it is not evaluated.
	ArchitecturePatterns any `yaml:"architecture_patterns" json:"architecture_patterns"`
}

// LoadFramework reads and parses the document at path.
func LoadFramework(path string) (*FrameworkDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading framework file: %w", err)
	}
	return ParseFramework(data)
}

// ParseFramework parses a YAML or JSON framework document.
func ParseFramework(data []byte) (*FrameworkDefinition, error) {
	var def FrameworkDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing framework file: %w", err)
	}
	for i, r := range def.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("parsing framework file: rule %d has no name", i)
		}
	}
	return &def, nil
}

// Check applies every rule to content. A rule is flagged at most once: on
// the first forbidden pattern found, else on the first required import
// missing.
func (d *FrameworkDefinition) Check(content string) []analyzer.Violation {
	if d == nil {
		return nil
	}
	var out []analyzer.Violation
	for _, r := range d.Rules {
		if v, ok := r.check(content); ok {
			out = append(out, v)
		}
	}
	return out
}

func (r Rule) check(content string) (analyzer.Violation, bool) {
	level := analyzer.ParseLevel(r.Level)
	for _, p := range r.ForbiddenPatterns {
		idx := strings.Index(content, p)
		if p == "" || idx < 0 {
			continue
		}
		line := strings.Count(content[:idx], "\n") + 1
		pattern := p
		return analyzer.Violation{
			RuleName: r.Name,
			Message:  r.message(fmt.Sprintf("forbidden pattern %q found", p)),
			Level:    level,
			Line:     &line,
			Symbol:   &pattern,
		}, true
	}
	for _, imp := range r.RequiredImports {
		if strings.Contains(content, imp) {
			continue
		}
		missing := imp
		return analyzer.Violation{
			RuleName: r.Name,
			Message:  r.message(fmt.Sprintf("required import %q missing", imp)),
			Level:    level,
			Symbol:   &missing,
		}, true
	}
	return analyzer.Violation{}, false
}

func (r Rule) message(detail string) string {
	if r.Description == "" {
		return detail
	}
	return r.Description + ": " + detail
}
