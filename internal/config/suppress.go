package config

import (
	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/walk"
)

// Suppress drops violations the configuration does not want reported:
// disabled rules, files under ignore_paths, and HIGH_COMPLEXITY or
// FUNCTION_TOO_LONG whose value is at or below the reporting threshold.
// filePath is relative to the project root.
func (c *Config) Suppress(filePath string, vs []analyzer.Violation) []analyzer.Violation {
	if walk.NewPatterns(c.Rules.IgnorePaths).Match(filePath, false) {
		return nil
	}
	disabled := make(map[string]bool, len(c.Rules.Disabled))
	for _, r := range c.Rules.Disabled {
		disabled[r] = true
	}

	out := make([]analyzer.Violation, 0, len(vs))
	for _, v := range vs {
		if disabled[v.RuleName] {
			continue
		}
		if v.Value != nil {
			switch v.RuleName {
			case analyzer.RuleHighComplexity:
				if *v.Value <= c.Rules.ComplexityThreshold {
					continue
				}
			case analyzer.RuleFunctionTooLong:
				if *v.Value <= c.Rules.FunctionLengthThreshold {
					continue
				}
			}
		}
		out = append(out, v)
	}
	return out
}

// Thresholds returns the reporting thresholds in analyzer form.
func (c *Config) Thresholds() analyzer.Thresholds {
	return analyzer.Thresholds{
		Complexity:     c.Rules.ComplexityThreshold,
		FunctionLength: c.Rules.FunctionLengthThreshold,
	}
}
