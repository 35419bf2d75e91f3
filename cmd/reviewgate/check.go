package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/config"
	"github.com/jward/reviewgate/internal/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Check files against the review rules",
	Long:  "Runs framework rules, the built-in analyzers and rule scripts on each file. Exits 1 when any error-level violation remains after the configured suppression.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var flagTestsPassing bool

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Check a file and append the result to its quality history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().BoolVar(&flagTestsPassing, "tests-passing", false, "record that the file's tests pass")
}

// checker validates files under one configuration.
type checker struct {
	cfg    *config.Config
	rules  *rules.Engine
	engine *reviewgate.Engine
}

func newChecker(requireIndex bool) (*checker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	var e *reviewgate.Engine
	if requireIndex {
		e, err = openEngine(cfg, false)
	} else {
		e, err = openEngineIfIndexed(cfg)
	}
	if err != nil {
		return nil, err
	}
	r, err := newRulesEngine(cfg, e)
	if err != nil {
		if e != nil {
			e.Close()
		}
		return nil, err
	}
	return &checker{cfg: cfg, rules: r, engine: e}, nil
}

func (c *checker) Close() {
	if c.engine != nil {
		c.engine.Close()
	}
}

// check validates one file and applies the configured suppression.
func (c *checker) check(ctx context.Context, file string) (CLIFileReport, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return CLIFileReport{}, fmt.Errorf("resolving file path %q: %w", file, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return CLIFileReport{}, fmt.Errorf("reading %s: %w", file, err)
	}
	rel := reviewgate.RelPath(abs, c.cfg.Root)
	vs := c.cfg.Suppress(rel, c.rules.ValidateFile(ctx, abs, content))
	return CLIFileReport{File: rel, Violations: vs}, nil
}

func hasErrors(vs []analyzer.Violation) bool {
	for _, v := range vs {
		if v.Level == analyzer.LevelError {
			return true
		}
	}
	return false
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := newChecker(false)
	if err != nil {
		return err
	}
	defer c.Close()

	var reports []CLIFileReport
	failed := false
	for _, file := range args {
		r, err := c.check(cmd.Context(), file)
		if err != nil {
			return outputError(cmd, "check", err)
		}
		reports = append(reports, r)
		failed = failed || hasErrors(r.Violations)
	}
	if err := outputResult(cmd, CLIResult{Command: "check", Results: reports}); err != nil {
		return err
	}
	if failed {
		return errFailed
	}
	return nil
}

// snapshotOf summarizes one file's violations as a quality snapshot. The
// complexity score is the mean HIGH_COMPLEXITY value, or 0.
func snapshotOf(r CLIFileReport, testsPassing bool) *reviewgate.QualitySnapshot {
	snap := &reviewgate.QualitySnapshot{
		FilePath:        r.File,
		ViolationsCount: len(r.Violations),
		TestsPassing:    testsPassing,
	}
	total, n := 0, 0
	for _, v := range r.Violations {
		switch v.RuleName {
		case analyzer.RuleDeadCode:
			snap.DeadFunctions++
		case analyzer.RuleUnusedImport:
			snap.UnusedImports++
		case analyzer.RuleHighComplexity:
			if v.Value != nil {
				total += *v.Value
				n++
			}
		}
	}
	if n > 0 {
		snap.ComplexityScore = float64(total) / float64(n)
	}
	return snap
}

func runRecord(cmd *cobra.Command, args []string) error {
	c, err := newChecker(true)
	if err != nil {
		return err
	}
	defer c.Close()

	r, err := c.check(cmd.Context(), args[0])
	if err != nil {
		return outputError(cmd, "record", err)
	}
	snap := snapshotOf(r, flagTestsPassing)
	if err := c.engine.Query().RecordMetrics(snap); err != nil {
		return outputError(cmd, "record", err)
	}
	return outputResult(cmd, CLIResult{Command: "record", Results: toCLISnapshot(snap)})
}
