package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/config"
	"github.com/jward/reviewgate/internal/rules"
	"github.com/jward/reviewgate/internal/runtime"
	"github.com/jward/reviewgate/internal/walk"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// errFailed signals a run whose result has already been printed but must
// still exit non-zero.
var errFailed = errors.New("check failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled && !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "reviewgate",
	Short:         "Incremental code index and review rules for TypeScript, JavaScript, Go and Python",
	Long:          "reviewgate indexes symbols, calls and imports with tree-sitter into SQLite and checks files against built-in analyzers, framework rules and Risor rule scripts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: index.db_path from the config)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .reviewgate/config.yaml found from the working directory)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default .reviewgate/config.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		path, err := config.SaveDefault(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		return nil
	},
}

// loadConfig reads the --config file or searches from the working
// directory.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFromPath(flagConfig)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	return config.Load(cwd)
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(cfg *config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(cfg.Root, flagDB)
	}
	return cfg.DBPath()
}

func engineOptions(cfg *config.Config) []reviewgate.Option {
	var opts []reviewgate.Option
	if cfg.Index.Parallelism > 0 {
		opts = append(opts, reviewgate.WithParallelism(cfg.Index.Parallelism))
	}
	return opts
}

// openEngine opens the index. With mustExist, a missing database is an
// error rather than being created.
func openEngine(cfg *config.Config, mustExist bool) (*reviewgate.Engine, error) {
	dbPath := resolveDBPath(cfg)
	if mustExist {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found: %s (run 'reviewgate index' first)", dbPath)
		}
	}
	e, err := reviewgate.New(dbPath, engineOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	return e, nil
}

// openEngineIfIndexed opens the index when one exists and returns nil
// otherwise.
func openEngineIfIndexed(cfg *config.Config) (*reviewgate.Engine, error) {
	if _, err := os.Stat(resolveDBPath(cfg)); err != nil {
		return nil, nil
	}
	return openEngine(cfg, true)
}

// newRulesEngine builds the rule engine the config describes. e may be nil
// when no index is available.
func newRulesEngine(cfg *config.Config, e *reviewgate.Engine) (*rules.Engine, error) {
	opts := []rules.Option{
		rules.WithLogger(log.Default()),
		rules.WithThresholds(cfg.Thresholds()),
		rules.WithRoot(cfg.Root),
	}
	if cfg.Rules.FrameworkFile != "" {
		opts = append(opts, rules.WithFrameworkFile(cfg.Resolve(cfg.Rules.FrameworkFile)))
	}
	var scriptOpts []runtime.Option
	if e != nil {
		opts = append(opts, rules.WithStore(e.Store()))
		scriptOpts = append(scriptOpts, runtime.WithStore(e.Store()))
	}
	if cfg.Rules.ScriptsDir != "" {
		ss, err := runtime.Load(cfg.Resolve(cfg.Rules.ScriptsDir), scriptOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading rule scripts: %w", err)
		}
		opts = append(opts, rules.WithScripts(ss))
	}
	return rules.New(opts...), nil
}

func walkOptions(cfg *config.Config) walk.Options {
	return walk.Options{
		Extensions: cfg.Index.Extensions,
		Exclude:    cfg.Index.Exclude,
		ScanAll:    cfg.Index.ScanAll,
	}
}

// resolveTargetDir returns the absolute directory named by args, or the
// project root.
func resolveTargetDir(cfg *config.Config, args []string) (string, error) {
	dir := cfg.Root
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// keyRoot is the directory index keys are relative to: the project root
// when dir lies inside it, dir otherwise.
func keyRoot(cfg *config.Config, dir string) string {
	rel := reviewgate.RelPath(dir, cfg.Root)
	if filepath.IsAbs(filepath.FromSlash(rel)) {
		return dir
	}
	return cfg.Root
}

// relToRoot converts a file argument to its index key under the project
// root.
func relToRoot(cfg *config.Config, file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return reviewgate.RelPath(abs, cfg.Root), nil
}
