// Package config loads .reviewgate/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the configuration directory
const ConfigDirName = ".reviewgate"

// Config holds all reviewgate configuration
type Config struct {
	Index IndexConfig `yaml:"index"`
	Rules RulesConfig `yaml:"rules"`
	Watch WatchConfig `yaml:"watch"`

	// Root is the project root: the directory holding ConfigDirName, or the
	// working directory when no config was found. Relative paths in the
	// file resolve against it.
	Root string `yaml:"-"`
}

// IndexConfig holds configuration for indexing
type IndexConfig struct {
	DBPath      string   `yaml:"db_path"`
	Extensions  []string `yaml:"extensions"`
	Exclude     []string `yaml:"exclude"`
	ScanAll     bool     `yaml:"scan_all"`
	Parallelism int      `yaml:"parallelism"`
}

// RulesConfig holds configuration for the rule engine and violation
// reporting
type RulesConfig struct {
	FrameworkFile string   `yaml:"framework_file"`
	ScriptsDir    string   `yaml:"scripts_dir"`
	Disabled      []string `yaml:"disabled"`
	IgnorePaths   []string `yaml:"ignore_paths"`
	// Reporting thresholds. Violations whose value is at or below them are
	// suppressed; analyzer floors are unaffected.
	ComplexityThreshold     int `yaml:"complexity_threshold"`
	FunctionLengthThreshold int `yaml:"function_length_threshold"`
}

// WatchConfig holds configuration for the file watcher
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// ErrConfigNotFound is returned when no config directory can be found
var ErrConfigNotFound = errors.New("config directory not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .reviewgate/config.yaml, searching from workDir
// up the directory tree. If none is found, returns defaults rooted at
// workDir.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		cfg := DefaultConfig()
		cfg.Root, _ = filepath.Abs(workDir)
		return cfg, nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path. The project root is the
// parent of the directory containing the file. Merges loaded config with
// defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	root := filepath.Dir(filepath.Dir(absPath))

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.Root = root
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	merged.Root = root

	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .reviewgate directory by walking up from
// startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if cfg.Index.DBPath == "" {
		return fmt.Errorf("%w: index.db_path must not be empty", ErrInvalidConfig)
	}
	if cfg.Index.Parallelism < 0 {
		return fmt.Errorf("%w: index.parallelism must be non-negative, got %d",
			ErrInvalidConfig, cfg.Index.Parallelism)
	}
	if cfg.Rules.ComplexityThreshold < 0 {
		return fmt.Errorf("%w: rules.complexity_threshold must be non-negative, got %d",
			ErrInvalidConfig, cfg.Rules.ComplexityThreshold)
	}
	if cfg.Rules.FunctionLengthThreshold < 0 {
		return fmt.Errorf("%w: rules.function_length_threshold must be non-negative, got %d",
			ErrInvalidConfig, cfg.Rules.FunctionLengthThreshold)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must be non-negative, got %s",
			ErrInvalidConfig, cfg.Watch.Debounce)
	}
	return nil
}

// Resolve returns p unchanged when absolute or empty, otherwise joined to
// the project root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// DBPath returns the absolute index database path.
func (c *Config) DBPath() string {
	return c.Resolve(c.Index.DBPath)
}

// SaveDefault writes the default configuration to .reviewgate/config.yaml in
// workDir, creating the directory if needed.
func SaveDefault(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	configDir := filepath.Join(absDir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	data = append([]byte("# reviewgate configuration\n\n"), data...)

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}
