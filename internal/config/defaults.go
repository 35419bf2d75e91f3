package config

import "time"

// DefaultConfig returns configuration with sensible defaults. These are used
// when no config file exists or when it leaves fields unset.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DBPath:     ConfigDirName + "/index.db",
			Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".go", ".py"},
			Exclude: []string{
				"**/testdata/**",
				"*.min.js",
			},
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Merge merges loaded config with defaults. Values from loaded config take
// precedence. Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Index: mergeIndexConfig(loaded.Index, defaults.Index),
		Rules: mergeRulesConfig(loaded.Rules, defaults.Rules),
		Watch: mergeWatchConfig(loaded.Watch, defaults.Watch),
		Root:  loaded.Root,
	}
}

func mergeIndexConfig(loaded, defaults IndexConfig) IndexConfig {
	result := loaded
	if result.DBPath == "" {
		result.DBPath = defaults.DBPath
	}
	if len(result.Extensions) == 0 {
		result.Extensions = defaults.Extensions
	}
	if len(result.Exclude) == 0 {
		result.Exclude = defaults.Exclude
	}
	if result.Parallelism == 0 {
		result.Parallelism = defaults.Parallelism
	}
	return result
}

func mergeRulesConfig(loaded, defaults RulesConfig) RulesConfig {
	result := loaded
	if result.FrameworkFile == "" {
		result.FrameworkFile = defaults.FrameworkFile
	}
	if result.ScriptsDir == "" {
		result.ScriptsDir = defaults.ScriptsDir
	}
	if len(result.Disabled) == 0 {
		result.Disabled = defaults.Disabled
	}
	if len(result.IgnorePaths) == 0 {
		result.IgnorePaths = defaults.IgnorePaths
	}
	if result.ComplexityThreshold == 0 {
		result.ComplexityThreshold = defaults.ComplexityThreshold
	}
	if result.FunctionLengthThreshold == 0 {
		result.FunctionLengthThreshold = defaults.FunctionLengthThreshold
	}
	return result
}

func mergeWatchConfig(loaded, defaults WatchConfig) WatchConfig {
	result := loaded
	if result.Debounce == 0 {
		result.Debounce = defaults.Debounce
	}
	return result
}
