package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// findConfigFile finds the config file to use.
// Priority: explicit path > lakeshift.yaml > lakeshift.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("lakeshift.yaml"); err == nil {
		return "lakeshift.yaml"
	}
	if _, err := os.Stat("lakeshift.yml"); err == nil {
		return "lakeshift.yml"
	}
	return ""
}

// configExistsIn checks if a lakeshift config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"lakeshift.yaml", "lakeshift.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a lakeshift config
// file. Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Directory of an explicitly provided --data file
//  2. Search upward from CWD for lakeshift.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	// 1. Infer from --data: an inventory at testdata/feeds.csv anchors the
	// project at testdata/ when a config file sits next to it.
	if flags != nil {
		if dataPath, _ := flags.GetString("data"); dataPath != "" && flags.Changed("data") {
			if abs, err := filepath.Abs(dataPath); err == nil {
				parent := filepath.Dir(abs)
				if configExistsIn(parent) {
					return parent
				}
			}
		}
	}

	// 2. Search upward from CWD for lakeshift.yaml
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	// 3. Default to CWD
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Infer project root from flags before loading config
	projectRoot := inferProjectRoot(flags)

	// Track the data path when explicitly flagged (already relative to CWD).
	// It is converted to absolute before the normal resolution step, to
	// prevent double-resolution when project root was inferred from it.
	var flagDataPath string
	if flags != nil && flags.Changed("data") {
		if v, _ := flags.GetString("data"); v != "" {
			flagDataPath, _ = filepath.Abs(v)
		}
	}

	// If an explicit config file is provided, use its directory as project
	// root (unless a more specific hint was given via flags)
	if cfgFile != "" && projectRoot == inferProjectRoot(nil) {
		if absPath, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(absPath)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_path":         DefaultDataPath,
		"fallback_paths":    []string{DefaultFallbackPath},
		"virtualise":        []string{},
		"placeholder_label": DefaultPlaceholder,
		"positions":         true,
		"log_buffer":        DefaultLogBuffer,
		"verbose":           false,
		"output":            DefaultOutput,
		"serve.port":        DefaultPort,
		"serve.auto_open":   true,
		"serve.watch":       true,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	// Search in project root if no explicit config file provided
	if cfgFile == "" {
		for _, name := range []string{"lakeshift.yaml", "lakeshift.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (LAKESHIFT_ prefix)
	// Transform: LAKESHIFT_DATA_PATH -> data_path
	if err := k.Load(env.Provider("LAKESHIFT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LAKESHIFT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// EXPLICIT MAPPING: the CLI uses --data for brevity, the
			// config struct uses data_path for clarity
			if key == "data" {
				return "data_path", posflag.FlagVal(flags, f)
			}
			// Same bridge for --placeholder vs placeholder_label
			if key == "placeholder" {
				return "placeholder_label", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Set project root and resolve relative paths.
	// A flagged data path was already made absolute relative to CWD; paths
	// from the config file or defaults resolve relative to project root.
	cfg.ProjectRoot = projectRoot
	if flagDataPath != "" {
		cfg.DataPath = flagDataPath
	} else {
		cfg.DataPath = resolvePathRelativeTo(cfg.DataPath, projectRoot)
	}
	for i, p := range cfg.FallbackPaths {
		cfg.FallbackPaths[i] = resolvePathRelativeTo(p, projectRoot)
	}

	if cfg.LogBuffer <= 0 {
		cfg.LogBuffer = DefaultLogBuffer
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI's structured logger: text on stderr, debug level
// when verbose.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
