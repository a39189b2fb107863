package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"github.com/spf13/viper"
)

// Default execution settings
const (
	// DefaultMaxParallelWrappers bounds how many tools run at once within a batch
	DefaultMaxParallelWrappers = 3

	// DefaultToolTimeout applies to tools without an explicit timeout
	DefaultToolTimeout = 5 * time.Minute

	// DefaultSlowRunThreshold is the run duration above which a faster mode is suggested
	DefaultSlowRunThreshold = 60 * time.Second
)

// Config represents the main configuration structure
type Config struct {
	// Execution holds concurrency, timeout and mode settings
	Execution ExecutionConfig `json:"execution" mapstructure:"execution" yaml:"execution"`

	// Tools is the list of tools to plan when no plan file is given
	Tools []ToolConfig `json:"tools" mapstructure:"tools" yaml:"tools"`

	// Discovery holds file discovery settings
	Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery" yaml:"discovery"`

	// Scopes overrides or extends the built-in scope table
	Scopes map[string]ScopeConfig `json:"scopes,omitempty" mapstructure:"scopes" yaml:"scopes,omitempty"`

	// Wrappers is wrapper-level configuration handed to wrapper constructors
	// (for example snyk_fail_on or semgrep_config)
	Wrappers map[string]any `json:"wrappers,omitempty" mapstructure:"wrappers" yaml:"wrappers,omitempty"`

	// Output holds report settings
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Logging holds logger settings
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`
}

// ExecutionConfig holds settings for the execution controller
type ExecutionConfig struct {
	// Mode is one of fast, standard, thorough
	Mode string `json:"mode" mapstructure:"mode" yaml:"mode"`

	// MaxParallelWrappers is the batch size for parallel groups
	MaxParallelWrappers int `json:"max_parallel_wrappers" mapstructure:"max_parallel_wrappers" yaml:"max_parallel_wrappers"`

	// DefaultTimeout applies to tools without their own timeout
	DefaultTimeout time.Duration `json:"default_timeout" mapstructure:"default_timeout" yaml:"default_timeout"`

	// CoveredTools have no standalone wrapper; they are reported as covered elsewhere
	CoveredTools []string `json:"covered_tools" mapstructure:"covered_tools" yaml:"covered_tools"`
}

// ToolConfig is the configuration form of a planned tool
type ToolConfig struct {
	Name          string         `json:"name" mapstructure:"name" yaml:"name"`
	Dimension     string         `json:"dimension" mapstructure:"dimension" yaml:"dimension"`
	Timeout       time.Duration  `json:"timeout,omitempty" mapstructure:"timeout" yaml:"timeout,omitempty"`
	Files         []string       `json:"files,omitempty" mapstructure:"files" yaml:"files,omitempty"`
	Scope         string         `json:"scope,omitempty" mapstructure:"scope" yaml:"scope,omitempty"`
	DimensionMode bool           `json:"dimension_mode,omitempty" mapstructure:"dimension_mode" yaml:"dimension_mode,omitempty"`
	Critical      bool           `json:"critical,omitempty" mapstructure:"critical" yaml:"critical,omitempty"`
	Options       map[string]any `json:"options,omitempty" mapstructure:"options" yaml:"options,omitempty"`
}

// DiscoveryConfig holds file discovery settings
type DiscoveryConfig struct {
	// ExcludeDirs are directory names never descended into
	ExcludeDirs []string `json:"exclude_dirs" mapstructure:"exclude_dirs" yaml:"exclude_dirs"`

	// RespectGitignore adds the project's .gitignore rules to the deny-list
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
}

// OutputConfig holds configuration for report output
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ReportPath is where the JSON CI report is written (empty = not written)
	ReportPath string `json:"report_path" mapstructure:"report_path" yaml:"report_path"`

	// SlowRunThreshold triggers the faster-mode recommendation
	SlowRunThreshold time.Duration `json:"slow_run_threshold" mapstructure:"slow_run_threshold" yaml:"slow_run_threshold"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level" yaml:"level"`

	// Format is console or json
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{
			Mode:                string(domain.ModeStandard),
			MaxParallelWrappers: DefaultMaxParallelWrappers,
			DefaultTimeout:      DefaultToolTimeout,
			CoveredTools:        []string{},
		},
		Tools: []ToolConfig{},
		Discovery: DiscoveryConfig{
			ExcludeDirs:      DefaultExcludeDirs(),
			RespectGitignore: true,
		},
		Scopes:   map[string]ScopeConfig{},
		Wrappers: map[string]any{},
		Output: OutputConfig{
			Format:           "text",
			SlowRunThreshold: DefaultSlowRunThreshold,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration, discovering a config file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file.
// An empty path yields the defaults with QARUN_* environment overrides applied.
func loadConfigFromFile(configPath string) (*Config, error) {
	// New viper instance per load to avoid shared global state
	v := viper.New()
	config := DefaultConfig()

	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers scalar defaults so environment variables can override them
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("execution.mode", c.Execution.Mode)
	v.SetDefault("execution.max_parallel_wrappers", c.Execution.MaxParallelWrappers)
	v.SetDefault("execution.default_timeout", c.Execution.DefaultTimeout)
	v.SetDefault("discovery.respect_gitignore", c.Discovery.RespectGitignore)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.report_path", c.Output.ReportPath)
	v.SetDefault("output.slow_run_threshold", c.Output.SlowRunThreshold)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
}

// ConfigCandidates are the config file names searched in each directory
var ConfigCandidates = []string{
	"qarun.yaml",
	"qarun.yml",
	".qarun.yaml",
	".qarun.yml",
	".qarun.toml",
	"qarun.json",
	".qarun.json",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common locations
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, ConfigCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", ConfigCandidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), ConfigCandidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		if config := searchConfigInDirectory(filepath.Join(home, ".config", constants.ToolName), ConfigCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !domain.ExecutionMode(c.Execution.Mode).IsValid() {
		return fmt.Errorf("invalid execution.mode '%s', must be one of: fast, standard, thorough", c.Execution.Mode)
	}

	if c.Execution.MaxParallelWrappers < 1 {
		return fmt.Errorf("execution.max_parallel_wrappers must be >= 1, got %d", c.Execution.MaxParallelWrappers)
	}

	if c.Execution.DefaultTimeout <= 0 {
		return fmt.Errorf("execution.default_timeout must be > 0, got %s", c.Execution.DefaultTimeout)
	}

	scopes := c.EffectiveScopes()
	for name, scope := range c.Scopes {
		if _, err := regexp.Compile(scope.Pattern); err != nil {
			return fmt.Errorf("scopes.%s.pattern is not a valid regular expression: %w", name, err)
		}
		if scope.MaxDepth < 0 {
			return fmt.Errorf("scopes.%s.max_depth must be >= 0, got %d", name, scope.MaxDepth)
		}
	}

	for i, tool := range c.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tools[%d].name is required", i)
		}
		if !domain.Dimension(tool.Dimension).IsValid() {
			return fmt.Errorf("tools[%d] (%s): invalid dimension '%s', must be one of: format, lint, test, security, data, build",
				i, tool.Name, tool.Dimension)
		}
		if tool.Timeout < 0 {
			return fmt.Errorf("tools[%d] (%s): timeout must be >= 0, got %s", i, tool.Name, tool.Timeout)
		}
		if tool.Scope != "" {
			if _, ok := scopes[tool.Scope]; !ok {
				return fmt.Errorf("tools[%d] (%s): unknown scope '%s'", i, tool.Name, tool.Scope)
			}
		}
	}

	validFormats := map[string]bool{
		constants.OutputFormatText: true,
		constants.OutputFormatJSON: true,
		constants.OutputFormatYAML: true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	if c.Output.SlowRunThreshold < 0 {
		return fmt.Errorf("output.slow_run_threshold must be >= 0, got %s", c.Output.SlowRunThreshold)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format '%s', must be one of: console, json", c.Logging.Format)
	}

	return nil
}

// EffectiveScopes returns the built-in scope table with configured overrides applied
func (c *Config) EffectiveScopes() map[string]ScopeConfig {
	scopes := DefaultScopes()
	for name, scope := range c.Scopes {
		scopes[name] = scope
	}
	return scopes
}
