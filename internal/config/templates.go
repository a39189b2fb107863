package config

import (
	"strconv"
	"strings"
)

// ProjectType represents the kind of project being checked
type ProjectType string

const (
	ProjectTypeGeneric   ProjectType = "generic"
	ProjectTypeNode      ProjectType = "node"
	ProjectTypePython    ProjectType = "python"
	ProjectTypeFullstack ProjectType = "fullstack"
)

// Strictness represents how aggressively checks are run
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ProjectPreset holds the tool list for a project type
type ProjectPreset struct {
	Tools []ToolConfig
}

// StrictnessPreset holds execution values for a strictness level
type StrictnessPreset struct {
	Mode                string
	MaxParallelWrappers int
	TimeoutMinutes      int
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	nodeTools := []ToolConfig{
		{Name: "prettier", Dimension: "format"},
		{Name: "eslint", Dimension: "lint"},
		{Name: "jest", Dimension: "test"},
		{Name: "semgrep", Dimension: "security"},
		{Name: "build", Dimension: "build", DimensionMode: true},
	}
	pythonTools := []ToolConfig{
		{Name: "black", Dimension: "format"},
		{Name: "ruff", Dimension: "lint"},
		{Name: "mypy", Dimension: "lint"},
		{Name: "pytest", Dimension: "test"},
		{Name: "bandit", Dimension: "security"},
	}

	return map[ProjectType]ProjectPreset{
		ProjectTypeGeneric: {
			Tools: []ToolConfig{
				{Name: "prettier", Dimension: "format"},
				{Name: "eslint", Dimension: "lint"},
				{Name: "semgrep", Dimension: "security"},
			},
		},
		ProjectTypeNode:   {Tools: nodeTools},
		ProjectTypePython: {Tools: pythonTools},
		ProjectTypeFullstack: {
			Tools: []ToolConfig{
				{Name: "prettier", Dimension: "format", Scope: ScopeFrontend},
				{Name: "black", Dimension: "format", Scope: ScopeBackend},
				{Name: "eslint", Dimension: "lint", Scope: ScopeFrontend},
				{Name: "ruff", Dimension: "lint", Scope: ScopeBackend},
				{Name: "jest", Dimension: "test"},
				{Name: "pytest", Dimension: "test"},
				{Name: "semgrep", Dimension: "security"},
				{Name: "build", Dimension: "build", DimensionMode: true},
			},
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			Mode:                "fast",
			MaxParallelWrappers: 4,
			TimeoutMinutes:      10,
		},
		StrictnessStandard: {
			Mode:                "standard",
			MaxParallelWrappers: DefaultMaxParallelWrappers,
			TimeoutMinutes:      5,
		},
		StrictnessStrict: {
			Mode:                "thorough",
			MaxParallelWrappers: 2,
			TimeoutMinutes:      5,
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(projectType ProjectType, strictness Strictness) string {
	preset := GetProjectPresets()[projectType]
	strict := GetStrictnessPresets()[strictness]

	return `# qarun configuration
#
# Exit codes: 0 = passed (warnings allowed), 1 = at least one tool failed,
# 2 = setup error (bad config, unreadable plan).

# ============================================================================
# EXECUTION
# ============================================================================
execution:
  # fast: every dimension group runs in parallel
  # standard: only format and lint groups run in parallel
  # thorough: like standard, wrappers may enable deeper checks
  mode: ` + strict.Mode + `

  # Maximum number of tools running at once within a group
  max_parallel_wrappers: ` + strconv.Itoa(strict.MaxParallelWrappers) + `

  # Timeout for tools without their own timeout
  default_timeout: ` + strconv.Itoa(strict.TimeoutMinutes) + `m

  # Tools without a standalone wrapper, reported as covered by the build dimension
  covered_tools: []

# ============================================================================
# TOOLS
# ============================================================================
# Dimensions run in this order: format, lint, test, security, data, build.
# Per tool: timeout, files, scope (frontend, backend, docs, config, tooling, all),
# dimension_mode, critical, options.
tools:
` + formatToolsYAML(preset.Tools) + `
# ============================================================================
# FILE DISCOVERY
# ============================================================================
discovery:
  # Directory names never traversed
  exclude_dirs:
` + formatYAMLList(DefaultExcludeDirs(), "    ") + `
  # Also honour the project's .gitignore
  respect_gitignore: true

# ============================================================================
# WRAPPERS
# ============================================================================
wrappers:
  # Lowest snyk severity that fails the run: low, medium, high, critical
  snyk_fail_on: high
  # Rule set passed to semgrep --config
  semgrep_config: auto

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # text, json or yaml
  format: text

  # Write the JSON CI report here (empty = do not write)
  report_path: ""

  # Suggest a faster mode when a run takes longer than this
  slow_run_threshold: 60s

logging:
  # debug, info, warn, error
  level: warn
  # console or json
  format: console
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# qarun configuration (minimal)
execution:
  mode: standard
  max_parallel_wrappers: 3

tools:
  - name: prettier
    dimension: format
  - name: eslint
    dimension: lint
`
}

// formatToolsYAML renders tool entries as a YAML sequence
func formatToolsYAML(tools []ToolConfig) string {
	var sb strings.Builder
	for _, t := range tools {
		sb.WriteString("  - name: " + t.Name + "\n")
		sb.WriteString("    dimension: " + t.Dimension + "\n")
		if t.Scope != "" {
			sb.WriteString("    scope: " + t.Scope + "\n")
		}
		if t.DimensionMode {
			sb.WriteString("    dimension_mode: true\n")
		}
	}
	return sb.String()
}

// formatYAMLList formats a string slice as an indented YAML list
func formatYAMLList(items []string, indent string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(indent + "- " + strconv.Quote(item) + "\n")
	}
	return sb.String()
}
