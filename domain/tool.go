package domain

import (
	"fmt"
	"time"
)

// Dimension represents a quality category used to group and order tool execution
type Dimension string

const (
	DimensionFormat   Dimension = "format"
	DimensionLint     Dimension = "lint"
	DimensionTest     Dimension = "test"
	DimensionSecurity Dimension = "security"
	DimensionData     Dimension = "data"
	DimensionBuild    Dimension = "build"
)

// DimensionOrder is the fixed execution order of dimensions.
// A later dimension never starts before the earlier one has settled.
var DimensionOrder = []Dimension{
	DimensionFormat,
	DimensionLint,
	DimensionTest,
	DimensionSecurity,
	DimensionData,
	DimensionBuild,
}

// IsValid reports whether d is one of the known dimensions
func (d Dimension) IsValid() bool {
	return d.Priority() >= 0
}

// Priority returns the position of d in DimensionOrder, or -1 if unknown
func (d Dimension) Priority() int {
	for i, dim := range DimensionOrder {
		if dim == d {
			return i
		}
	}
	return -1
}

// ParseDimension converts a string into a Dimension
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.IsValid() {
		return "", NewInvalidInputError(fmt.Sprintf("unknown dimension: %q", s), nil)
	}
	return d, nil
}

// ExecutionMode controls how aggressively groups are parallelized
type ExecutionMode string

const (
	// ModeFast runs every dimension group in parallel
	ModeFast ExecutionMode = "fast"

	// ModeStandard parallelizes only read-mostly dimensions (format, lint)
	ModeStandard ExecutionMode = "standard"

	// ModeThorough behaves like standard; wrappers may use it to enable deeper checks
	ModeThorough ExecutionMode = "thorough"
)

// IsValid reports whether m is a known execution mode
func (m ExecutionMode) IsValid() bool {
	switch m {
	case ModeFast, ModeStandard, ModeThorough:
		return true
	}
	return false
}

// ToolType is the semantic classification of a tool
type ToolType string

const (
	ToolTypeLinter          ToolType = "linter"
	ToolTypeFormatter       ToolType = "formatter"
	ToolTypeSecurityScanner ToolType = "security-scanner"
	ToolTypeTestRunner      ToolType = "test-runner"
	ToolTypeBuildTool       ToolType = "build-tool"
	ToolTypePackageManager  ToolType = "package-manager"
	ToolTypeCompiler        ToolType = "compiler"
	ToolTypeBundler         ToolType = "bundler"
	ToolTypeDataValidator   ToolType = "data-validator"
	ToolTypeUnknown         ToolType = "unknown"
)

// ToolConfig holds per-tool options
type ToolConfig struct {
	// Timeout overrides the controller default when > 0
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Files is an explicit file list; takes precedence over Scope
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`

	// Scope names a file-discovery scope (frontend, backend, docs, config, tooling, all)
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`

	// DimensionMode marks a tool that represents a whole dimension and
	// subsumes individual tools of that dimension
	DimensionMode bool `json:"dimensionMode,omitempty" yaml:"dimension_mode,omitempty"`

	// Critical escalates a failed wrapper acquisition for this tool
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty"`

	// Options are passed through to the wrapper untouched
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// ToolSpec is a planned unit of work. It is immutable after planning.
type ToolSpec struct {
	Name      string     `json:"name" yaml:"name"`
	Dimension Dimension  `json:"dimension" yaml:"dimension"`
	Config    ToolConfig `json:"config" yaml:"config"`
}

// String returns the tool name
func (t ToolSpec) String() string {
	return t.Name
}

// ExecutionPlan is the input to planning
type ExecutionPlan struct {
	Tools []ToolSpec    `json:"tools" yaml:"tools"`
	Mode  ExecutionMode `json:"mode" yaml:"mode"`
}

// ExecutionGroup is one dimension batch produced by planning
type ExecutionGroup struct {
	Dimension Dimension  `json:"dimension" yaml:"dimension"`
	Tools     []ToolSpec `json:"tools" yaml:"tools"`
	Parallel  bool       `json:"parallel" yaml:"parallel"`
	Priority  int        `json:"priority" yaml:"priority"`
}
