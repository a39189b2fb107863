package service

import (
	"strings"
	"sync"

	"github.com/ludo-technologies/qarun/domain"
)

// ToolClassifier maps tool names to semantic tool types
type ToolClassifier interface {
	ToolType(name string) domain.ToolType
	Describe(name string) string
}

// knownToolTypes is the static classification table
var knownToolTypes = map[string]domain.ToolType{
	// linters
	"eslint":        domain.ToolTypeLinter,
	"tslint":        domain.ToolTypeLinter,
	"stylelint":     domain.ToolTypeLinter,
	"ruff":          domain.ToolTypeLinter,
	"flake8":        domain.ToolTypeLinter,
	"pylint":        domain.ToolTypeLinter,
	"mypy":          domain.ToolTypeLinter,
	"shellcheck":    domain.ToolTypeLinter,
	"hadolint":      domain.ToolTypeLinter,
	"yamllint":      domain.ToolTypeLinter,
	"markdownlint":  domain.ToolTypeLinter,
	"golangci-lint": domain.ToolTypeLinter,

	// formatters
	"prettier":     domain.ToolTypeFormatter,
	"black":        domain.ToolTypeFormatter,
	"isort":        domain.ToolTypeFormatter,
	"gofmt":        domain.ToolTypeFormatter,
	"autopep8":     domain.ToolTypeFormatter,
	"yapf":         domain.ToolTypeFormatter,
	"rustfmt":      domain.ToolTypeFormatter,
	"clang-format": domain.ToolTypeFormatter,

	// security scanners
	"snyk":      domain.ToolTypeSecurityScanner,
	"semgrep":   domain.ToolTypeSecurityScanner,
	"bandit":    domain.ToolTypeSecurityScanner,
	"trivy":     domain.ToolTypeSecurityScanner,
	"gitleaks":  domain.ToolTypeSecurityScanner,
	"gosec":     domain.ToolTypeSecurityScanner,
	"safety":    domain.ToolTypeSecurityScanner,
	"npm-audit": domain.ToolTypeSecurityScanner,

	// test runners
	"jest":       domain.ToolTypeTestRunner,
	"vitest":     domain.ToolTypeTestRunner,
	"mocha":      domain.ToolTypeTestRunner,
	"pytest":     domain.ToolTypeTestRunner,
	"playwright": domain.ToolTypeTestRunner,
	"cypress":    domain.ToolTypeTestRunner,
	"karma":      domain.ToolTypeTestRunner,

	// build family
	"build":   domain.ToolTypeBuildTool,
	"make":    domain.ToolTypeBuildTool,
	"gradle":  domain.ToolTypeBuildTool,
	"maven":   domain.ToolTypeBuildTool,
	"npm":     domain.ToolTypePackageManager,
	"yarn":    domain.ToolTypePackageManager,
	"pnpm":    domain.ToolTypePackageManager,
	"pip":     domain.ToolTypePackageManager,
	"poetry":  domain.ToolTypePackageManager,
	"tsc":     domain.ToolTypeCompiler,
	"babel":   domain.ToolTypeCompiler,
	"swc":     domain.ToolTypeCompiler,
	"vite":    domain.ToolTypeBundler,
	"webpack": domain.ToolTypeBundler,
	"rollup":  domain.ToolTypeBundler,
	"esbuild": domain.ToolTypeBundler,
	"parcel":  domain.ToolTypeBundler,

	// data
	"dbt":                domain.ToolTypeDataValidator,
	"great-expectations": domain.ToolTypeDataValidator,
	"pandera":            domain.ToolTypeDataValidator,
	"ajv":                domain.ToolTypeDataValidator,
	"jsonschema":         domain.ToolTypeDataValidator,
}

// toolTypeHeuristics are substring rules applied in order on a table miss
var toolTypeHeuristics = []struct {
	substrings []string
	toolType   domain.ToolType
}{
	{[]string{"lint", "check"}, domain.ToolTypeLinter},
	{[]string{"fmt", "format", "pretty"}, domain.ToolTypeFormatter},
	{[]string{"audit", "scan", "sec", "vuln", "secret"}, domain.ToolTypeSecurityScanner},
	{[]string{"test", "spec"}, domain.ToolTypeTestRunner},
	{[]string{"schema", "valid", "data"}, domain.ToolTypeDataValidator},
	{[]string{"bundle", "pack"}, domain.ToolTypeBundler},
	{[]string{"compile", "tsc"}, domain.ToolTypeCompiler},
	{[]string{"build", "make"}, domain.ToolTypeBuildTool},
	{[]string{"install", "pkg"}, domain.ToolTypePackageManager},
}

// toolDescriptions override the type-derived phrase for common tools
var toolDescriptions = map[string]string{
	"yarn":     "dependency installer",
	"npm":      "dependency installer",
	"pnpm":     "dependency installer",
	"tsc":      "TypeScript compiler",
	"vite":     "build tool",
	"eslint":   "code linter",
	"prettier": "code formatter",
}

var typeDescriptions = map[domain.ToolType]string{
	domain.ToolTypeLinter:          "code linter",
	domain.ToolTypeFormatter:       "code formatter",
	domain.ToolTypeSecurityScanner: "security scanner",
	domain.ToolTypeTestRunner:      "test runner",
	domain.ToolTypeBuildTool:       "build tool",
	domain.ToolTypePackageManager:  "dependency installer",
	domain.ToolTypeCompiler:        "compiler",
	domain.ToolTypeBundler:         "bundler",
	domain.ToolTypeDataValidator:   "data validator",
}

// ToolClassifierImpl classifies tools from a static table, then by name heuristics.
// Results are memoized and safe for concurrent use.
type ToolClassifierImpl struct {
	cache sync.Map // string -> domain.ToolType
}

// NewToolClassifier creates a new classifier
func NewToolClassifier() *ToolClassifierImpl {
	return &ToolClassifierImpl{}
}

// ToolType returns the semantic type of a tool. It never fails; unrecognized
// names classify as domain.ToolTypeUnknown.
func (c *ToolClassifierImpl) ToolType(name string) domain.ToolType {
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := c.cache.Load(key); ok {
		return cached.(domain.ToolType)
	}

	toolType := classifyTool(key)
	c.cache.Store(key, toolType)
	return toolType
}

func classifyTool(name string) domain.ToolType {
	if name == "" {
		return domain.ToolTypeUnknown
	}
	if t, ok := knownToolTypes[name]; ok {
		return t
	}
	for _, h := range toolTypeHeuristics {
		for _, s := range h.substrings {
			if strings.Contains(name, s) {
				return h.toolType
			}
		}
	}
	return domain.ToolTypeUnknown
}

// Describe returns a human phrase for the tool, e.g. "dependency installer"
func (c *ToolClassifierImpl) Describe(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if d, ok := toolDescriptions[key]; ok {
		return d
	}
	if d, ok := typeDescriptions[c.ToolType(key)]; ok {
		return d
	}
	return "tool"
}

// DimensionForToolType maps a tool type to the dimension it checks.
// The second result is false for unknown types.
func DimensionForToolType(t domain.ToolType) (domain.Dimension, bool) {
	switch t {
	case domain.ToolTypeLinter:
		return domain.DimensionLint, true
	case domain.ToolTypeFormatter:
		return domain.DimensionFormat, true
	case domain.ToolTypeSecurityScanner:
		return domain.DimensionSecurity, true
	case domain.ToolTypeTestRunner:
		return domain.DimensionTest, true
	case domain.ToolTypeDataValidator:
		return domain.DimensionData, true
	case domain.ToolTypeBuildTool, domain.ToolTypePackageManager,
		domain.ToolTypeCompiler, domain.ToolTypeBundler:
		return domain.DimensionBuild, true
	}
	return "", false
}
