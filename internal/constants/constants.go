package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "qarun"

	// ConfigFileName is the default config file name
	ConfigFileName = "qarun.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "QARUN"
)

// Built-in wrapper types
const (
	WrapperNative        = "native"
	WrapperDirectLinters = "direct-linters"
	WrapperJest          = "jest"
	WrapperPytest        = "pytest"
	WrapperSnyk          = "snyk"
	WrapperSemgrep       = "semgrep"
	WrapperBuild         = "build"
	WrapperData          = "data"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// DefaultReportDir is where artifacts are written when no path is configured
const DefaultReportDir = ".qarun/reports"
