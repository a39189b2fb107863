package domain

import "time"

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// FileProblem is the per-file violation tally
type FileProblem struct {
	File     string `json:"file"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
}

// ReportSummary provides aggregate statistics for a run
type ReportSummary struct {
	// Total counts files/checks actually processed, not tools
	Total int `json:"total"`

	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Warnings      int `json:"warnings"`
	Errors        int `json:"errors"`
	Informational int `json:"informational"`

	ExecutionTime     time.Duration `json:"-"`
	ExecutionTimeMs   int64         `json:"executionTime"`
	FilesWithProblems []FileProblem `json:"filesWithProblems"`
}

// AggregatedReport is the internal, non-stable aggregation of a run
type AggregatedReport struct {
	Summary         ReportSummary     `json:"summary"`
	Details         []ExecutionResult `json:"details"`
	Metrics         map[string]any    `json:"metrics"`
	Recommendations []string          `json:"recommendations"`
}

// RunContext describes where and how a run happened
type RunContext struct {
	RunID       string        `json:"runId"`
	Branch      string        `json:"branch"`
	Commit      string        `json:"commit"`
	Environment string        `json:"environment"`
	Mode        ExecutionMode `json:"mode"`
	Scope       string        `json:"scope,omitempty"`
	Artifacts   []string      `json:"-"`
	StartedAt   time.Time     `json:"-"`
	Duration    time.Duration `json:"-"`
}

// CIReport is the stable JSON contract consumed by CI pipelines
type CIReport struct {
	Metadata        CIMetadata              `json:"metadata"`
	Summary         CISummary               `json:"summary"`
	Dimensions      map[Dimension]*CIGroup  `json:"dimensions"`
	Tools           map[string]*CIToolEntry `json:"tools"`
	Failures        []CIIssue               `json:"failures"`
	Warnings        []CIIssue               `json:"warnings"`
	Recommendations []string                `json:"recommendations"`
	Artifacts       []string                `json:"artifacts"`
}

// CIMetadata holds run metadata
type CIMetadata struct {
	RunID       string        `json:"runId"`
	Timestamp   string        `json:"timestamp"`
	Branch      string        `json:"branch"`
	Commit      string        `json:"commit"`
	Environment string        `json:"environment"`
	Mode        ExecutionMode `json:"mode"`
	Scope       string        `json:"scope,omitempty"`
	Version     string        `json:"version"`
}

// CISummary extends the aggregated summary with derived CI fields
type CISummary struct {
	ReportSummary
	CompletionRate float64 `json:"completionRate"`
	Status         string  `json:"status"`
}

// CIGroup aggregates results for one dimension
type CIGroup struct {
	Passed        int      `json:"passed"`
	Failed        int      `json:"failed"`
	Warnings      int      `json:"warnings"`
	Informational int      `json:"informational"`
	Tools         []string `json:"tools"`
}

// CIToolEntry is the per-tool view of a result
type CIToolEntry struct {
	Dimension       Dimension `json:"dimension"`
	Status          Status    `json:"status"`
	Outcome         Outcome   `json:"outcome"`
	ExecutionTimeMs int64     `json:"executionTime"`
	Violations      int       `json:"violations"`
	Error           string    `json:"error,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// CIIssue is a failure or warning line item
type CIIssue struct {
	Tool    string `json:"tool"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Overall CI status strings
const (
	RunStatusFailed  = "failed"
	RunStatusWarning = "warning"
	RunStatusPassed  = "passed"
	RunStatusUnknown = "unknown"
)
