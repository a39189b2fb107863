package domain

import (
	"fmt"
	"time"
)

// Severity is the severity of a single violation
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Outcome is the verdict of one tool execution.
// Informational results are neither passed nor failed: the check was
// covered elsewhere (for example by a build-dimension tool).
type Outcome int

const (
	OutcomeInformational Outcome = iota
	OutcomePassed
	OutcomeFailed
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return "informational"
	}
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "passed":
		*o = OutcomePassed
	case "failed":
		*o = OutcomeFailed
	case "informational":
		*o = OutcomeInformational
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Status is the tri-state classification of a result
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusWarning Status = "WARNING"
	StatusFailed  Status = "FAILED"
	StatusInfo    Status = "INFO"
)

// Violation is a single finding reported by a wrapper
type Violation struct {
	File     string   `json:"file,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
	Line     int      `json:"line,omitempty"`
	Rule     string   `json:"rule,omitempty"`
}

// ResultMetadata carries processing statistics from a wrapper
type ResultMetadata struct {
	FilesProcessed int `json:"filesProcessed"`
}

// WrapperResult is what a wrapper returns for one invocation
type WrapperResult struct {
	// Success is the wrapper's own verdict; it must be false when
	// error-severity violations were found
	Success bool `json:"success"`

	Violations []Violation `json:"violations,omitempty"`

	// Warnings is a legacy channel disjoint from Violations
	Warnings []Violation `json:"warnings,omitempty"`

	Metrics  map[string]any  `json:"metrics,omitempty"`
	Metadata *ResultMetadata `json:"metadata,omitempty"`

	// Level lets a wrapper report an explicit WARNING level
	Level Status `json:"level,omitempty"`

	EmptyTestSuite bool   `json:"emptyTestSuite,omitempty"`
	Output         string `json:"output,omitempty"`
}

// CountBySeverity counts violations of the given severity in Violations
func (r *WrapperResult) CountBySeverity(sev Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, v := range r.Violations {
		if v.Severity == sev {
			n++
		}
	}
	return n
}

// HasViolations reports whether the result carries any findings
func (r *WrapperResult) HasViolations() bool {
	return r != nil && (len(r.Violations) > 0 || len(r.Warnings) > 0)
}

// ExecutionResult is the normalized outcome of one tool invocation
type ExecutionResult struct {
	Tool          string         `json:"tool"`
	Dimension     Dimension      `json:"dimension,omitempty"`
	WrapperType   string         `json:"wrapperType,omitempty"`
	Outcome       Outcome        `json:"outcome"`
	Status        Status         `json:"status"`
	Result        *WrapperResult `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	Message       string         `json:"message,omitempty"`
	ExecutionTime time.Duration  `json:"-"`

	// ExecutionTimeMs mirrors ExecutionTime for JSON consumers
	ExecutionTimeMs int64 `json:"executionTime"`

	EmptyTestSuite bool `json:"emptyTestSuite,omitempty"`

	// Critical marks infrastructure failures (wrapper acquisition)
	Critical bool `json:"critical,omitempty"`

	// Skipped marks tools covered by an active dimension-mode tool
	Skipped bool `json:"skipped,omitempty"`
}

// Succeeded reports whether the result is a determinate pass
func (r ExecutionResult) Succeeded() bool {
	return r.Outcome == OutcomePassed
}

// Failed reports whether the result is a determinate failure
func (r ExecutionResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// IsEmptyTestSuite reports whether the tool found no tests, whether the
// flag was copied onto the result or only set by the wrapper
func (r ExecutionResult) IsEmptyTestSuite() bool {
	return r.EmptyTestSuite || (r.Result != nil && r.Result.EmptyTestSuite)
}

// ClassifyStatus derives the tri-state status from a wrapper verdict.
// Pass/fail comes only from the verdict; warnings only demote SUCCESS to WARNING.
func ClassifyStatus(success bool, r *WrapperResult) Status {
	if !success {
		return StatusFailed
	}
	if r == nil {
		return StatusSuccess
	}
	if r.Level == StatusWarning || r.EmptyTestSuite ||
		r.CountBySeverity(SeverityWarning) > 0 || len(r.Warnings) > 0 {
		return StatusWarning
	}
	return StatusSuccess
}
