package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/version"
)

func fixedAggregator(ts time.Time) *ResultAggregatorImpl {
	a := NewResultAggregator(0)
	a.now = func() time.Time { return ts }
	return a
}

func TestGenerateJSONReport_Metadata(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	a := NewResultAggregator(0)

	report := a.GenerateJSONReport(nil, &domain.RunContext{
		RunID:       "run-1",
		Branch:      "main",
		Commit:      "abc123",
		Environment: "ci",
		Mode:        domain.ModeFast,
		Scope:       "frontend",
		StartedAt:   started,
		Artifacts:   []string{"qa-report.json"},
	})

	assert.Equal(t, domain.CIMetadata{
		RunID:       "run-1",
		Timestamp:   "2026-03-01T11:30:00Z",
		Branch:      "main",
		Commit:      "abc123",
		Environment: "ci",
		Mode:        domain.ModeFast,
		Scope:       "frontend",
		Version:     version.GetVersion(),
	}, report.Metadata)
	assert.Equal(t, []string{"qa-report.json"}, report.Artifacts)
}

func TestGenerateJSONReport_GeneratesRunID(t *testing.T) {
	a := fixedAggregator(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	report := a.GenerateJSONReport(nil, nil)

	_, err := uuid.Parse(report.Metadata.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z", report.Metadata.Timestamp)
	assert.Equal(t, domain.RunStatusUnknown, report.Summary.Status)
	assert.Equal(t, float64(0), report.Summary.CompletionRate)
}

func TestGenerateJSONReport_Status(t *testing.T) {
	tests := []struct {
		name     string
		results  []domain.ExecutionResult
		expected string
	}{
		{
			name:     "all passed",
			results:  []domain.ExecutionResult{passed("prettier", domain.DimensionFormat, &domain.WrapperResult{Success: true})},
			expected: domain.RunStatusPassed,
		},
		{
			name: "warnings",
			results: []domain.ExecutionResult{passed("eslint", domain.DimensionLint, &domain.WrapperResult{
				Success: true, Violations: []domain.Violation{warn("a.ts")},
			})},
			expected: domain.RunStatusWarning,
		},
		{
			name: "empty test suite",
			results: []domain.ExecutionResult{passed("jest", domain.DimensionTest, &domain.WrapperResult{
				Success: true, EmptyTestSuite: true,
			})},
			expected: domain.RunStatusWarning,
		},
		{
			name: "failure wins",
			results: []domain.ExecutionResult{
				passed("eslint", domain.DimensionLint, &domain.WrapperResult{Success: true, Violations: []domain.Violation{warn("a.ts")}}),
				failed("jest", domain.DimensionTest, "boom", nil),
			},
			expected: domain.RunStatusFailed,
		},
		{
			name:     "only informational",
			results:  []domain.ExecutionResult{informational("tsc", domain.DimensionBuild)},
			expected: domain.RunStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewResultAggregator(0).GenerateJSONReport(tt.results, nil)
			assert.Equal(t, tt.expected, report.Summary.Status)
		})
	}
}

func TestGenerateJSONReport_CompletionRate(t *testing.T) {
	results := []domain.ExecutionResult{
		passed("eslint", domain.DimensionLint, &domain.WrapperResult{Success: true, Metadata: &domain.ResultMetadata{FilesProcessed: 4}}),
	}

	report := NewResultAggregator(0).GenerateJSONReport(results, nil)

	assert.Equal(t, 4, report.Summary.Total)
	assert.InDelta(t, 25.0, report.Summary.CompletionRate, 0.001)
}

func TestGenerateJSONReport_DimensionsAndTools(t *testing.T) {
	results := []domain.ExecutionResult{
		passed("prettier", domain.DimensionFormat, &domain.WrapperResult{Success: true}),
		passed("eslint", domain.DimensionLint, &domain.WrapperResult{Success: true, Violations: []domain.Violation{warn("a.ts")}}),
		failed("ruff", domain.DimensionLint, "", &domain.WrapperResult{Violations: []domain.Violation{errV("x.py")}}),
		informational("tsc", domain.DimensionBuild),
		passed("eslint", domain.DimensionFormat, &domain.WrapperResult{Success: true}),
	}

	report := NewResultAggregator(0).GenerateJSONReport(results, nil)

	require.Contains(t, report.Dimensions, domain.DimensionLint)
	lint := report.Dimensions[domain.DimensionLint]
	assert.Equal(t, 1, lint.Passed)
	assert.Equal(t, 1, lint.Failed)
	assert.Equal(t, 1, lint.Warnings)
	assert.Equal(t, []string{"eslint", "ruff"}, lint.Tools)
	assert.Equal(t, 1, report.Dimensions[domain.DimensionBuild].Informational)

	require.Len(t, report.Tools, 5)
	assert.Equal(t, domain.DimensionLint, report.Tools["eslint"].Dimension)
	assert.Equal(t, 1, report.Tools["eslint"].Violations)
	assert.Equal(t, domain.DimensionFormat, report.Tools["eslint@format"].Dimension)
	assert.Equal(t, domain.OutcomeInformational, report.Tools["tsc"].Outcome)
	assert.NotEmpty(t, report.Tools["tsc"].Message)
}

func TestGenerateJSONReport_FailuresAndWarnings(t *testing.T) {
	results := []domain.ExecutionResult{
		failed("jest", domain.DimensionTest, "connection refused", nil),
		failed("eslint", domain.DimensionLint, "", &domain.WrapperResult{Violations: []domain.Violation{
			{File: "a.ts", Line: 3, Severity: domain.SeverityError, Message: "Unexpected var", Rule: "no-var"},
			{File: "b.ts", Line: 7, Severity: domain.SeverityWarning, Message: "Unused import"},
		}}),
		failed("tsc", domain.DimensionBuild, "", nil),
		passed("pytest", domain.DimensionTest, &domain.WrapperResult{Success: true, EmptyTestSuite: true}),
		passed("ruff", domain.DimensionLint, &domain.WrapperResult{Success: true, Warnings: []domain.Violation{{File: "x.py", Message: "line too long"}}}),
	}

	report := NewResultAggregator(0).GenerateJSONReport(results, nil)

	assert.Equal(t, []domain.CIIssue{
		{Tool: "jest", Message: "connection refused"},
		{Tool: "eslint", File: "a.ts", Line: 3, Message: "Unexpected var (no-var)"},
		{Tool: "tsc", Message: "tsc failed"},
	}, report.Failures)
	assert.Equal(t, []domain.CIIssue{
		{Tool: "eslint", File: "b.ts", Line: 7, Message: "Unused import"},
		{Tool: "pytest", Message: "no tests found"},
		{Tool: "ruff", File: "x.py", Message: "line too long"},
	}, report.Warnings)
}

func TestGenerateJSONReport_StableJSONShape(t *testing.T) {
	report := NewResultAggregator(0).GenerateJSONReport([]domain.ExecutionResult{
		passed("prettier", domain.DimensionFormat, &domain.WrapperResult{Success: true}),
	}, &domain.RunContext{RunID: "r", Duration: 1500 * time.Millisecond})

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"metadata", "summary", "dimensions", "tools", "failures", "warnings", "recommendations", "artifacts"} {
		assert.Contains(t, decoded, key)
	}
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, float64(1500), summary["executionTime"])
	assert.Equal(t, "passed", summary["status"])
	assert.Contains(t, summary, "completionRate")
	assert.Contains(t, summary, "filesWithProblems")

	tool := decoded["tools"].(map[string]any)["prettier"].(map[string]any)
	assert.Equal(t, "passed", tool["outcome"])
	assert.Equal(t, "SUCCESS", tool["status"])
}
