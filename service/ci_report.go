package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/version"
)

// GenerateJSONReport wraps the aggregated summary in the stable CI report
// shape, regrouping results by dimension and by tool
func (a *ResultAggregatorImpl) GenerateJSONReport(results []domain.ExecutionResult, runCtx *domain.RunContext) *domain.CIReport {
	if runCtx == nil {
		runCtx = &domain.RunContext{}
	}
	aggregated := a.AggregateResults(results, runCtx.Duration)

	runID := runCtx.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	timestamp := runCtx.StartedAt
	if timestamp.IsZero() {
		timestamp = a.now()
	}

	report := &domain.CIReport{
		Metadata: domain.CIMetadata{
			RunID:       runID,
			Timestamp:   timestamp.UTC().Format(time.RFC3339),
			Branch:      runCtx.Branch,
			Commit:      runCtx.Commit,
			Environment: runCtx.Environment,
			Mode:        runCtx.Mode,
			Scope:       runCtx.Scope,
			Version:     version.GetVersion(),
		},
		Summary: domain.CISummary{
			ReportSummary:  aggregated.Summary,
			CompletionRate: completionRate(aggregated.Summary),
			Status:         runStatus(aggregated.Summary, results),
		},
		Dimensions:      make(map[domain.Dimension]*domain.CIGroup),
		Tools:           make(map[string]*domain.CIToolEntry),
		Failures:        []domain.CIIssue{},
		Warnings:        []domain.CIIssue{},
		Recommendations: aggregated.Recommendations,
		Artifacts:       []string{},
	}
	report.Artifacts = append(report.Artifacts, runCtx.Artifacts...)

	for _, r := range results {
		addToDimension(report, r)
		report.Tools[toolKey(report.Tools, r)] = toolEntry(r)
		report.Failures = append(report.Failures, failureIssues(r)...)
		report.Warnings = append(report.Warnings, warningIssues(r)...)
	}
	return report
}

// completionRate is passed/total*100, or 0 when nothing was counted
func completionRate(s domain.ReportSummary) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

func runStatus(s domain.ReportSummary, results []domain.ExecutionResult) string {
	if s.Failed > 0 {
		return domain.RunStatusFailed
	}
	if s.Warnings > 0 {
		return domain.RunStatusWarning
	}
	for _, r := range results {
		if r.Status == domain.StatusWarning {
			return domain.RunStatusWarning
		}
	}
	if s.Passed > 0 {
		return domain.RunStatusPassed
	}
	return domain.RunStatusUnknown
}

func addToDimension(report *domain.CIReport, r domain.ExecutionResult) {
	group, ok := report.Dimensions[r.Dimension]
	if !ok {
		group = &domain.CIGroup{Tools: []string{}}
		report.Dimensions[r.Dimension] = group
	}
	group.Tools = append(group.Tools, r.Tool)

	switch r.Outcome {
	case domain.OutcomePassed:
		group.Passed++
	case domain.OutcomeFailed:
		group.Failed++
	default:
		group.Informational++
	}
	if r.Status == domain.StatusWarning {
		group.Warnings++
	}
}

// toolKey keys a result by tool name, qualified by dimension on collision
func toolKey(tools map[string]*domain.CIToolEntry, r domain.ExecutionResult) string {
	if _, taken := tools[r.Tool]; !taken {
		return r.Tool
	}
	return fmt.Sprintf("%s@%s", r.Tool, r.Dimension)
}

func toolEntry(r domain.ExecutionResult) *domain.CIToolEntry {
	entry := &domain.CIToolEntry{
		Dimension:       r.Dimension,
		Status:          r.Status,
		Outcome:         r.Outcome,
		ExecutionTimeMs: r.ExecutionTimeMs,
		Error:           r.Error,
		Message:         r.Message,
	}
	if r.Result != nil {
		entry.Violations = len(r.Result.Violations) + len(r.Result.Warnings)
	}
	return entry
}

func failureIssues(r domain.ExecutionResult) []domain.CIIssue {
	var issues []domain.CIIssue
	if r.Error != "" {
		issues = append(issues, domain.CIIssue{Tool: r.Tool, Message: r.Error})
	}
	if r.Result != nil {
		for _, v := range r.Result.Violations {
			if v.Severity == domain.SeverityError {
				issues = append(issues, violationIssue(r.Tool, v))
			}
		}
	}
	if r.Failed() && len(issues) == 0 {
		issues = append(issues, domain.CIIssue{Tool: r.Tool, Message: r.Tool + " failed"})
	}
	return issues
}

func warningIssues(r domain.ExecutionResult) []domain.CIIssue {
	var issues []domain.CIIssue
	if r.Result != nil {
		for _, v := range r.Result.Violations {
			if v.Severity == domain.SeverityWarning {
				issues = append(issues, violationIssue(r.Tool, v))
			}
		}
		for _, v := range r.Result.Warnings {
			issues = append(issues, violationIssue(r.Tool, v))
		}
	}
	if r.IsEmptyTestSuite() && len(issues) == 0 {
		issues = append(issues, domain.CIIssue{Tool: r.Tool, Message: "no tests found"})
	}
	return issues
}

func violationIssue(tool string, v domain.Violation) domain.CIIssue {
	msg := v.Message
	if v.Rule != "" {
		msg = fmt.Sprintf("%s (%s)", msg, v.Rule)
	}
	return domain.CIIssue{Tool: tool, File: v.File, Line: v.Line, Message: msg}
}
