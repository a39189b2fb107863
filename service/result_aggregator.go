package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/ludo-technologies/qarun/domain"
)

// DefaultSlowRunThreshold is the run duration above which a faster mode is suggested
const DefaultSlowRunThreshold = 60 * time.Second

// ResultAggregatorImpl turns per-tool results into a single report using
// tri-state accounting. Pass/fail comes only from each result's Outcome;
// violations are mined for counting only.
type ResultAggregatorImpl struct {
	slowRunThreshold time.Duration
	now              func() time.Time
}

// NewResultAggregator creates an aggregator. A non-positive threshold uses the default.
func NewResultAggregator(slowRunThreshold time.Duration) *ResultAggregatorImpl {
	if slowRunThreshold <= 0 {
		slowRunThreshold = DefaultSlowRunThreshold
	}
	return &ResultAggregatorImpl{
		slowRunThreshold: slowRunThreshold,
		now:              time.Now,
	}
}

// AggregateResults builds the report for one run
func (a *ResultAggregatorImpl) AggregateResults(results []domain.ExecutionResult, executionTime time.Duration) *domain.AggregatedReport {
	summary := domain.ReportSummary{
		ExecutionTime:     executionTime,
		ExecutionTimeMs:   executionTime.Milliseconds(),
		FilesWithProblems: []domain.FileProblem{},
	}
	files := make(map[string]*domain.FileProblem)

	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomePassed:
			summary.Passed++
		case domain.OutcomeFailed:
			summary.Failed++
		default:
			summary.Informational++
		}

		if r.Result == nil {
			continue
		}
		summary.Total += filesProcessed(r.Result)

		for _, v := range r.Result.Violations {
			switch v.Severity {
			case domain.SeverityError:
				summary.Errors++
			case domain.SeverityWarning:
				summary.Warnings++
			}
			trackFile(files, v, v.Severity)
		}
		// Legacy warnings are a separate source; each counts once
		for _, v := range r.Result.Warnings {
			summary.Warnings++
			trackFile(files, v, domain.SeverityWarning)
		}
	}

	for _, fp := range files {
		summary.FilesWithProblems = append(summary.FilesWithProblems, *fp)
	}
	sortFileProblems(summary.FilesWithProblems)

	details := results
	if details == nil {
		details = []domain.ExecutionResult{}
	}

	return &domain.AggregatedReport{
		Summary:         summary,
		Details:         details,
		Metrics:         a.metrics(results),
		Recommendations: a.recommendations(summary),
	}
}

// ExitCode returns 1 when any tool failed, else 0. Warnings never fail a run.
func (a *ResultAggregatorImpl) ExitCode(summary domain.ReportSummary) int {
	if summary.Failed > 0 {
		return 1
	}
	return 0
}

// filesProcessed is the result's contribution to Summary.Total
func filesProcessed(r *domain.WrapperResult) int {
	if r.Metadata != nil {
		return r.Metadata.FilesProcessed
	}
	if r.HasViolations() {
		return 1
	}
	return 0
}

func trackFile(files map[string]*domain.FileProblem, v domain.Violation, sev domain.Severity) {
	if v.File == "" {
		return
	}
	fp, ok := files[v.File]
	if !ok {
		fp = &domain.FileProblem{File: v.File}
		files[v.File] = fp
	}
	switch sev {
	case domain.SeverityError:
		fp.Errors++
	case domain.SeverityWarning:
		fp.Warnings++
	}
}

// sortFileProblems orders worst offenders first: errors desc, warnings desc, file asc
func sortFileProblems(problems []domain.FileProblem) {
	sort.Slice(problems, func(i, j int) bool {
		if problems[i].Errors != problems[j].Errors {
			return problems[i].Errors > problems[j].Errors
		}
		if problems[i].Warnings != problems[j].Warnings {
			return problems[i].Warnings > problems[j].Warnings
		}
		return problems[i].File < problems[j].File
	})
}

func (a *ResultAggregatorImpl) recommendations(summary domain.ReportSummary) []string {
	recs := []string{}
	if summary.Failed > 0 {
		recs = append(recs, fmt.Sprintf("Review and fix the errors reported by %d failed check(s)", summary.Failed))
	}
	if summary.Warnings > 0 {
		recs = append(recs, fmt.Sprintf("Address %d warning(s) to improve code quality", summary.Warnings))
	}
	if summary.ExecutionTime > a.slowRunThreshold {
		recs = append(recs, fmt.Sprintf("Execution took %.1fs; consider --mode fast for quicker feedback",
			summary.ExecutionTime.Seconds()))
	}
	return recs
}

func (a *ResultAggregatorImpl) metrics(results []domain.ExecutionResult) map[string]any {
	m := map[string]any{
		"toolsRun": len(results),
	}
	if len(results) == 0 {
		return m
	}

	var total time.Duration
	slowest := results[0]
	emptySuites := 0
	for _, r := range results {
		total += r.ExecutionTime
		if r.ExecutionTime > slowest.ExecutionTime {
			slowest = r
		}
		if r.IsEmptyTestSuite() {
			emptySuites++
		}
	}

	m["averageExecutionTime"] = (total / time.Duration(len(results))).Milliseconds()
	m["slowestTool"] = slowest.Tool
	m["slowestExecutionTime"] = slowest.ExecutionTime.Milliseconds()
	m["emptyTestSuites"] = emptySuites
	return m
}
